package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/shop-economy/internal/core/domain"
	"github.com/rl1809/shop-economy/internal/core/ledger"
	"github.com/rl1809/shop-economy/internal/port"
)

var (
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrUnknownCurrency  = errors.New("unknown currency")
	ErrNotEnoughItems   = errors.New("not enough items")
	ErrNoJournal        = errors.New("purchase journal not configured")
)

const (
	DefaultPurchaseListLimit = 20
	MaxPurchaseListLimit     = 100
)

// Offer is a catalog entry together with its current stock.
type Offer struct {
	Entry *domain.CatalogEntry
	Stock int
}

// ShopService is the entry point transports drive. It guards purchases
// against replayed requests and hands committed receipts to the journal.
type ShopService struct {
	cache       port.CacheRepository
	wallet      *ledger.CurrencyLedger
	bag         *ledger.ItemLedger
	coordinator *PurchaseCoordinator
	catalog     *domain.Catalog
	currencies  map[domain.CurrencyID]domain.CurrencyKind
	journal     port.JournalRepository
	log         *zap.Logger

	// queueMu is held for reading around every enqueue and for writing by
	// Close, so the queue is never closed under a pending send.
	queueMu      sync.RWMutex
	queueClosed  bool
	receiptQueue chan domain.Receipt
}

type ShopDeps struct {
	Cache       port.CacheRepository
	Wallet      *ledger.CurrencyLedger
	Bag         *ledger.ItemLedger
	Coordinator *PurchaseCoordinator
	Catalog     *domain.Catalog
	Currencies  []domain.CurrencyKind
	Journal     port.JournalRepository
	Log         *zap.Logger
}

func NewShopService(deps ShopDeps, queueSize int) *ShopService {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	currencies := make(map[domain.CurrencyID]domain.CurrencyKind, len(deps.Currencies))
	for _, k := range deps.Currencies {
		currencies[k.ID] = k
	}

	return &ShopService{
		cache:        deps.Cache,
		wallet:       deps.Wallet,
		bag:          deps.Bag,
		coordinator:  deps.Coordinator,
		catalog:      deps.Catalog,
		currencies:   currencies,
		journal:      deps.Journal,
		receiptQueue: make(chan domain.Receipt, queueSize),
		log:          log,
	}
}

func (s *ShopService) Purchase(ctx context.Context, requestID, entryID string) (domain.Receipt, error) {
	idempotencyKey := fmt.Sprintf("purchase:%s", requestID)

	ok, err := s.cache.SetIdempotency(ctx, idempotencyKey)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		return domain.Receipt{}, ErrDuplicateRequest
	}

	receipt, err := s.coordinator.Purchase(s.catalog.Lookup(entryID))
	if err != nil {
		// nothing was spent, so the same request may be retried
		if relErr := s.cache.ReleaseIdempotency(ctx, idempotencyKey); relErr != nil {
			s.log.Error("failed to release idempotency key",
				zap.String("request", requestID), zap.Error(relErr))
		}
		return domain.Receipt{}, err
	}
	receipt.RequestID = requestID

	// the purchase is committed; enqueue even if the caller has gone away
	s.enqueue(receipt)

	return receipt, nil
}

func (s *ShopService) enqueue(receipt domain.Receipt) {
	s.queueMu.RLock()
	defer s.queueMu.RUnlock()

	if s.queueClosed {
		s.log.Error("receipt not journaled: shop closed",
			zap.String("receipt", receipt.ID),
			zap.String("request", receipt.RequestID))
		return
	}
	s.receiptQueue <- receipt
}

// Purchases reads back the journal, newest first. A non-positive limit
// selects the default and large limits are capped.
func (s *ShopService) Purchases(ctx context.Context, limit int) ([]domain.Receipt, error) {
	if s.journal == nil {
		return nil, ErrNoJournal
	}
	if limit <= 0 {
		limit = DefaultPurchaseListLimit
	}
	if limit > MaxPurchaseListLimit {
		limit = MaxPurchaseListLimit
	}

	receipts, err := s.journal.ListPurchases(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return receipts, nil
}

func (s *ShopService) Balances() map[domain.CurrencyID]int {
	return s.wallet.Snapshot()
}

func (s *ShopService) Inventory() map[domain.ItemID]int {
	return s.bag.Snapshot()
}

func (s *ShopService) Offers() []Offer {
	entries := s.catalog.Entries()
	offers := make([]Offer, 0, len(entries))
	for _, e := range entries {
		offers = append(offers, Offer{Entry: e, Stock: s.coordinator.Stock(e)})
	}
	return offers
}

// Grant credits a configured currency.
func (s *ShopService) Grant(ctx context.Context, currency domain.CurrencyID, amount int) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if _, ok := s.currencies[currency]; !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, currency)
	}

	s.wallet.Credit(currency, amount)
	balance := s.wallet.Balance(currency)
	s.log.Info("currency granted",
		zap.String("currency", string(currency)),
		zap.Int("amount", amount),
		zap.Int("balance", balance))
	return balance, nil
}

// Consume removes held items, for example when a potion is used.
func (s *ShopService) Consume(ctx context.Context, item domain.ItemID, amount int) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if !s.bag.Remove(item, amount) {
		return s.bag.Count(item), ErrNotEnoughItems
	}
	return s.bag.Count(item), nil
}

func (s *ShopService) ReceiptQueue() <-chan domain.Receipt {
	return s.receiptQueue
}

// Close closes the receipt queue once in-flight enqueues finish. Purchases
// committed afterwards are logged instead of journaled.
func (s *ShopService) Close() {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	if s.queueClosed {
		return
	}
	s.queueClosed = true
	close(s.receiptQueue)
}
