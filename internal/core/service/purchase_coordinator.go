package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/shop-economy/internal/core/domain"
	"github.com/rl1809/shop-economy/internal/core/notify"
	"github.com/rl1809/shop-economy/internal/port"
)

// PurchaseCoordinator pairs a currency debit with an item credit. One
// purchase runs to completion before the next begins.
type PurchaseCoordinator struct {
	mu       sync.Mutex
	// stockMu guards entry.Stock writes and Stock reads. It is never held
	// while ledger listeners run, so listeners may read stock mid-purchase.
	stockMu  sync.RWMutex
	wallet   port.CurrencyDebitor
	bag      port.ItemCreditor
	failures notify.Hub[domain.PurchaseFailure]
	log      *zap.Logger
	now      func() time.Time
}

func NewPurchaseCoordinator(wallet port.CurrencyDebitor, bag port.ItemCreditor, log *zap.Logger) *PurchaseCoordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &PurchaseCoordinator{
		wallet: wallet,
		bag:    bag,
		log:    log,
		now:    time.Now,
	}
}

// Purchase sells one unit of entry. On failure nothing is mutated, the
// failure is published to subscribers and a *domain.PurchaseError returned.
func (c *PurchaseCoordinator) Purchase(entry *domain.CatalogEntry) (domain.Receipt, error) {
	c.mu.Lock()
	receipt, failure := c.purchaseLocked(entry)
	c.mu.Unlock()

	if failure != nil {
		c.log.Info("purchase rejected",
			zap.String("entry", failure.EntryID),
			zap.String("reason", string(failure.Reason)))
		c.failures.Publish(*failure)
		return domain.Receipt{}, &domain.PurchaseError{PurchaseFailure: *failure}
	}

	c.log.Info("purchase committed",
		zap.String("receipt", receipt.ID),
		zap.String("entry", receipt.EntryID),
		zap.String("item", string(receipt.Item)),
		zap.Int("stock_left", receipt.StockLeft))
	return receipt, nil
}

func (c *PurchaseCoordinator) purchaseLocked(entry *domain.CatalogEntry) (domain.Receipt, *domain.PurchaseFailure) {
	if entry == nil {
		return domain.Receipt{}, &domain.PurchaseFailure{Reason: domain.ReasonInvalidEntry}
	}
	if !entry.Item.Valid() || entry.Stock < domain.StockUnlimited {
		return domain.Receipt{}, &domain.PurchaseFailure{
			Reason:  domain.ReasonInvalidEntry,
			EntryID: entry.ID,
			Costs:   copyCosts(entry.Costs),
		}
	}

	if entry.SoldOut() {
		return domain.Receipt{}, &domain.PurchaseFailure{
			Reason:  domain.ReasonSoldOut,
			EntryID: entry.ID,
			Costs:   copyCosts(entry.Costs),
		}
	}

	if !c.wallet.TryDebitAll(entry.Costs) {
		return domain.Receipt{}, &domain.PurchaseFailure{
			Reason:  domain.ReasonInsufficientFunds,
			EntryID: entry.ID,
			Costs:   copyCosts(entry.Costs),
		}
	}

	if discarded := c.bag.Add(entry.Item, 1); discarded > 0 {
		c.log.Warn("purchased item did not fit its stack",
			zap.String("entry", entry.ID),
			zap.String("item", string(entry.Item.ID)))
	}

	c.stockMu.Lock()
	if entry.Stock > 0 {
		entry.Stock--
	}
	stockLeft := entry.Stock
	c.stockMu.Unlock()

	return domain.Receipt{
		ID:        uuid.NewString(),
		EntryID:   entry.ID,
		Item:      entry.Item.ID,
		Quantity:  1,
		Costs:     copyCosts(entry.Costs),
		StockLeft: stockLeft,
		CreatedAt: c.now(),
	}, nil
}

// Stock reads the remaining stock of entry. It does not wait for a running
// purchase, so ledger listeners can call it while one is in flight.
func (c *PurchaseCoordinator) Stock(entry *domain.CatalogEntry) int {
	c.stockMu.RLock()
	defer c.stockMu.RUnlock()
	return entry.Stock
}

func copyCosts(lines []domain.CostLine) []domain.CostLine {
	if lines == nil {
		return nil
	}
	out := make([]domain.CostLine, len(lines))
	copy(out, lines)
	return out
}

func (c *PurchaseCoordinator) Subscribe(fn func(domain.PurchaseFailure)) notify.Subscription {
	return c.failures.Subscribe(fn)
}

func (c *PurchaseCoordinator) Unsubscribe(sub notify.Subscription) bool {
	return c.failures.Unsubscribe(sub)
}
