package handler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/shop-economy/internal/adapter/storage"
	"github.com/rl1809/shop-economy/internal/core/domain"
	"github.com/rl1809/shop-economy/internal/core/ledger"
	"github.com/rl1809/shop-economy/internal/core/service"
	"github.com/rl1809/shop-economy/internal/port"
)

const gold domain.CurrencyID = "gold"

var potion = domain.ItemKind{ID: "potion", Name: "Potion", MaxStack: 5}

// newTestShop builds a shop with 25 gold, a 10 gold potion with 2 in stock
// a sold out elixir and an unaffordable sword.
func newTestShop(t *testing.T) *service.ShopService {
	t.Helper()
	return newJournaledTestShop(t, nil)
}

func newJournaledTestShop(t *testing.T, journal port.JournalRepository) *service.ShopService {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	currencies := []domain.CurrencyKind{{ID: gold, DisplayName: "Gold", InitialAmount: 25}}
	wallet := ledger.NewCurrencyLedger(nil)
	wallet.Initialize(currencies)
	bag := ledger.NewItemLedger(nil)

	catalog := domain.NewCatalog(
		&domain.CatalogEntry{
			ID:    "potion-offer",
			Item:  potion,
			Costs: []domain.CostLine{{Currency: gold, Amount: 10}},
			Stock: 2,
		},
		&domain.CatalogEntry{
			ID:    "elixir-offer",
			Item:  domain.ItemKind{ID: "elixir", Name: "Elixir", MaxStack: 1},
			Costs: []domain.CostLine{{Currency: gold, Amount: 1}},
			Stock: 0,
		},
		&domain.CatalogEntry{
			ID:    "sword-offer",
			Item:  domain.ItemKind{ID: "sword", Name: "Sword", MaxStack: 1},
			Costs: []domain.CostLine{{Currency: gold, Amount: 100}},
			Stock: domain.StockUnlimited,
		},
	)

	shop := service.NewShopService(service.ShopDeps{
		Cache:       storage.NewRedisAdapter(client, time.Minute),
		Wallet:      wallet,
		Bag:         bag,
		Coordinator: service.NewPurchaseCoordinator(wallet, bag, nil),
		Catalog:     catalog,
		Currencies:  currencies,
		Journal:     journal,
	}, 100)
	t.Cleanup(shop.Close)

	return shop
}

// memJournal keeps receipts in insertion order.
type memJournal struct {
	mu       sync.Mutex
	receipts []domain.Receipt
	err      error
}

func (m *memJournal) RecordPurchase(ctx context.Context, receipt domain.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts = append(m.receipts, receipt)
	return nil
}

func (m *memJournal) ListPurchases(ctx context.Context, limit int) ([]domain.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Receipt, 0, limit)
	for i := len(m.receipts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.receipts[i])
	}
	return out, nil
}
