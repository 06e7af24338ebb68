package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/shop-economy/internal/adapter/storage"
	"github.com/rl1809/shop-economy/internal/core/domain"
	"github.com/rl1809/shop-economy/internal/core/ledger"
	"github.com/rl1809/shop-economy/internal/core/service"
)

const (
	redisAddr     = "localhost:6379"
	initialGold   = 100
	initialGems   = 40
	goldCost      = 10
	gemsCost      = 2
	initialStock  = 20
	totalRequests = 50
	queueSize     = 100
)

func main() {
	ctx := context.Background()

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	currencies := []domain.CurrencyKind{
		{ID: "gold", DisplayName: "Gold", InitialAmount: initialGold},
		{ID: "gems", DisplayName: "Gems", InitialAmount: initialGems},
	}
	entry := &domain.CatalogEntry{
		ID:   "stress-offer",
		Item: domain.ItemKind{ID: "stress-item", Name: "Stress Item", MaxStack: 99},
		Costs: []domain.CostLine{
			{Currency: "gold", Amount: goldCost},
			{Currency: "gems", Amount: gemsCost},
		},
		Stock: initialStock,
	}

	wallet := ledger.NewCurrencyLedger(zap.NewNop())
	wallet.Initialize(currencies)
	bag := ledger.NewItemLedger(zap.NewNop())

	shop := service.NewShopService(service.ShopDeps{
		Cache:       storage.NewRedisAdapter(rdb, time.Minute),
		Wallet:      wallet,
		Bag:         bag,
		Coordinator: service.NewPurchaseCoordinator(wallet, bag, zap.NewNop()),
		Catalog:     domain.NewCatalog(entry),
		Currencies:  currencies,
	}, queueSize)
	defer shop.Close()

	// Drain the receipt queue in background
	go func() {
		for range shop.ReceiptQueue() {
		}
	}()

	// Counters
	var successCount atomic.Int32
	var failCount atomic.Int32

	// Spawn concurrent requests
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := shop.Purchase(ctx, uuid.NewString(), entry.ID)
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	// 100 gold / 10 allows 10 purchases before stock or gems run out
	expected := min(initialStock, initialGold/goldCost, initialGems/gemsCost)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == int32(expected) && fail == int32(totalRequests-expected) {
		fmt.Printf("PASS: Exactly %d purchases succeeded, %d failed\n", expected, totalRequests-expected)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			expected, totalRequests-expected, success, fail)
	}

	balances := wallet.Snapshot()
	fmt.Printf("Final Balances:   %v\n", balances)
	fmt.Printf("Final Stock:      %d\n", entry.Stock)
	fmt.Printf("Items Held:       %d\n", bag.Count(entry.Item.ID))

	negative := false
	for _, amount := range balances {
		if amount < 0 {
			negative = true
		}
	}
	if negative || entry.Stock < 0 {
		fmt.Println("FAIL: Balance or stock went negative")
	} else {
		fmt.Println("PASS: No balance or stock went negative")
	}
}
