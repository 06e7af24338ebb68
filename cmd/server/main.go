package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/shop-economy/internal/adapter/handler"
	"github.com/rl1809/shop-economy/internal/adapter/storage"
	"github.com/rl1809/shop-economy/internal/config"
	"github.com/rl1809/shop-economy/internal/core/domain"
	"github.com/rl1809/shop-economy/internal/core/ledger"
	"github.com/rl1809/shop-economy/internal/core/service"
	"github.com/rl1809/shop-economy/internal/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	economy, err := config.LoadEconomy(cfg.EconomyFile)
	if err != nil {
		return err
	}

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return err
	}
	mysqlAdapter := storage.NewMySQLAdapter(db)
	if err := mysqlAdapter.EnsureSchema(ctx); err != nil {
		return err
	}
	lg.Info("connected to mysql")

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}
	lg.Info("connected to redis")

	// Ledgers and purchase flow
	wallet := ledger.NewCurrencyLedger(lg.Named("currency"))
	bag := ledger.NewItemLedger(lg.Named("inventory"))
	coordinator := service.NewPurchaseCoordinator(wallet, bag, lg.Named("purchase"))

	wallet.Subscribe(func(c domain.BalanceChange) {
		lg.Debug("balance changed", zap.String("currency", string(c.Currency)), zap.Int("amount", c.Amount))
	})
	bag.Subscribe(func(c domain.StackChange) {
		lg.Debug("stack changed", zap.String("item", string(c.Item.ID)), zap.Int("count", c.Count))
	})
	coordinator.Subscribe(func(f domain.PurchaseFailure) {
		lg.Info("purchase failed", zap.String("entry", f.EntryID), zap.String("reason", string(f.Reason)))
	})

	wallet.Initialize(economy.Currencies)
	lg.Info("economy loaded",
		zap.Int("currencies", len(economy.Currencies)),
		zap.Int("items", len(economy.Items)),
		zap.Int("offers", len(economy.Catalog.Entries())))

	shop := service.NewShopService(service.ShopDeps{
		Cache:       storage.NewRedisAdapter(rdb, cfg.IdempotencyTTL),
		Wallet:      wallet,
		Bag:         bag,
		Coordinator: coordinator,
		Catalog:     economy.Catalog,
		Currencies:  economy.Currencies,
		Journal:     mysqlAdapter,
		Log:         lg.Named("shop"),
	}, cfg.QueueSize)

	// Start journal workers
	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			service.DrainReceipts(id, shop.ReceiptQueue(), mysqlAdapter, lg.Named("journal"))
		}(i)
	}
	lg.Info("started journal workers", zap.Int("count", cfg.WorkerCount))

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterEconomyServer(grpcServer, handler.NewGRPCHandler(shop))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	go func() {
		lg.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			lg.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	mux := http.NewServeMux()
	handler.NewHTTPHandler(shop, lg.Named("http")).Routes(mux)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		lg.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			lg.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		lg.Error("HTTP shutdown", zap.Error(err))
	}
	lg.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	lg.Info("gRPC server stopped")

	// Close waits for purchases still sending to the queue; any that commit
	// after it are logged rather than journaled.
	shop.Close()
	wg.Wait()
	lg.Info("journal workers stopped")

	return nil
}
