package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/pos-ledger/internal/adapter/events"
	"github.com/rl1809/pos-ledger/internal/adapter/handler"
	"github.com/rl1809/pos-ledger/internal/adapter/storage"
	"github.com/rl1809/pos-ledger/internal/config"
	"github.com/rl1809/pos-ledger/internal/core/service"
	"github.com/rl1809/pos-ledger/internal/invoice"
	"github.com/rl1809/pos-ledger/internal/port"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := zap.Must(zap.NewProduction())
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL (authoritative store)
	db, err := storage.OpenMySQL(cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("open mysql", zap.Error(err))
	}
	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("ping mysql", zap.Error(err))
	}
	defer db.Close()
	store := storage.NewMySQLAdapter(db)
	logger.Info("connected to mysql")

	// Redis (advisory stock mirror + idempotency), optional
	var cache port.CacheRepository
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: 100})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, running without stock mirror", zap.Error(err))
		} else {
			cache = storage.NewRedisAdapter(rdb)
			defer rdb.Close()
			logger.Info("connected to redis")
		}
	}

	// Kafka event publisher, optional
	var pub port.EventPublisher = events.Noop{}
	var kafkaPub *events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub = events.NewPublisher(cfg.KafkaBrokers, 1024, logger)
		kafkaPub.Start()
		pub = kafkaPub
		logger.Info("kafka publisher started", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	// Services
	ledger := service.NewLedgerService(store, cache, pub, cfg.ServiceName)
	catalog := service.NewCatalogService(store, cache)
	orders := service.NewOrderService(store, ledger, cache, pub, cfg.ServiceName)

	// HTTP
	h := &handler.HTTPHandler{
		Catalog: catalog,
		Ledger:  ledger,
		Orders:  orders,
		Invoice: invoice.NewRenderer(cfg.ShopName),
		Log:     logger,
	}
	router := handler.NewRouter()
	h.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	if kafkaPub != nil {
		kafkaPub.Close()
		kafkaPub.WaitClosed()
	}
	logger.Info("stopped")
}
