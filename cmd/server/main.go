package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/vhoang/agritrace/internal/adapter/handler"
	"github.com/vhoang/agritrace/internal/adapter/storage"
	"github.com/vhoang/agritrace/internal/config"
	"github.com/vhoang/agritrace/internal/core/domain"
	"github.com/vhoang/agritrace/internal/core/service"
	"github.com/vhoang/agritrace/internal/port"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL event journal
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Error("open mysql", "err", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		logger.Error("ping mysql", "err", err)
		os.Exit(1)
	}
	journal := storage.NewMySQLAdapter(db)
	if err := journal.Migrate(ctx); err != nil {
		logger.Error("migrate journal", "err", err)
		os.Exit(1)
	}
	logger.Info("connected to mysql")

	// Redis: notification fan-out and the push payment primitive
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: 100})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("ping redis", "err", err)
		os.Exit(1)
	}
	redisAdapter := storage.NewRedisAdapter(rdb)
	logger.Info("connected to redis")

	// Snapshot store: restore the ledger if a previous state exists
	snapshots, err := storage.OpenBoltSnapshotStore(cfg.SnapshotPath)
	if err != nil {
		logger.Error("open snapshot store", "err", err)
		os.Exit(1)
	}

	var ledger *service.Ledger
	opts := []service.Option{
		service.WithLogger(logger),
		service.WithEventBuffer(cfg.EventBuffer),
	}
	if state, ok, err := snapshots.Load(); err != nil {
		logger.Error("load snapshot", "err", err)
		os.Exit(1)
	} else if ok {
		ledger = service.Restore(state, redisAdapter, opts...)
		logger.Info("restored ledger from snapshot", "taken_at", state.TakenAt, "roster", ledger.RosterSize())
	} else {
		ledger = service.New(cfg.AdminAddress, redisAdapter, opts...)
		logger.Info("initialized empty ledger", "admin", cfg.AdminAddress)
	}

	// Event workers: drain the notification feed into MySQL and Redis
	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			eventLoop(id, logger, ledger, journal, redisAdapter)
		}(i)
	}
	logger.Info("started event workers", "count", cfg.WorkerCount)

	// HTTP server
	mux := http.NewServeMux()
	handler.NewHTTPHandler(ledger).Register(mux)
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server", "err", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("http server stopped")

	// Close the feed and wait for workers before snapshotting
	ledger.Close()
	wg.Wait()
	logger.Info("event workers stopped")

	if err := snapshots.Save(ledger.Snapshot()); err != nil {
		logger.Error("save snapshot", "err", err)
	} else {
		logger.Info("ledger state snapshotted", "path", cfg.SnapshotPath)
	}

	snapshots.Close()
	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}

// eventLoop persists each ledger notification to the journal and fans it out
// to external observers. Sales are journaled alongside their notification.
// Journal failures are logged, never retried here; the in-memory ledger
// stays authoritative.
func eventLoop(id int, logger *slog.Logger, ledger *service.Ledger, journal port.EventJournal, publisher port.EventPublisher) {
	for ev := range ledger.Events() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if err := journal.AppendEvent(ctx, ev); err != nil {
			logger.Error("journal append failed", "worker", id, "event", ev.ID, "err", err)
		}
		if ev.Kind == domain.EventUnitSold && len(ev.RecordIDs) > 0 {
			if sale, err := ledger.Sale(ev.RecordIDs[0]); err == nil {
				if err := journal.AppendSale(ctx, sale); err != nil {
					logger.Error("sale journal failed", "worker", id, "sale", sale.ID, "err", err)
				}
			}
		}
		if err := publisher.Publish(ctx, ev); err != nil {
			logger.Warn("event publish failed", "worker", id, "event", ev.ID, "err", err)
		}

		cancel()
	}
}
