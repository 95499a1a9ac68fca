package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/simplepos/pos-backend/internal/api"
	"github.com/simplepos/pos-backend/internal/audit"
	"github.com/simplepos/pos-backend/internal/config"
	"github.com/simplepos/pos-backend/internal/logger"
	"github.com/simplepos/pos-backend/internal/metrics"
	"github.com/simplepos/pos-backend/internal/models"
	"github.com/simplepos/pos-backend/internal/services"
	"github.com/simplepos/pos-backend/internal/store"
	"github.com/simplepos/pos-backend/internal/worker"
)

var defaultMerchant = json.RawMessage(`{"id":"m-0001","name":"Demo Merchant","currency":"GBP"}`)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(cfg)
	if err != nil {
		log.Error("store open", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	if err := seed(st); err != nil {
		log.Error("store seed", "err", err)
		os.Exit(1)
	}

	wp := worker.NewPool(4)
	defer wp.Stop()

	svc := services.NewPaymentService(st, wp, audit.NewLog(cfg.AuditPath))

	metrics.Init()
	r := api.NewRouter(cfg, svc)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "store", cfg.StoreDriver, "path", cfg.StorePath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func openStore(cfg config.Config) (store.Store, func(), error) {
	switch cfg.StoreDriver {
	case "bolt":
		bs, err := store.OpenBolt(cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return bs, func() { _ = bs.Close() }, nil
	default:
		return store.NewFileStore(cfg.StorePath), func() {}, nil
	}
}

// seed initialises an empty dataset on first run so the first request does
// not fail with a missing medium. A corrupt dataset is left alone and aborts
// startup.
func seed(st store.Store) error {
	_, err := st.Load()
	if errors.Is(err, store.ErrUnavailable) {
		return st.Save(models.Dataset{Merchant: defaultMerchant, Transactions: []models.Transaction{}})
	}
	return err
}
