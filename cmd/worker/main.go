package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ZRnown/energy/internal/config"
	"github.com/ZRnown/energy/internal/db"
	"github.com/ZRnown/energy/internal/dispatch"
	"github.com/ZRnown/energy/internal/intake"
	"github.com/ZRnown/energy/internal/notify"
	"github.com/ZRnown/energy/internal/standing"
	"github.com/ZRnown/energy/internal/store"
	"github.com/ZRnown/energy/internal/supplier"
	"github.com/ZRnown/energy/internal/tron"
	"github.com/ZRnown/energy/internal/vault"
	"github.com/ZRnown/energy/internal/worker"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	defer pool.Close()

	st := store.New(pool)

	v, err := vault.New(cfg.Vault.MasterKey)
	if err != nil {
		logger.Fatal("vault init failed", zap.Error(err))
	}

	callTimeout := time.Duration(cfg.Worker.CallTimeoutSeconds) * time.Second
	tronClient := tron.NewClient(cfg.Tron.TronscanBase, cfg.Tron.TrongridBase,
		cfg.Tron.APIKeys, cfg.Tron.GridAPIKeys, callTimeout)
	registry := supplier.NewRegistry(supplier.Config{
		NeeCCBase:      cfg.Suppliers.NeeCCBase,
		RentEnergyBase: cfg.Suppliers.RentEnergyBase,
		SelfStakeBase:  cfg.Suppliers.SelfStakeBase,
		TronGasBase:    cfg.Suppliers.TronGasBase,
	}, callTimeout)

	dispatcher := &dispatch.Dispatcher{
		Orders:      st,
		Creds:       v,
		Registry:    registry,
		CallTimeout: callTimeout,
		Log:         logger.Named("dispatch"),
	}

	minTRX, err := decimal.NewFromString(cfg.Tron.MinTRXAmount)
	if err != nil {
		logger.Fatal("invalid min_trx_amount", zap.Error(err))
	}
	cyclePrice, err := decimal.NewFromString(cfg.Standing.CyclePriceUSDT)
	if err != nil {
		logger.Fatal("invalid cycle_price_usdt", zap.Error(err))
	}

	matcher := &intake.Matcher{
		Store:          st,
		Source:         tronClient,
		Dispatcher:     dispatcher,
		MinTRXAmount:   minTRX,
		USDTContract:   cfg.Tron.USDTContract,
		CyclePriceUSDT: cyclePrice,
		Log:            logger.Named("intake"),
	}

	machine := &standing.Machine{
		Store:       st,
		Source:      tronClient,
		Dispatcher:  dispatcher,
		Concurrency: cfg.Worker.Concurrency,
		ItemBackoff: time.Duration(cfg.Worker.ItemBackoffMillis) * time.Millisecond,
		Log:         logger.Named("standing"),
	}

	emitter := &notify.Emitter{
		Store:         st,
		Sender:        notify.NewTelegramClient(cfg.Telegram.APIBase, cfg.Telegram.BotToken, callTimeout),
		BotUsername:   cfg.Telegram.BotUsername,
		AdminUsername: cfg.Telegram.AdminUsername,
		Log:           logger.Named("notify"),
	}

	w := &worker.Worker{
		Store:         st,
		Matcher:       matcher,
		Standing:      machine,
		Emitter:       emitter,
		ShortInterval: time.Duration(cfg.Worker.ShortIntervalSeconds) * time.Second,
		LongInterval:  time.Duration(cfg.Worker.LongIntervalSeconds) * time.Second,
		Lookback:      time.Duration(cfg.Worker.LookbackMinutes) * time.Minute,
		Concurrency:   cfg.Worker.Concurrency,
		ItemBackoff:   time.Duration(cfg.Worker.ItemBackoffMillis) * time.Millisecond,
		Log:           logger.Named("worker"),
	}

	logger.Info("worker started",
		zap.Duration("short_interval", w.ShortInterval),
		zap.Duration("long_interval", w.LongInterval))
	w.Run(ctx)
}
