package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"warden/internal/actionlog"
	"warden/internal/auditlog"
	"warden/internal/bot"
	"warden/internal/config"
	"warden/internal/settings"
	"warden/internal/storage"
	"warden/internal/telemetry"
	"warden/internal/votes"
	"warden/internal/webhook"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	guildSettings := settings.NewSQLStore(store, logger, cfg.DefaultPrefix)
	actions := actionlog.NewLogger(store, logger)
	attributor := auditlog.NewCorrelator(10 * time.Minute)
	ledger := votes.NewLedger(store, logger, cfg.Votes)

	var recorder *telemetry.Recorder
	if cfg.Telemetry.Enabled {
		recorder = telemetry.NewRecorder(store, logger, time.Duration(cfg.Telemetry.FlushIntervalSeconds)*time.Second)
		recorder.Start()
	}

	botSvc, err := bot.New(cfg, logger, guildSettings, actions, attributor, ledger, recorder)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started")

	var server *webhook.Server
	if cfg.Webhook.Enabled {
		server = webhook.NewServer(cfg.Webhook, logger, botSvc)
		server.Start()
	}

	var poster *webhook.Poster
	if cfg.BotList.StatsURL != "" {
		poster = webhook.NewPoster(cfg.BotList, logger, botSvc.GuildCount)
		poster.Start()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if poster != nil {
		poster.Stop()
	}
	if server != nil {
		_ = server.Shutdown(ctx)
	}
	if recorder != nil {
		recorder.Close(ctx)
	}
	botSvc.Close(ctx)
}
