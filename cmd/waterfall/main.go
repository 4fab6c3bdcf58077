package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/DevSeige-Studios/WaterfallBot/internal/bot"
	"github.com/DevSeige-Studios/WaterfallBot/internal/config"
	"github.com/DevSeige-Studios/WaterfallBot/internal/detection"
	"github.com/DevSeige-Studios/WaterfallBot/internal/stats"
	"github.com/DevSeige-Studios/WaterfallBot/internal/storage"
	"github.com/DevSeige-Studios/WaterfallBot/internal/worker"
)

func main() {
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

	detector := detection.NewService(store, cfg.Detection, logger)
	statsService := stats.NewService(store, logger)

	botSvc, err := bot.New(cfg, logger, store, detector, statsService)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started")

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	if cfg.Worker.Enabled {
		maintenance := worker.New(store, cfg.Worker, logger)
		maintenance.SnapshotWith(func(ctx context.Context, guildID string) error {
			return statsService.Snapshot(ctx, guildID, botSvc.MemberCount(guildID))
		})
		go maintenance.Run(workerCtx)
	}

	var server *http.Server
	if cfg.Health.Enabled {
		server = &http.Server{Addr: cfg.Health.Addr}
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		go func() {
			logger.Info("health endpoint enabled", zap.String("addr", cfg.Health.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	stopWorker()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(ctx)
	}
	botSvc.Close(ctx)
}
