package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sleb/uno/internal/cache"
	"github.com/sleb/uno/internal/config"
	"github.com/sleb/uno/internal/database"
	"github.com/sleb/uno/internal/game"
	"github.com/sleb/uno/internal/ws"
)

func main() {
	cfg := config.Load()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := database.Connect(ctx, cfg.DatabaseURL); err != nil {
		logrus.Warnf("running without postgres, matches will not be persisted: %v", err)
	}
	if err := cache.InitRedis(ctx, cfg.RedisAddr, cfg.RedisPass); err != nil {
		logrus.Warnf("running without redis, action history disabled: %v", err)
	}
	cancel()

	registry := game.NewRegistry()
	server := ws.NewServer(cfg, registry)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logrus.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("http shutdown: %v", err)
	}
	if database.DB != nil {
		database.DB.Close()
	}
	if cache.Rdb != nil {
		if err := cache.Rdb.Close(); err != nil {
			logrus.Debugf("closing redis: %v", err)
		}
	}
}
