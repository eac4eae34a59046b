package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parley-chat/session-service/config"
	"github.com/parley-chat/session-service/internal/activity"
	"github.com/parley-chat/session-service/internal/postgres"
	"github.com/parley-chat/session-service/internal/presence"
	"github.com/parley-chat/session-service/internal/security"
	"github.com/parley-chat/session-service/internal/service"
	"github.com/parley-chat/session-service/internal/typing"
	httpx "github.com/parley-chat/session-service/internal/transport/http"
	"github.com/parley-chat/session-service/internal/transport/ws"
	"github.com/parley-chat/session-service/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting session-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	// --- repos ---
	messageRepo := postgres.NewMessageRepository(db.Pool)
	roomRepo := postgres.NewRoomRepository(db.Pool)
	userRepo := postgres.NewUserRepository(db.Pool)

	// --- auth ---
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		s, err := security.RandomStringURLSafe(32)
		if err != nil {
			log.Fatalf("generate jwt secret: %v", err)
		}
		secret = s
		slog.Warn("auth.jwtSecret not set, generated an ephemeral one; tokens will not survive a restart")
	}
	signer := security.NewTokenSigner([]byte(secret), cfg.Auth.Issuer, cfg.TokenTTL())

	// --- room state & services ---
	registry := presence.NewRegistry()
	tracker := typing.NewTracker(cfg.TypingTimeout())
	activityLog := activity.NewLog()

	messageSvc := service.NewMessageService(messageRepo, registry)
	messageSvc.SetLimits(cfg.Chat.MaxMessageLen, cfg.Chat.HistoryLimit, cfg.Chat.SearchLimit)
	roomSvc := service.NewRoomService(roomRepo)
	authSvc := service.NewAuthService(userRepo, signer)

	// --- WS hub & coordinator ---
	hub := ws.NewHub()
	wsServer := ws.NewServer(hub, registry, tracker, messageSvc, activityLog, signer)

	// --- HTTP ---
	handler := httpx.NewHandler(authSvc, roomSvc, messageRepo, activityLog)
	router := httpx.NewRouter(handler, signer, wsServer)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
