package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/science-tutor/backend/internal/config"
	"github.com/zhouzirui/science-tutor/backend/internal/handler"
	"github.com/zhouzirui/science-tutor/backend/internal/logger"
	"github.com/zhouzirui/science-tutor/backend/internal/service/chat"
	"github.com/zhouzirui/science-tutor/backend/internal/service/completion"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.L.Warn("failed to load .env file, continuing with system environment variables only", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.Setup(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	router, err := buildRouter(ctx, cfg)
	if err != nil {
		logger.L.Error("failed to initialize completion client", "error", err)
		os.Exit(1)
	}

	startServer(ctx, cfg.Server, router)
}

// buildRouter performs the startup checks and wires the HTTP surface. No
// route is served unless the completion client was configured successfully.
func buildRouter(ctx context.Context, cfg *config.Config) (http.Handler, error) {
	client, err := completion.Setup(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}

	chatService := chat.NewService(client)
	return handler.NewRouter(chatService, cfg.LLM), nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.L.Info("science tutor listening", "address", addr)
	if err := runServer(ctx, srv); err != nil {
		logger.L.Error("server error", "error", err)
		os.Exit(1)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
