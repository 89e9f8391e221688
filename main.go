package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benniella/Credit-Risk-Prediction/internal/config"
	"github.com/benniella/Credit-Risk-Prediction/internal/localmodel"
	"github.com/benniella/Credit-Risk-Prediction/internal/riskapi"
	"github.com/benniella/Credit-Risk-Prediction/internal/server"
	"github.com/benniella/Credit-Risk-Prediction/internal/utils/slogx"
)

func main() {
	configPath := flag.String("config", os.Getenv("CREDIT_RISK_CONFIG"), "path to config.yml")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	// Логгер живет дольше ctx, чтобы записать остановку сервера
	asyncLog := slogx.NewAsyncSlog(context.Background(), slogx.New(os.Stdout, cfg.Log.Level, cfg.Log.Format))
	defer asyncLog.Close()
	logger := asyncLog.Logger()

	baseURL := cfg.API.BaseURL
	if cfg.LocalModel.Enabled {
		runner := localmodel.New(cfg.LocalModel, localmodel.WithLogger(logger))
		if err := runner.Start(ctx); err != nil {
			return fmt.Errorf("local model: %w", err)
		}
		defer runner.Stop()
		baseURL = runner.URL()
	}

	opts := []riskapi.Option{
		riskapi.WithTimeout(cfg.API.Timeout),
		riskapi.WithWakeTimeout(cfg.API.WakeTimeout),
		riskapi.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst),
		riskapi.WithLogger(logger),
	}
	if cfg.API.UseProxy && !cfg.LocalModel.Enabled {
		opts = append(opts, riskapi.WithProxy(cfg.API.ProxyURL))
	}
	client := riskapi.NewClient(baseURL, opts...)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(client, server.WithLogger(logger)).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "api", client.BaseURL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("forced shutdown", slog.Any("error", err))
	}

	return nil
}
