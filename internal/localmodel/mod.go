package localmodel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/benniella/Credit-Risk-Prediction/internal/config"
	"github.com/benniella/Credit-Risk-Prediction/internal/pkg/pyexec"
	"github.com/benniella/Credit-Risk-Prediction/internal/riskapi"
)

const (
	pollInterval = 100 * time.Millisecond
	probeTimeout = 2 * time.Second
)

var ErrStartTimeout = errors.New("localmodel: the process startup timeout was exceeded")

// Runner запускает FastAPI-сервер модели (python -m uvicorn main:app) и ждет его готовности
type Runner struct {
	cfg    config.LocalModelConfig
	output io.Writer
	logger *slog.Logger

	mu      sync.Mutex
	process *pyexec.Process
}

type Option func(*Runner)

// WithOutput направляет вывод uvicorn в w (по умолчанию stdout/stderr сервиса)
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		r.output = w
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

func New(cfg config.LocalModelConfig, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, option := range opts {
		option(r)
	}
	return r
}

// URL - базовый адрес запущенного сервера для riskapi.NewClient
func (r *Runner) URL() string {
	return "http://" + r.cfg.Addr
}

// Start запускает процесс и опрашивает GET / каждые 100ms, пока сервер не ответит
// или не истечет StartTimeout
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.process != nil {
		return pyexec.ErrStarted
	}

	host, port, err := net.SplitHostPort(r.cfg.Addr)
	if err != nil {
		return fmt.Errorf("invalid local model addr %q: %w", r.cfg.Addr, err)
	}

	opts := []pyexec.Option{
		pyexec.WithVenv(r.cfg.Venv),
		pyexec.WithModule("uvicorn"),
		pyexec.WithArgs(r.cfg.App, "--host", host, "--port", port),
	}
	if r.output != nil {
		opts = append(opts, pyexec.WithOutput(r.output))
	}
	p, err := pyexec.New(r.cfg.Dir, opts...)
	if err != nil {
		return fmt.Errorf("failed to create process: %w", err)
	}
	if err := p.Start(); err != nil {
		return fmt.Errorf("failed to start process: %w", err)
	}
	r.logger.Info("local model starting", "pid", p.PID(), "addr", r.cfg.Addr)

	if err := r.waitReady(ctx, p); err != nil {
		_ = p.Stop()
		return err
	}

	r.process = p
	r.logger.Info("local model ready", "url", r.URL())
	return nil
}

func (r *Runner) waitReady(ctx context.Context, p *pyexec.Process) error {
	client := riskapi.NewClient(r.URL())
	deadline := time.NewTimer(r.cfg.StartTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		ok := client.CheckHealth(probeCtx)
		cancel()
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.Exited():
			return fmt.Errorf("local model exited before becoming ready: %w", p.Wait(ctx))
		case <-deadline.C:
			return ErrStartTimeout
		case <-ticker.C:
		}
	}
}

// Stop останавливает процесс; повторный вызов ничего не делает
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.process == nil {
		return nil
	}
	err := r.process.Stop()
	r.process = nil
	if errors.Is(err, pyexec.ErrNotStarted) {
		return nil
	}
	r.logger.Info("local model stopped")
	return err
}
