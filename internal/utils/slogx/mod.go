package slogx

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const defaultQueueSize = 1024

type entry struct {
	handler slog.Handler
	record  slog.Record
}

// AsyncSlog выносит запись логов в отдельную горутину, чтобы обработчики запросов не ждали вывода
type AsyncSlog struct {
	logger  *slog.Logger
	queue   chan entry
	dropped atomic.Int64
	done    chan struct{}
	once    sync.Once
	stop    context.CancelFunc
}

// NewAsyncSlog запускает фоновую запись в logger до отмены ctx или вызова Close
func NewAsyncSlog(ctx context.Context, logger *slog.Logger) *AsyncSlog {
	ctx, cancel := context.WithCancel(ctx)
	a := &AsyncSlog{
		queue: make(chan entry, defaultQueueSize),
		done:  make(chan struct{}),
		stop:  cancel,
	}
	a.logger = slog.New(&asyncHandler{inner: logger.Handler(), owner: a})

	go a.run(ctx)

	return a
}

func (a *AsyncSlog) run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case e := <-a.queue:
			_ = e.handler.Handle(context.Background(), e.record)
		case <-ctx.Done():
			for {
				select {
				case e := <-a.queue:
					_ = e.handler.Handle(context.Background(), e.record)
				default:
					return
				}
			}
		}
	}
}

// Logger возвращает *slog.Logger, пишущий через очередь
func (a *AsyncSlog) Logger() *slog.Logger {
	return a.logger
}

func (a *AsyncSlog) Log(level slog.Level, msg string, args ...any) {
	a.logger.Log(context.Background(), level, msg, args...)
}

// Dropped - число записей, отброшенных из-за переполнения очереди
func (a *AsyncSlog) Dropped() int64 {
	return a.dropped.Load()
}

// Close дописывает оставшиеся записи и останавливает горутину
func (a *AsyncSlog) Close() {
	a.once.Do(a.stop)
	<-a.done
}

func (a *AsyncSlog) enqueue(h slog.Handler, r slog.Record) {
	select {
	case <-a.done:
		_ = h.Handle(context.Background(), r)
		return
	default:
	}
	select {
	case a.queue <- entry{handler: h, record: r.Clone()}:
	default:
		a.dropped.Add(1)
	}
}

type asyncHandler struct {
	inner slog.Handler
	owner *AsyncSlog
}

func (h *asyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *asyncHandler) Handle(_ context.Context, r slog.Record) error {
	h.owner.enqueue(h.inner, r)
	return nil
}

func (h *asyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &asyncHandler{inner: h.inner.WithAttrs(attrs), owner: h.owner}
}

func (h *asyncHandler) WithGroup(name string) slog.Handler {
	return &asyncHandler{inner: h.inner.WithGroup(name), owner: h.owner}
}

// New создает логгер с текстовым или JSON выводом
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel понимает debug/info/warn/error, по умолчанию info
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Since - атрибут длительности в миллисекундах
func Since(start time.Time) slog.Attr {
	return slog.Int64("dur_ms", time.Since(start).Milliseconds())
}
