package server

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/benniella/Credit-Risk-Prediction/internal/form"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

//go:embed web
var webFS embed.FS

var pageTmpl = template.Must(template.ParseFS(webFS, "web/index.html"))

const healthTimeout = 10 * time.Second

// RiskAPI - то, что сервер использует от клиента модели
type RiskAPI interface {
	form.Predictor
	CheckHealth(ctx context.Context) bool
}

type Server struct {
	api      RiskAPI
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCheckOrigin заменяет проверку Origin для /ws (по умолчанию только тот же хост)
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(s *Server) {
		s.upgrader.CheckOrigin = fn
	}
}

func New(api RiskAPI, opts ...Option) *Server {
	s := &Server{
		api:    api,
		logger: slog.New(slog.DiscardHandler),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, option := range opts {
		option(s)
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestID)
	r.Use(AccessLog(s.logger))

	static, _ := fs.Sub(webFS, "web/static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/", s.handleIndex)
	r.Post("/", s.handleSubmit)
	r.Post("/reset", s.handleReset)

	r.Route("/api", func(r chi.Router) {
		r.Post("/predict", s.handlePredict)
		r.Get("/health", s.handleHealth)
	})
	r.Get("/ws", s.handleWS)

	return r
}
