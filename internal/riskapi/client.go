package riskapi

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "https://credit-risk-prediction-1-wzt4.onrender.com"
	DefaultProxyURL = "https://corsproxy.io/?"

	// HealthMessage - фрагмент ответа GET /, по которому узнается живой сервер
	HealthMessage = "Credit Risk Prediction API is running"

	DefaultTimeout     = 60 * time.Second
	DefaultWakeTimeout = 10 * time.Second
)

// Client - клиент API прогноза кредитного риска
type Client struct {
	baseURL     string             // адрес сервера без завершающего "/"
	proxyURL    string             // префикс CORS-прокси, пусто если не используется
	timeout     time.Duration      // таймаут запроса прогноза
	wakeTimeout time.Duration      // таймаут пробуждающего запроса
	limiter     *rate.Limiter      // ограничение частоты прогнозов
	wake        singleflight.Group // общий пробуждающий запрос для параллельных вызовов
	logger      *slog.Logger
}

// NewClient создает клиент для сервера по адресу baseURL.
// Пустой baseURL заменяется на DefaultBaseURL
func NewClient(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	client := &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		timeout:     DefaultTimeout,
		wakeTimeout: DefaultWakeTimeout,
	}
	for _, option := range opts {
		option(client)
	}
	return client
}

// NewClientFromEnv читает адрес сервера из CREDIT_RISK_API_URL.
// Файл .env необязателен
func NewClientFromEnv(opts ...Option) *Client {
	_ = godotenv.Load()

	baseURL := os.Getenv("CREDIT_RISK_API_URL")
	if useProxy, _ := strconv.ParseBool(os.Getenv("CREDIT_RISK_USE_PROXY")); useProxy {
		opts = append([]Option{WithProxy(DefaultProxyURL)}, opts...)
	}
	return NewClient(baseURL, opts...)
}

// Option определяет тип функции для настройки Client
type Option func(*Client)

// WithTimeout устанавливает таймаут запроса прогноза
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithWakeTimeout устанавливает таймаут пробуждающего запроса
func WithWakeTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.wakeTimeout = timeout
	}
}

// WithProxy включает CORS-прокси: адрес запроса экранируется и дописывается к префиксу
func WithProxy(prefix string) Option {
	return func(c *Client) {
		c.proxyURL = prefix
	}
}

// WithRateLimit ограничивает частоту запросов прогноза
func WithRateLimit(reqPerSec float64, burst int) Option {
	return func(c *Client) {
		if reqPerSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(reqPerSec), max(burst, 1))
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) endpoint(path string) string {
	full := c.baseURL + path
	if c.proxyURL == "" {
		return full
	}
	return c.proxyURL + url.QueryEscape(full)
}

func (c *Client) log(level slog.Level, msg string, args ...any) {
	if c.logger != nil {
		c.logger.Log(context.Background(), level, msg, args...)
	}
}
