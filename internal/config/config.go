package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultConfigPath = "./config.yml"

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type APIConfig struct {
	BaseURL     string        `yaml:"base_url"`
	UseProxy    bool          `yaml:"use_proxy"`
	ProxyURL    string        `yaml:"proxy_url"`
	Timeout     time.Duration `yaml:"timeout"`
	WakeTimeout time.Duration `yaml:"wake_timeout"`
	RateLimit   float64       `yaml:"rate_limit"` // Запросов прогноза в секунду, 0 - без ограничения
	RateBurst   int           `yaml:"rate_burst"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug/info/warn/error
	Format string `yaml:"format"` // text/json
}

// LocalModelConfig - запуск FastAPI-сервера модели рядом с сервисом
type LocalModelConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Dir          string        `yaml:"dir"`
	Venv         string        `yaml:"venv"`
	App          string        `yaml:"app"`
	Addr         string        `yaml:"addr"`
	StartTimeout time.Duration `yaml:"start_timeout"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	API        APIConfig        `yaml:"api"`
	Log        LogConfig        `yaml:"log"`
	LocalModel LocalModelConfig `yaml:"local_model"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		API: APIConfig{
			BaseURL:     "https://credit-risk-prediction-1-wzt4.onrender.com",
			ProxyURL:    "https://corsproxy.io/?",
			Timeout:     60 * time.Second,
			WakeTimeout: 10 * time.Second,
			RateLimit:   2,
			RateBurst:   4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		LocalModel: LocalModelConfig{
			Dir:          "backend",
			Venv:         "venv",
			App:          "main:app",
			Addr:         "127.0.0.1:8666",
			StartTimeout: time.Minute,
		},
	}
}

// LoadConfig читает YAML поверх значений по умолчанию, затем применяет .env и переменные окружения.
// Отсутствие файла по умолчанию не считается ошибкой
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CREDIT_RISK_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("CREDIT_RISK_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CREDIT_RISK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	for name, dst := range map[string]*bool{
		"CREDIT_RISK_USE_PROXY":   &c.API.UseProxy,
		"CREDIT_RISK_LOCAL_MODEL": &c.LocalModel.Enabled,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = b
	}
	return nil
}

// Validate собирает все ошибки конфигурации в одну
func (c *Config) Validate() error {
	var errs []string

	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		errs = append(errs, "server.addr must be host:port")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "server.shutdown_timeout must be > 0")
	}
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		if !c.LocalModel.Enabled {
			errs = append(errs, "api.base_url must be an absolute URL")
		}
	}
	if c.API.UseProxy && strings.TrimSpace(c.API.ProxyURL) == "" {
		errs = append(errs, "api.proxy_url is required when api.use_proxy=true")
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, "api.timeout must be > 0")
	}
	if c.API.WakeTimeout <= 0 {
		errs = append(errs, "api.wake_timeout must be > 0")
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, "api.rate_limit must be >= 0")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, "log.format must be text or json")
	}
	if c.LocalModel.Enabled {
		if strings.TrimSpace(c.LocalModel.Dir) == "" {
			errs = append(errs, "local_model.dir is required when local_model.enabled=true")
		}
		if _, _, err := net.SplitHostPort(c.LocalModel.Addr); err != nil {
			errs = append(errs, "local_model.addr must be host:port")
		}
		if c.LocalModel.StartTimeout <= 0 {
			errs = append(errs, "local_model.start_timeout must be > 0")
		}
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}
