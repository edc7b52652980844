package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendCEF        = "cef"
	BackendPlaywright = "playwright"
)

type Config struct {
	AppConfig       *AppConfig
	ServerConfig    *ServerConfig
	ProvisionConfig *ProvisionConfig
	BrowserConfig   *BrowserConfig
	InputConfig     *InputConfig
}

type AppConfig struct {
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	Debug          bool   `envconfig:"DEBUG" default:"false"`
	TracingEnabled bool   `envconfig:"TRACING_ENABLED" default:"false"`
	MetricsAddr    string `envconfig:"METRICS_ADDR"`
}

type ServerConfig struct {
	Name           string        `envconfig:"SERVER_NAME" default:"Huly CEF Server"`
	Version        string        `envconfig:"SERVER_VERSION" default:"1.0.0"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
}

type ProvisionConfig struct {
	BaseURL string        `envconfig:"PROVISIONER_URL" default:"http://localhost:3000"`
	Timeout time.Duration `envconfig:"PROVISIONER_TIMEOUT" default:"10s"`
}

type BrowserConfig struct {
	Backend     string        `envconfig:"BROWSER_BACKEND" default:"cef"`
	DefaultURL  string        `envconfig:"DEFAULT_URL" default:"https://www.google.com"`
	DialTimeout time.Duration `envconfig:"CEF_DIAL_TIMEOUT" default:"10s"`
	PageSettle  time.Duration `envconfig:"PAGE_SETTLE" default:"3s"`
}

type InputConfig struct {
	KeySettle    time.Duration `envconfig:"KEY_SETTLE" default:"100ms"`
	TypeInterval time.Duration `envconfig:"TYPE_INTERVAL" default:"50ms"`
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}

	return &conf, nil
}

func (c *Config) validate() error {
	switch c.BrowserConfig.Backend {
	case BackendCEF, BackendPlaywright:
	default:
		return fmt.Errorf("unsupported BROWSER_BACKEND %q", c.BrowserConfig.Backend)
	}

	if c.InputConfig.KeySettle < 0 || c.InputConfig.TypeInterval < 0 || c.BrowserConfig.PageSettle < 0 {
		return fmt.Errorf("input and settle delays must not be negative")
	}

	return nil
}
