package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

type Environment string

const (
	EnvLocal      Environment = "local"
	EnvDev        Environment = "dev"
	EnvStage      Environment = "stage"
	EnvProduction Environment = "production"
)

type RulesBackend string

const (
	RulesBackendSQLite    RulesBackend = "sqlite"
	RulesBackendMetafield RulesBackend = "metafield"
)

var (
	ErrInvalidPollInterval = errors.New("rules poll interval must be positive")
	ErrUnknownRulesBackend = errors.New("unknown rules backend")
)

type ConfigBasicClient struct {
	Username string
	Password string
}

type Config struct {
	App struct {
		Version  string      `env:"APP_VERSION" envDefault:"local"`
		Env      Environment `env:"APP_ENV" envDefault:"local"`
		Timezone string      `env:"APP_TIMEZONE" envDefault:"Europe/Moscow"`
		LogLevel string      `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	}

	HTTP struct {
		Port string `env:"HTTP_SERVER_PORT" envDefault:"8080"`
		Host string `env:"HTTP_SERVER_HOST" envDefault:"localhost"`
	}

	Auth struct {
		BasicClientsString string `env:"AUTH_BASIC_CLIENTS" envDefault:"delivery_admin:delivery_admin"`
		BasicClients       []ConfigBasicClient
	}

	Rules struct {
		Namespace    string        `env:"RULES_NAMESPACE" envDefault:"delivery_date"`
		Key          string        `env:"RULES_KEY" envDefault:"rules"`
		Backend      RulesBackend  `env:"RULES_BACKEND" envDefault:"sqlite"`
		PollInterval time.Duration `env:"RULES_POLL_INTERVAL" envDefault:"60s"`
	}

	SQLite struct {
		Path string `env:"SQLITE_PATH" envDefault:"delivery_rules.db"`
	}

	Metafield struct {
		URL               string        `env:"METAFIELD_URL"`
		Username          string        `env:"METAFIELD_USERNAME"`
		Password          string        `env:"METAFIELD_PASSWORD"`
		Timeout           time.Duration `env:"METAFIELD_TIMEOUT" envDefault:"10s"`
		RequestsPerSecond float64       `env:"METAFIELD_RPS" envDefault:"10"`
	}

	RabbitMQ struct {
		Enabled  bool   `env:"RABBITMQ_ENABLED"`
		URL      string `env:"RABBITMQ_URL"`
		Exchange string `env:"RABBITMQ_EXCHANGE" envDefault:"delivery"`
		Queue    string `env:"RABBITMQ_QUEUE"`
		Source   string `env:"RABBITMQ_SOURCE" envDefault:"admin"`
	}

	Cache struct {
		Enabled      bool          `env:"CACHE_ENABLED"`
		SnapshotTTL  time.Duration `env:"CACHE_SNAPSHOT_TTL" envDefault:"5m"`
		SessionsSize int           `env:"CACHE_SESSIONS_SIZE" envDefault:"1000"`
	}

	Checkout struct {
		AttributeKey   string `env:"CHECKOUT_ATTRIBUTE_KEY" envDefault:"delivery_date"`
		SelectionsSize int    `env:"CHECKOUT_SELECTIONS_SIZE" envDefault:"10000"`
	}
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Приведение окружения к нижнему регистру для унификации
	cfg.App.Env = Environment(strings.ToLower(string(cfg.App.Env)))
	cfg.Rules.Backend = RulesBackend(strings.ToLower(string(cfg.Rules.Backend)))

	cfg.Auth.BasicClients = parseBasicClients(cfg.Auth.BasicClientsString)

	// Без RabbitMQ не узнаем о сохранениях на других инстансах, кэш снимков выключаем
	if !cfg.RabbitMQ.Enabled {
		cfg.Cache.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Rules.PollInterval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPollInterval, c.Rules.PollInterval)
	}

	switch c.Rules.Backend {
	case RulesBackendSQLite, RulesBackendMetafield:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRulesBackend, c.Rules.Backend)
	}

	if c.Rules.Backend == RulesBackendMetafield && c.Metafield.URL == "" {
		return errors.New("METAFIELD_URL is required for metafield backend")
	}

	return nil
}

func parseBasicClients(value string) []ConfigBasicClient {
	clients := []ConfigBasicClient{}
	for _, pair := range strings.Split(value, ",") {
		parts := strings.Split(strings.TrimSpace(pair), ":")
		if len(parts) == 2 && parts[0] != "" {
			clients = append(clients, ConfigBasicClient{
				Username: parts[0],
				Password: parts[1],
			})
		}
	}
	return clients
}

// Location это таймзона магазина, по ней считается "сегодня"
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) IsLocal() bool {
	return c.App.Env == EnvLocal
}

func (c *Config) IsNotLocal() bool {
	return c.App.Env == EnvDev || c.App.Env == EnvStage || c.App.Env == EnvProduction
}
