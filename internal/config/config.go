package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

type Config struct {
	App   AppConfig
	Store StoreConfig
	Redis RedisConfig
	LLM   LLMConfig
	Batch BatchConfig
}

type AppConfig struct {
	Env       string `envconfig:"WAREHOUSE_APP_ENV" default:"dev"`
	LogLevel  string `envconfig:"WAREHOUSE_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"WAREHOUSE_LOG_FORMAT" default:"json"`
	HTTPAddr  string `envconfig:"WAREHOUSE_HTTP_ADDR" default:":8080"`
	GRPCAddr  string `envconfig:"WAREHOUSE_GRPC_ADDR" default:":50051"`
}

type StoreConfig struct {
	Driver          string        `envconfig:"WAREHOUSE_STORE_DRIVER" default:"sqlite"`
	SQLitePath      string        `envconfig:"WAREHOUSE_SQLITE_PATH" default:"warehouse.db"`
	MySQLDSN        string        `envconfig:"WAREHOUSE_MYSQL_DSN" default:"root:root@tcp(localhost:3306)/warehouse?parseTime=true"`
	MaxOpenConns    int           `envconfig:"WAREHOUSE_MYSQL_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WAREHOUSE_MYSQL_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WAREHOUSE_MYSQL_CONN_MAX_LIFETIME" default:"5m"`
}

// RedisConfig drives the optional document claim guard. An empty Addr
// disables it.
type RedisConfig struct {
	Addr     string        `envconfig:"WAREHOUSE_REDIS_ADDR"`
	Password string        `envconfig:"WAREHOUSE_REDIS_PASSWORD"`
	DB       int           `envconfig:"WAREHOUSE_REDIS_DB" default:"0"`
	ClaimTTL time.Duration `envconfig:"WAREHOUSE_REDIS_CLAIM_TTL" default:"24h"`
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type LLMConfig struct {
	APIKey  string `envconfig:"OPENAI_API_KEY"`
	BaseURL string `envconfig:"WAREHOUSE_LLM_BASE_URL"`
	Model   string `envconfig:"WAREHOUSE_LLM_MODEL" default:"gpt-4o-mini"`
}

type BatchConfig struct {
	Workers int `envconfig:"WAREHOUSE_BATCH_WORKERS" default:"4"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case DriverMySQL:
		if c.Store.MySQLDSN == "" {
			return fmt.Errorf("mysql dsn is required")
		}
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch workers must be at least 1, got %d", c.Batch.Workers)
	}
	return nil
}
