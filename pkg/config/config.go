package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App        AppConfig
	Upstream   UpstreamConfig
	Gateway    GatewayConfig
	DB         DBConfig
	Redis      RedisConfig
	Localstore LocalstoreConfig
	Visitor    VisitorConfig
	Catalog    CatalogConfig
	Reconcile  ReconcileConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Localstore.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ROYALIQ_APP_ENV" default:"development"`
	Port         string `envconfig:"ROYALIQ_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ROYALIQ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ROYALIQ_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// UpstreamConfig points the gateway at the retail backend API.
type UpstreamConfig struct {
	BaseURL    string        `envconfig:"ROYALIQ_UPSTREAM_BASE_URL" required:"true"`
	Timeout    time.Duration `envconfig:"ROYALIQ_UPSTREAM_TIMEOUT" default:"15s"`
	CookieName string        `envconfig:"ROYALIQ_UPSTREAM_COOKIE_NAME" default:"royal_customer"`
	StoreName  string        `envconfig:"ROYALIQ_STORE_NAME" default:"RoyalIQ Retail"`
	StoreBlurb string        `envconfig:"ROYALIQ_STORE_DESCRIPTION" default:"Purchase of Jewelry"`
}

// GatewayConfig covers the hosted payment widget.
type GatewayConfig struct {
	CheckoutScriptURL string        `envconfig:"ROYALIQ_CHECKOUT_SCRIPT_URL" default:"https://checkout.razorpay.com/v1/checkout.js"`
	ProbeTimeout      time.Duration `envconfig:"ROYALIQ_CHECKOUT_PROBE_TIMEOUT" default:"10s"`
}

type DBConfig struct {
	Driver string `envconfig:"ROYALIQ_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"ROYALIQ_DB_DSN" default:"royaliq.db"`

	MaxOpenConns    int           `envconfig:"ROYALIQ_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"ROYALIQ_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"ROYALIQ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ROYALIQ_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ROYALIQ_REDIS_URL"`
	Address      string        `envconfig:"ROYALIQ_REDIS_ADDR"`
	Password     string        `envconfig:"ROYALIQ_REDIS_PASSWORD"`
	DB           int           `envconfig:"ROYALIQ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ROYALIQ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ROYALIQ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ROYALIQ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ROYALIQ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ROYALIQ_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// LocalstoreConfig selects the backend for the durable key-value store that
// holds cart lines and the reconciliation journal.
type LocalstoreConfig struct {
	Backend string `envconfig:"ROYALIQ_LOCALSTORE_BACKEND" default:"db"`
}

func (l LocalstoreConfig) validate() error {
	switch strings.ToLower(l.Backend) {
	case "db", "redis":
		return nil
	}
	return fmt.Errorf("localstore backend must be %q or %q, got %q", "db", "redis", l.Backend)
}

func (l LocalstoreConfig) UseRedis() bool {
	return strings.EqualFold(l.Backend, "redis")
}

type VisitorConfig struct {
	Secret  string        `envconfig:"ROYALIQ_VISITOR_SECRET" required:"true"`
	Issuer  string        `envconfig:"ROYALIQ_VISITOR_ISSUER" default:"royaliq-storefront"`
	TTL     time.Duration `envconfig:"ROYALIQ_VISITOR_TTL" default:"720h"`
	Cookie  string        `envconfig:"ROYALIQ_VISITOR_COOKIE" default:"royaliq_visitor"`
	Session string        `envconfig:"ROYALIQ_SESSION_COOKIE" default:"royaliq_customer"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `envconfig:"ROYALIQ_CATALOG_CACHE_TTL" default:"60s"`
}

type ReconcileConfig struct {
	Interval       time.Duration `envconfig:"ROYALIQ_RECONCILE_INTERVAL" default:"1m"`
	MaxAttempts    int           `envconfig:"ROYALIQ_RECONCILE_MAX_ATTEMPTS" default:"8"`
	InitialBackoff time.Duration `envconfig:"ROYALIQ_RECONCILE_INITIAL_BACKOFF" default:"2s"`
	MaxElapsed     time.Duration `envconfig:"ROYALIQ_RECONCILE_MAX_ELAPSED" default:"30s"`
}
