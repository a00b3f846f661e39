package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Store backends selectable through STORE_BACKEND.
const (
	BackendMongo  = "mongo"
	BackendDynamo = "dynamo"
	BackendMemory = "memory"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string `env:"APP_PORT" env-default:"8000"`
	AppEnv  string `env:"APP_ENV" env-default:"development"`

	StoreBackend      string        `env:"STORE_BACKEND" env-default:"mongo"`
	StoreProbeTimeout time.Duration `env:"STORE_PROBE_TIMEOUT" env-default:"5s"`

	MongoURI      string `env:"MONGO_AUTH"`
	MongoDatabase string `env:"MONGO_DATABASE" env-default:"smartbids"`

	AWSRegion      string       `env:"AWS_REGION" env-default:"us-east-1"`
	AWSEndpointURL string       `env:"AWS_ENDPOINT_URL"` // empty in prod, LocalStack URL in dev
	AWSAccessKeyID string       `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string       `env:"AWS_SECRET_ACCESS_KEY"`
	DynamoTables   DynamoTables
	SNSRegion      string `env:"SNS_REGION" env-default:"us-east-1"`
	LeadSMSEnabled bool   `env:"LEAD_SMS_ENABLED" env-default:"false"`

	EmailBaseURL string `env:"EMAIL_BASE_URL" env-required:"true"`
	LoginURL     string `env:"LOGIN_URL" env-default:"https://app.smartbids.ai"`

	SMTPHost       string        `env:"SMTP_HOST" env-default:"smtp.gmail.com"`
	SMTPPort       int           `env:"SMTP_PORT" env-default:"465"`
	SMTPUsername   string        `env:"YOUR_EMAIL"`
	SMTPPassword   string        `env:"YOUR_EMAIL_PASS"`
	SMTPSenderName string        `env:"SMTP_SENDER_NAME" env-default:"SmartBids.ai - Email verification"`
	SMTPTimeout    time.Duration `env:"SMTP_TIMEOUT" env-default:"15s"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" env-default:"*" env-separator:","`
	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS" env-default:"5"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" env-default:"10"`
	// Proxies whose X-Forwarded-For / X-Real-Ip headers are believed. IPs or CIDRs.
	TrustedProxies []string `env:"TRUSTED_PROXIES" env-separator:","`
}

// DynamoTables holds the DynamoDB table name for each record collection.
type DynamoTables struct {
	Users string `env:"DYNAMO_TABLE_USERS" env-default:"users"`
	Leads string `env:"DYNAMO_TABLE_LEADS" env-default:"leads"`
}

// Load reads all configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	switch cfg.StoreBackend {
	case BackendMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGO_AUTH is required for the %s backend", BackendMongo)
		}
	case BackendDynamo, BackendMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	if _, err := cfg.TrustedProxyPrefixes(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address becomes a single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, entry := range c.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// MustLoad is Load for process startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic("cannot load config: " + err.Error())
	}
	return cfg
}
