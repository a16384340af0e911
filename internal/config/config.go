package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is loaded from environment variables. An empty BTCPayWebhookSecret
// switches webhook verification into insecure mode; the server logs that
// choice loudly at startup so it is never taken silently.
type Config struct {
	HTTPAddr      string `env:"HTTP_ADDR" envDefault:":8080"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	// empty DatabaseURL selects the in-memory store
	DatabaseURL string `env:"DATABASE_URL"`

	BTCPayURL           string `env:"BTCPAY_URL"`
	BTCPayAPIKey        string `env:"BTCPAY_API_KEY"`
	BTCPayStoreID       string `env:"BTCPAY_STORE_ID"`
	BTCPayWebhookSecret string `env:"BTCPAY_WEBHOOK_SECRET"`

	// empty StanURL disables status publishing
	StanURL       string `env:"NATS_URL"`
	StanClusterID string `env:"STAN_CLUSTER_ID" envDefault:"storefront-cluster"`
	StanClientID  string `env:"STAN_CLIENT_ID"`
	StanSubject   string `env:"STAN_SUBJECT" envDefault:"order-status"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
