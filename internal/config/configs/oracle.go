package configs

import "time"

// Oracle configures the background metrics poller that feeds tracked-post
// engagement numbers into metrics ingestion.
type Oracle struct {
	// Enabled starts the poller alongside the HTTP server.
	Enabled bool `env:"ENABLED" envDefault:"false"`
	// MetricsURL is the base URL of the external metrics provider.
	MetricsURL string `env:"METRICS_URL"`
	// Interval is the polling period.
	Interval time.Duration `env:"INTERVAL" envDefault:"60s"`
}
