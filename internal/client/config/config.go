// Package config handles configuration for the client agent,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the PaperVault agent.
//
// Fields:
//   - ServerEndpointAddr: base URL of the backend HTTP API.
//   - DatabaseDSN: path/DSN of the local SQLite queue database.
//   - Token: bearer token for the API; usually entered interactively.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - RetentionWindow: how long confirmed (synced) queue items are kept.
//   - UploadTimeout: per-upload HTTP timeout.
type Config struct {
	ServerEndpointAddr  string
	DatabaseDSN         string
	Token               string
	OnlineCheckInterval time.Duration
	RetentionWindow     time.Duration
	UploadTimeout       time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.DatabaseDSN = "papervault.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.RetentionWindow = 7 * 24 * time.Hour
	c.UploadTimeout = 2 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
