package config

import "time"

// Config holds runtime settings for the console.
//
// Fields:
//   - ServerURL: base URL of the school records REST API.
//   - RequestTimeout: fixed timeout applied to every outbound request.
//   - DatabasePath: SQLite file holding persisted credentials.
//   - NotificationTTL: how long a notification stays visible.
//   - ExportDir: directory for CSV exports.
//   - ExportBucket / ExportRegion / ExportEndpoint: when ExportBucket is set,
//     CSV exports are uploaded to S3 instead of written to ExportDir.
//   - ExportAccessKey / ExportSecretKey: static S3 credentials. When empty the
//     default AWS credential chain is used.
//   - LogLevel / LogFile: slog level name and destination ("" means stderr).
type Config struct {
	ServerURL       string
	RequestTimeout  time.Duration
	DatabasePath    string
	NotificationTTL time.Duration
	ExportDir       string
	ExportBucket    string
	ExportRegion    string
	ExportEndpoint  string
	ExportAccessKey string
	ExportSecretKey string
	LogLevel        string
	LogFile         string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:5000"
	c.RequestTimeout = 10 * time.Second
	c.DatabasePath = "schooldesk.db"
	c.NotificationTTL = 6 * time.Second
	c.ExportDir = "exports"
	c.ExportRegion = "us-east-1"
	c.LogLevel = "info"
	c.LogFile = "schooldesk.log"
}

// UsesS3Export reports whether exports go to an S3 bucket.
func (c *Config) UsesS3Export() bool {
	return c.ExportBucket != ""
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
