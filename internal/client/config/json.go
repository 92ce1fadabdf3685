package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/schooldesk/internal/flagx"
	"github.com/dmitrijs2005/schooldesk/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. After
// parsing, non-empty values are copied into the runtime Config.
type JsonConfig struct {
	ServerURL       string         `json:"server_url"`
	RequestTimeout  timex.Duration `json:"request_timeout"`
	DatabasePath    string         `json:"database_path"`
	NotificationTTL timex.Duration `json:"notification_ttl"`
	ExportDir       string         `json:"export_dir"`
	ExportBucket    string         `json:"export_bucket"`
	ExportRegion    string         `json:"export_region"`
	ExportEndpoint  string         `json:"export_endpoint"`
	ExportAccessKey string         `json:"export_access_key"`
	ExportSecretKey string         `json:"export_secret_key"`
	LogLevel        string         `json:"log_level"`
	LogFile         string         `json:"log_file"`
}

// parseJson overlays Config with values loaded from a JSON file. It panics on
// read or unmarshal errors; a broken config file should stop the console
// before it touches stored credentials.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.ExportDir, jc.ExportDir)
	setString(&cfg.ExportBucket, jc.ExportBucket)
	setString(&cfg.ExportRegion, jc.ExportRegion)
	setString(&cfg.ExportEndpoint, jc.ExportEndpoint)
	setString(&cfg.ExportAccessKey, jc.ExportAccessKey)
	setString(&cfg.ExportSecretKey, jc.ExportSecretKey)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFile, jc.LogFile)

	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.NotificationTTL.Duration > 0 {
		cfg.NotificationTTL = jc.NotificationTTL.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
