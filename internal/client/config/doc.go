// Package config loads runtime configuration for the console.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c / -config or SCHOOLDESK_CONFIG.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the REST API
//	-t int      request timeout (seconds)
//	-d string   SQLite database path for persisted credentials
//	-o string   export directory
//	-b string   S3 bucket for exports (enables S3 export)
//	-l string   log level (debug, info, warn, error)
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "10s" or
// integer nanoseconds:
//
//	{
//	  "server_url": "https://api.school.example",
//	  "request_timeout": "10s",
//	  "database_path": "/var/lib/schooldesk/console.db",
//	  "notification_ttl": "6s",
//	  "export_dir": "exports",
//	  "export_bucket": "school-exports",
//	  "export_region": "eu-central-1",
//	  "export_endpoint": "http://localhost:9000",
//	  "export_access_key": "minioadmin",
//	  "export_secret_key": "minioadmin",
//	  "log_level": "debug",
//	  "log_file": "schooldesk.log"
//	}
//
// Empty JSON values leave the defaults untouched.
package config
