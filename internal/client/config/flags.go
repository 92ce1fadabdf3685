package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/schooldesk/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the REST API
//	-t int      request timeout in seconds
//	-d string   SQLite database path
//	-o string   export directory
//	-b string   S3 export bucket
//	-l string   log level
//
// Only these flags are parsed (see flagx.FilterArgs) so -c/-config can be
// handled separately by the JSON loader.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-d", "-o", "-b", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the REST API")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "SQLite database path")
	fs.StringVar(&cfg.ExportDir, "o", cfg.ExportDir, "CSV export directory")
	fs.StringVar(&cfg.ExportBucket, "b", cfg.ExportBucket, "S3 bucket for CSV exports")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
