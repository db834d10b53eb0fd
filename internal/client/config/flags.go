package config

import (
	"github.com/spf13/pflag"
)

// BindFlags registers the client flags on fs, using the current values of
// cfg as defaults. Parsed values are written straight into cfg.
//
//	-a, --server          base URL of the REST API
//	-g, --health          host:port of the gRPC health service
//	-d, --data-dir        directory for the local database and token
//	-i, --check-interval  online status check interval
//	-t, --timeout         per-request timeout
//	-k, --hasher          password hash kind (sha256, argon2)
//	-s, --secret          local session signing secret
//	-l, --log-file        log file, rotated by size
//	-c, --config          JSON config file
func BindFlags(fs *pflag.FlagSet, cfg *Config) *string {
	fs.StringVarP(&cfg.ServerURL, "server", "a", cfg.ServerURL, "base URL of the REST API")
	fs.StringVarP(&cfg.HealthAddr, "health", "g", cfg.HealthAddr, "host:port of the gRPC health service")
	fs.StringVarP(&cfg.DataDir, "data-dir", "d", cfg.DataDir, "directory for local data")
	fs.DurationVarP(&cfg.OnlineCheckInterval, "check-interval", "i", cfg.OnlineCheckInterval, "online status check interval")
	fs.DurationVarP(&cfg.RequestTimeout, "timeout", "t", cfg.RequestTimeout, "per-request timeout")
	fs.StringVarP(&cfg.Hasher, "hasher", "k", cfg.Hasher, "password hash kind (sha256, argon2)")
	fs.StringVarP(&cfg.Secret, "secret", "s", cfg.Secret, "local session signing secret")
	fs.StringVarP(&cfg.LogFile, "log-file", "l", cfg.LogFile, "log file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	return fs.StringP("config", "c", "", "path to JSON config file")
}

// flagNames maps Config fields to the long flag names that set them.
var flagNames = map[string]string{
	"server_url":            "server",
	"health_addr":           "health",
	"data_dir":              "data-dir",
	"online_check_interval": "check-interval",
	"request_timeout":       "timeout",
	"hasher":                "hasher",
	"secret":                "secret",
	"log_file":              "log-file",
	"log_level":             "log-level",
}

// changed reports whether the flag that owns the JSON key was set on the
// command line.
func changed(fs *pflag.FlagSet, key string) bool {
	if fs == nil {
		return false
	}
	name, ok := flagNames[key]
	return ok && fs.Changed(name)
}
