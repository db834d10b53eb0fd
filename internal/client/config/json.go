package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/suitewaste/internal/timex"
	"github.com/spf13/pflag"
)

// JsonConfig is the on-disk form of Config. Pointer fields tell an absent
// key apart from an empty value.
type JsonConfig struct {
	ServerURL           *string         `json:"server_url"`
	HealthAddr          *string         `json:"health_addr"`
	DataDir             *string         `json:"data_dir"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	Hasher              *string         `json:"hasher"`
	Secret              *string         `json:"secret"`
	LogFile             *string         `json:"log_file"`
	LogLevel            *string         `json:"log_level"`
}

// ApplyJSON overlays cfg with the file at path. Keys whose flag was set on
// fs are skipped, so the command line keeps precedence.
func ApplyJSON(cfg *Config, path string, fs *pflag.FlagSet) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	setString := func(key string, dst *string, v *string) {
		if v != nil && !changed(fs, key) {
			*dst = *v
		}
	}
	setString("server_url", &cfg.ServerURL, jc.ServerURL)
	setString("health_addr", &cfg.HealthAddr, jc.HealthAddr)
	setString("data_dir", &cfg.DataDir, jc.DataDir)
	setString("hasher", &cfg.Hasher, jc.Hasher)
	setString("secret", &cfg.Secret, jc.Secret)
	setString("log_file", &cfg.LogFile, jc.LogFile)
	setString("log_level", &cfg.LogLevel, jc.LogLevel)

	if jc.OnlineCheckInterval != nil && !changed(fs, "online_check_interval") {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.RequestTimeout != nil && !changed(fs, "request_timeout") {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}
