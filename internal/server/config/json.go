package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/suitewaste/internal/flagx"
	"github.com/dmitrijs2005/suitewaste/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept "1m" or
// integer nanoseconds. Pointer fields tell an absent key from an empty one.
type JsonConfig struct {
	EndpointAddrHTTP      *string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC      *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN           *string         `json:"database_dsn"`
	SecretKey             *string         `json:"secret_key"`
	TokenValidityDuration *timex.Duration `json:"token_validity_duration"`
	AllowedOrigins        []string        `json:"allowed_origins"`
	LogFile               *string         `json:"log_file"`
	LogLevel              *string         `json:"log_level"`
	S3RootUser            *string         `json:"s3_root_user"`
	S3RootPassword        *string         `json:"s3_root_password"`
	S3Bucket              *string         `json:"s3_bucket"`
	S3Region              *string         `json:"s3_region"`
	S3BaseEndpoint        *string         `json:"s3_base_endpoint"`
}

// parseJson overlays config with the JSON file named by -c / -config in
// args. Without the flag nothing is loaded.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	set(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.SecretKey, c.SecretKey)
	set(&config.LogFile, c.LogFile)
	set(&config.LogLevel, c.LogLevel)
	set(&config.S3RootUser, c.S3RootUser)
	set(&config.S3RootPassword, c.S3RootPassword)
	set(&config.S3Bucket, c.S3Bucket)
	set(&config.S3Region, c.S3Region)
	set(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.TokenValidityDuration != nil {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	if c.AllowedOrigins != nil {
		config.AllowedOrigins = c.AllowedOrigins
	}
	return nil
}
