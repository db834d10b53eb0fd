// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the SuiteWaste API server.
//
// Fields:
//   - EndpointAddrHTTP: bind address of the REST API.
//   - EndpointAddrGRPC: bind address of the gRPC health service; empty disables it.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory backend.
//   - SecretKey: HMAC secret for verifying bearer JWTs (HS256). Empty disables auth.
//   - TokenValidityDuration: maximum age of an accepted bearer token.
//   - AllowedOrigins: CORS origins; "*" allows any.
//   - S3*: object storage used for snapshots; an empty S3Bucket disables them.
type Config struct {
	EndpointAddrHTTP      string
	EndpointAddrGRPC      string
	DatabaseDSN           string
	SecretKey             string
	TokenValidityDuration time.Duration
	AllowedOrigins        []string
	LogFile               string
	LogLevel              string
	S3RootUser            string
	S3RootPassword        string
	S3Bucket              string
	S3Region              string
	S3BaseEndpoint        string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = ""
	c.SecretKey = ""
	c.TokenValidityDuration = 60 * time.Minute
	c.AllowedOrigins = []string{"*"}
	c.LogFile = ""
	c.LogLevel = "info"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = ""
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// LoadConfig builds a Config from defaults, then the JSON file named by
// -c/-config in args, then the flags in args.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
