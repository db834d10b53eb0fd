package config

import (
	"time"

	"github.com/dmitrijs2005/suitewaste/internal/hashx"
)

// Config holds runtime settings for the SuiteWaste CLI.
type Config struct {
	// ServerURL is the base URL of the REST API.
	ServerURL string
	// HealthAddr is the host:port of the gRPC health service. When empty the
	// client probes ServerURL instead.
	HealthAddr          string
	DataDir             string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
	// Hasher is the password hash kind, see hashx.New.
	Hasher   string
	Secret   string
	LogFile  string
	LogLevel string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.HealthAddr = ""
	c.DataDir = ".suitewaste"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 10 * time.Second
	c.Hasher = hashx.KindSHA256
	c.Secret = "suitewaste-local-session"
	c.LogFile = ""
	c.LogLevel = "info"
}
