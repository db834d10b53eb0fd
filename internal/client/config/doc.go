// Package config loads runtime configuration for the SuiteWaste CLI.
//
// Sources and precedence:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c / --config (see ApplyJSON).
//  3. Command-line flags bound with BindFlags. Only flags that were actually
//     set override the JSON file.
//
// The JSON loader uses timex.Duration for intervals, so values can be
// strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "health_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "hasher": "argon2"
//	}
package config
