package config

import (
	"flag"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/suitewaste/internal/flagx"
)

// parseFlags overlays cfg with command-line flags.
//
//	-a string   REST bind address (e.g. ":8080")
//	-g string   gRPC health bind address; "" disables it
//	-d string   PostgreSQL DSN; "" selects the in-memory backend
//	-s string   JWT HMAC secret; "" disables auth
//	-t int      token validity, minutes
//	-o string   comma-separated CORS origins
//	-l string   log file
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket; "" disables snapshots
//	-r string   S3 region
//	-e string   S3 base endpoint (e.g. "http://127.0.0.1:9000/")
//
// Only the flags above are picked out of args with flagx.FilterArgs, so
// other components may share the command line.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-s", "-t", "-o", "-l", "-u", "-p", "-b", "-r", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "REST bind address")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC health bind address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token validity (in minutes)")
	origins := fs.String("o", strings.Join(config.AllowedOrigins, ","), "CORS origins")
	fs.StringVar(&config.LogFile, "l", config.LogFile, "log file")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "r", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
	config.AllowedOrigins = splitOrigins(*origins)
	return nil
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
