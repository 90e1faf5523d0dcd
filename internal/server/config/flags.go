package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/newsletter/internal/flagx"
)

// parseFlags overlays the short command-line flags:
//
//	-a string   HTTP bind address (e.g. ":8000")
//	-g string   gRPC health bind address
//	-d string   PostgreSQL DSN
//	-b string   public base URL used in confirmation links
//	-m string   session mode: session | stateless
//	-q string   delivery mode: inline | queue
//	-r string   Redis URL for the login throttle and delivery queue
//	-w int      password hashing workers
//	-l string   log level
//
// Secrets are not accepted as flags; use the environment or the config
// file. args is filtered with flagx.FilterArgs first so flags owned by
// other components are ignored.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-b", "-m", "-q", "-r", "-w", "-l"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.BaseURL, "b", config.BaseURL, "public base URL")
	fs.StringVar(&config.SessionMode, "m", config.SessionMode, "session mode")
	fs.StringVar(&config.DeliveryMode, "q", config.DeliveryMode, "delivery mode")
	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "redis URL")
	fs.IntVar(&config.HashWorkers, "w", config.HashWorkers, "password hashing workers")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	return fs.Parse(args)
}
