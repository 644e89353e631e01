package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophmarks/internal/flagx"
)

// parseFlags overlays cfg with the short flags listed in the package doc.
// os.Args is filtered first so flags owned by other components are ignored.
// It panics on malformed values.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-u", "-s", "-p", "-r", "-l", "-f", "-a", "-k", "-t", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.AuthURL, "u", cfg.AuthURL, "auth endpoint base URL")
	fs.StringVar(&cfg.AuthAPIKey, "k", cfg.AuthAPIKey, "auth endpoint api key")
	fs.StringVar(&cfg.JWTSecret, "s", cfg.JWTSecret, "access token secret")
	fs.StringVar(&cfg.Provider, "p", cfg.Provider, "default OAuth provider")
	fs.StringVar(&cfg.CallbackAddr, "r", cfg.CallbackAddr, "OAuth callback listen address")
	fs.StringVar(&cfg.LocalDBPath, "l", cfg.LocalDBPath, "local session database path")
	fs.StringVar(&cfg.FeedDriver, "f", cfg.FeedDriver, "change feed driver (postgres|redis)")
	fs.StringVar(&cfg.RedisAddr, "a", cfg.RedisAddr, "redis address")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.LogLevel, "v", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
		}
	})
}
