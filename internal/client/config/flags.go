package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/notekeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-u string   backend project URL
//	-k string   backend anon key
//	-b string   backend kind
//	-l string   log level
//	-s string   local state database path
//	-d string   Postgres DSN for direct table access
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-u", "-k", "-b", "-l", "-s", "-d"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.SupabaseURL, "u", cfg.SupabaseURL, "backend project URL")
	fs.StringVar(&cfg.AnonKey, "k", cfg.AnonKey, "backend anon key")
	fs.StringVar(&cfg.Backend, "b", cfg.Backend, "backend kind: rest or memory")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.StatePath, "s", cfg.StatePath, "local state database path")
	fs.StringVar(&cfg.DatabaseURL, "d", cfg.DatabaseURL, "Postgres DSN for direct table access")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
