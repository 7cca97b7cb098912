package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/schema"
)

func main() {

	dsn := flag.String("d", os.Getenv("DATABASE_URL"), "Postgres DSN")
	level := flag.String("l", "info", "log level")
	flag.Parse()

	log := logging.New(*level, os.Stderr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if *dsn == "" {
		log.Error(ctx, "no database: pass -d or set DATABASE_URL")
		os.Exit(2)
	}

	db, err := schema.Open(ctx, *dsn)
	if err != nil {
		log.Error(ctx, "connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := schema.RunMigrations(ctx, db); err != nil {
		log.Error(ctx, "migration failed", "error", err)
		os.Exit(1)
	}
	log.Info(ctx, "schema is up to date")

}
