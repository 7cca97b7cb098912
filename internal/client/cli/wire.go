package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/backend"
	"github.com/dmitrijs2005/notekeeper/internal/client/backend/memory"
	"github.com/dmitrijs2005/notekeeper/internal/client/backend/postgres"
	"github.com/dmitrijs2005/notekeeper/internal/client/backend/rest"
	"github.com/dmitrijs2005/notekeeper/internal/client/config"
	"github.com/dmitrijs2005/notekeeper/internal/client/localdb"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/notekeeper/internal/client/services"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

const pingInterval = 30 * time.Second

// Setup wires an App from cfg: local state database, backend client and
// services. The returned func releases what Setup opened.
func Setup(ctx context.Context, cfg *config.Config, log logging.Logger, stdin io.Reader, stdout io.Writer) (*App, func(), error) {
	db, err := localdb.Open(ctx, cfg.StatePath)
	if err != nil {
		return nil, nil, err
	}
	closers := []func(){func() { _ = db.Close() }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	store := metadata.NewSessionStore(db)

	var (
		auth   backend.Auth
		tables backend.Tables
	)
	switch cfg.Backend {
	case config.BackendMemory:
		m := memory.New()
		auth, tables = m, m
		log.Warn(ctx, "using in-memory backend, nothing is persisted")
	default:
		c, err := rest.New(rest.Config{
			URL:        cfg.SupabaseURL,
			AnonKey:    cfg.AnonKey,
			ClientInfo: common.ClientInfo,
			Timeout:    cfg.HTTPTimeout,
			MaxRetries: cfg.MaxRetries,
			Store:      store,
			Logger:     log,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("backend client: %w", err)
		}
		auth, tables = c, c
	}

	if cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		tables = postgres.New(pool)
		log.Info(ctx, "tables served from postgres")
	}

	reader := bufio.NewReader(stdin)

	history := services.NewLoginHistoryService(tables, common.DefaultUserAgent, log)
	sessions := services.NewLoginSessionService(tables, log)
	authSvc := services.NewAuthService(auth, tables, services.AuthOptions{
		ReadyTimeout: cfg.ReadyTimeout,
		PingTimeout:  cfg.PingTimeout,
		UserAgent:    common.DefaultUserAgent,
		History:      history,
		Sessions:     sessions,
		Tokens:       store,
		Logger:       log,
	})
	entries := services.NewEntryService(tables, services.EntryOptions{
		FetchTimeout:  cfg.FetchTimeout,
		SaveTimeout:   cfg.SaveTimeout,
		DeleteTimeout: cfg.DeleteTimeout,
		Notifier:      NewNotice(reader, stdout),
		Logger:        log,
	})
	backup := services.NewBackupService(services.BackupConfig(cfg.Backup), log)

	app := NewApp(Deps{
		Auth:         authSvc,
		Entries:      entries,
		History:      history,
		Sessions:     sessions,
		Backup:       backup,
		Logger:       log,
		PingInterval: pingInterval,
	}, reader, stdout)

	return app, cleanup, nil
}
