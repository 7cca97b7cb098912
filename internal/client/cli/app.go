package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/services"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Deps are the services the App drives. History, Sessions and Backup may be
// nil.
type Deps struct {
	Auth     services.AuthService
	Entries  services.EntryService
	History  services.LoginHistoryService
	Sessions services.LoginSessionService
	Backup   services.BackupService
	Logger   logging.Logger
	// PingInterval enables the online status watcher when positive.
	PingInterval time.Duration
}

type App struct {
	auth     services.AuthService
	entries  services.EntryService
	history  services.LoginHistoryService
	sessions services.LoginSessionService
	backup   services.BackupService
	log      logging.Logger

	pingInterval time.Duration
	reader       *bufio.Reader
	out          io.Writer

	mu   sync.Mutex
	Mode Mode

	// pending holds the content of the last failed save.
	pending        string
	entriesStarted bool
}

// NewApp builds an App reading commands from reader and writing to out.
// reader must be the same one given to NewNotice so notices and commands do
// not compete for buffered input.
func NewApp(d Deps, reader *bufio.Reader, out io.Writer) *App {
	if d.Logger == nil {
		d.Logger = logging.NewNop()
	}
	return &App{
		auth:         d.Auth,
		entries:      d.Entries,
		history:      d.History,
		sessions:     d.Sessions,
		backup:       d.Backup,
		log:          d.Logger,
		pingInterval: d.PingInterval,
		reader:       reader,
		out:          out,
	}
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.Mode != mode
	a.Mode = mode
	a.mu.Unlock()

	if changed {
		a.log.Info(context.Background(), "connection mode changed", "mode", mode)
	}
}

func (a *App) mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Mode
}

func (a *App) isLoggedIn() bool {
	return a.auth.State().User != nil
}

func (a *App) getStatus() string {
	s := ""
	if u := a.auth.State().User; u != nil {
		s = u.Email + " "
	}
	s += string(a.mode())
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Run starts the auth lifecycle, waits until it is ready and serves the REPL
// until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.auth.Start(ctx)
	defer a.auth.Close()

	fmt.Fprintln(a.out, "Connecting...")
	select {
	case <-a.auth.Ready():
	case <-ctx.Done():
		return
	}

	if a.isLoggedIn() {
		a.loadEntries(ctx)
	}
	if a.pingInterval > 0 {
		go a.StartOnlineStatusWatcher(ctx, a.pingInterval)
	}

	fmt.Fprintln(a.out, "Welcome to notekeeper (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

// checkOnline pings the backend once and updates Mode.
func (a *App) checkOnline(ctx context.Context) {
	if err := a.auth.Ping(ctx); err != nil {
		a.log.Debug(ctx, "ping failed", "error", err)
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)

	if a.isLoggedIn() {
		if err := a.auth.TouchLoginSession(ctx); err != nil {
			a.log.Debug(ctx, "touch login session failed", "error", err)
		}
	}
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// loadEntries runs the first fetch after sign-in, a refetch afterwards.
func (a *App) loadEntries(ctx context.Context) {
	a.mu.Lock()
	started := a.entriesStarted
	a.entriesStarted = true
	a.mu.Unlock()

	if !started {
		a.entries.Start(ctx)
		return
	}
	a.entries.Refetch(ctx)
}
