package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/asyncx"
	"github.com/dmitrijs2005/notekeeper/internal/client/backend"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

const (
	DefaultReadyTimeout = 5 * time.Second
	DefaultPingTimeout  = 5 * time.Second
)

// AuthState is a snapshot of the signed-in user.
type AuthState struct {
	User    *backend.User
	Profile *models.Profile
	// Ready is false until the initial session lookup settles or the ready
	// timeout elapses.
	Ready bool
}

// AuthService tracks the current session.
//
// Contract:
//   - Start: begin a lifecycle; Ready flips at most once per Start/Close.
//   - Close: end the lifecycle; pending callbacks become no-ops.
//   - SignUp/SignIn/SignOut: delegate to the backend and return its error.
//     Attempts are recorded to login history best-effort.
//   - Ping: probe the backend with a short deadline.
type AuthService interface {
	Start(ctx context.Context)
	Close()
	State() AuthState
	// Ready is closed when State().Ready becomes true. A lifecycle closed
	// before that leaves its channel open, so waiters also select on their
	// context.
	Ready() <-chan struct{}

	SignUp(ctx context.Context, email, password string) (*backend.AuthResponse, error)
	SignIn(ctx context.Context, email, password string) (*backend.AuthResponse, error)
	SignOut(ctx context.Context) error
	Ping(ctx context.Context) error
	// TouchLoginSession bumps the last activity of the login session record
	// opened at sign-in. It is a no-op when there is none.
	TouchLoginSession(ctx context.Context) error
}

// LoginTokenStore remembers the token of the login session record created
// at sign-in so sign-out can deactivate it, across process restarts.
type LoginTokenStore interface {
	LoginSessionToken(ctx context.Context) (string, error)
	SetLoginSessionToken(ctx context.Context, token string) error
}

// AuthOptions configures NewAuthService. Zero values select defaults; nil
// History and Sessions disable login telemetry.
type AuthOptions struct {
	ReadyTimeout time.Duration
	PingTimeout  time.Duration
	UserAgent    string

	History  LoginHistoryService
	Sessions LoginSessionService
	Tokens   LoginTokenStore
	Logger   logging.Logger
}

type authService struct {
	auth   backend.Auth
	tables backend.Tables

	readyTimeout time.Duration
	pingTimeout  time.Duration
	userAgent    string
	history      LoginHistoryService
	sessions     LoginSessionService
	tokens       LoginTokenStore
	log          logging.Logger

	mu     sync.Mutex
	state  AuthState
	ready  chan struct{}
	alive  bool
	gen    uint64
	cancel context.CancelFunc
	timer  *time.Timer
	sub    backend.Subscription
	// signingUp counts sign-ups in flight; their SIGNED_IN events are ignored.
	signingUp int
}

// NewAuthService builds an AuthService over auth; profiles are read from
// tables.
func NewAuthService(auth backend.Auth, tables backend.Tables, opts AuthOptions) AuthService {
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = DefaultPingTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Tokens == nil {
		opts.Tokens = &memTokenStore{}
	}

	return &authService{
		auth:         auth,
		tables:       tables,
		readyTimeout: opts.ReadyTimeout,
		pingTimeout:  opts.PingTimeout,
		userAgent:    opts.UserAgent,
		history:      opts.History,
		sessions:     opts.Sessions,
		tokens:       opts.Tokens,
		log:          opts.Logger.With("service", "auth"),
		ready:        make(chan struct{}),
	}
}

func (s *authService) Start(ctx context.Context) {
	s.mu.Lock()
	if s.alive {
		s.mu.Unlock()
		return
	}
	s.alive = true
	s.gen++
	gen := s.gen
	s.state = AuthState{}
	s.ready = make(chan struct{})

	lctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.timer = time.AfterFunc(s.readyTimeout, func() {
		if s.markReady(gen) {
			s.log.Warn(lctx, "session lookup still pending, ready after timeout", "timeout", s.readyTimeout)
		}
	})
	s.mu.Unlock()

	sub := s.auth.OnAuthStateChange(func(ev backend.AuthEvent, sess *backend.Session) {
		s.onAuthChange(lctx, gen, ev, sess)
	})

	s.mu.Lock()
	if !s.current(gen) {
		s.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	s.sub = sub
	s.mu.Unlock()

	go s.initialize(lctx, gen)
}

func (s *authService) Close() {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	s.alive = false
	s.state = AuthState{}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

// current reports whether gen is the live lifecycle. Callers hold mu.
func (s *authService) current(gen uint64) bool {
	return s.alive && s.gen == gen
}

func (s *authService) State() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *authService) Ready() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// markReady flips Ready once per lifecycle and reports whether it did.
func (s *authService) markReady(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(gen) || s.state.Ready {
		return false
	}
	s.state.Ready = true
	close(s.ready)
	if s.timer != nil {
		s.timer.Stop()
	}
	return true
}

// setUser records u (nil clears user and profile) and reports whether the
// lifecycle is still live.
func (s *authService) setUser(gen uint64, u *backend.User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(gen) {
		return false
	}
	if u == nil {
		s.state.User = nil
		s.state.Profile = nil
		return true
	}
	if s.state.User == nil || s.state.User.ID != u.ID {
		s.state.Profile = nil
	}
	cp := *u
	s.state.User = &cp
	return true
}

func (s *authService) initialize(ctx context.Context, gen uint64) {
	sess, err := asyncx.Race(ctx, 0, nil, s.auth.GetSession)
	if err != nil {
		s.log.Error(ctx, "session lookup failed", "error", err)
		s.setUser(gen, nil)
		s.markReady(gen)
		return
	}

	if sess != nil && sess.User != nil {
		if s.setUser(gen, sess.User) {
			go s.fetchProfile(ctx, gen, sess.User.ID)
			go s.checkLoginSession(ctx, sess.User.ID)
		}
	} else {
		s.setUser(gen, nil)
	}

	if s.markReady(gen) {
		s.log.Debug(ctx, "session lookup complete", "signed_in", sess != nil && sess.User != nil)
	}
}

func (s *authService) onAuthChange(ctx context.Context, gen uint64, ev backend.AuthEvent, sess *backend.Session) {
	s.log.Debug(ctx, "auth state changed", "event", ev)

	s.mu.Lock()
	skip := s.signingUp > 0 && ev == backend.EventSignedIn
	s.mu.Unlock()
	if skip {
		return
	}

	if sess == nil || sess.User == nil {
		s.setUser(gen, nil)
		return
	}
	if s.setUser(gen, sess.User) {
		go s.fetchProfile(ctx, gen, sess.User.ID)
	}
}

// fetchProfile loads the profile of userID; failures leave it nil.
func (s *authService) fetchProfile(ctx context.Context, gen uint64, userID string) {
	p, err := asyncx.Race(ctx, 0, nil, func(ctx context.Context) (*models.Profile, error) {
		var p models.Profile
		q := backend.Query{}.Eq("id", userID).One()
		if err := s.tables.Select(ctx, models.ProfilesTable, q, &p); err != nil {
			return nil, err
		}
		return &p, nil
	})

	switch {
	case errors.Is(err, backend.ErrNotFound):
		s.log.Info(ctx, "profile not found, normal for new users", "user_id", userID)
	case err != nil:
		s.log.Error(ctx, "fetch profile failed", "user_id", userID, "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(gen) || s.state.User == nil || s.state.User.ID != userID {
		return
	}
	s.state.Profile = p
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (s *authService) SignUp(ctx context.Context, email, password string) (*backend.AuthResponse, error) {
	s.log.Info(ctx, "sign up", "email", email)

	s.mu.Lock()
	s.signingUp++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.signingUp--
		s.mu.Unlock()
	}()

	resp, err := asyncx.Race(ctx, 0, nil, func(ctx context.Context) (*backend.AuthResponse, error) {
		return s.auth.SignUp(ctx, backend.Credentials{Email: email, Password: password})
	})
	s.recordAttempt(ctx, email, models.LoginTypeSignUp, resp, err)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	if resp != nil && resp.Session != nil {
		s.endSignUpSession(ctx)
	}
	return resp, nil
}

// endSignUpSession drops the session a backend without email confirmation
// opens on sign-up; the user signs in explicitly afterwards.
func (s *authService) endSignUpSession(ctx context.Context) {
	_, err := asyncx.Race(ctx, 0, nil, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.auth.SignOut(ctx)
	})
	if err != nil {
		s.log.Warn(ctx, "end sign-up session failed", "error", err)
	}

	s.mu.Lock()
	s.state.User = nil
	s.state.Profile = nil
	s.mu.Unlock()
}

func (s *authService) SignIn(ctx context.Context, email, password string) (*backend.AuthResponse, error) {
	s.log.Info(ctx, "sign in", "email", email)

	resp, err := asyncx.Race(ctx, 0, nil, func(ctx context.Context) (*backend.AuthResponse, error) {
		return s.auth.SignInWithPassword(ctx, backend.Credentials{Email: email, Password: password})
	})
	s.recordAttempt(ctx, email, models.LoginTypeSignIn, resp, err)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	if resp != nil && resp.User != nil {
		s.openLoginSession(ctx, resp.User.ID)
	}
	return resp, nil
}

func (s *authService) recordAttempt(ctx context.Context, email string, kind models.LoginType, resp *backend.AuthResponse, err error) {
	if s.history == nil {
		return
	}
	var userID string
	if resp != nil && resp.User != nil {
		userID = resp.User.ID
	}
	s.history.Record(ctx, email, kind, err == nil, userID, errText(err))
}

// openLoginSession creates the login session record for a fresh sign-in.
func (s *authService) openLoginSession(ctx context.Context, userID string) {
	if s.sessions == nil {
		return
	}
	token := GenerateSessionToken()
	if _, err := s.sessions.Create(ctx, userID, token, s.userAgent); err != nil {
		s.log.Warn(ctx, "create login session failed", "error", err)
		return
	}
	if err := s.tokens.SetLoginSessionToken(ctx, token); err != nil {
		s.log.Warn(ctx, "remember login session failed", "error", err)
	}
}

// closeLoginSession deactivates the current login session record. It runs
// before the backend sign-out, while the session still authorizes writes.
func (s *authService) closeLoginSession(ctx context.Context) {
	if s.sessions == nil {
		return
	}
	user := s.State().User
	if user == nil {
		return
	}
	token, err := s.tokens.LoginSessionToken(ctx)
	if err != nil {
		s.log.Warn(ctx, "read login session token failed", "error", err)
		return
	}
	if token == "" {
		return
	}
	if err := s.sessions.Deactivate(ctx, token, user.ID); err != nil {
		s.log.Warn(ctx, "deactivate login session failed", "error", err)
		return
	}
	if err := s.tokens.SetLoginSessionToken(ctx, ""); err != nil {
		s.log.Warn(ctx, "forget login session failed", "error", err)
	}
}

// checkLoginSession forgets a remembered login session token that no longer
// names an active session of userID.
func (s *authService) checkLoginSession(ctx context.Context, userID string) {
	if s.sessions == nil {
		return
	}
	token, err := s.tokens.LoginSessionToken(ctx)
	if err != nil {
		s.log.Warn(ctx, "read login session token failed", "error", err)
		return
	}
	if token == "" {
		return
	}
	ls, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		s.log.Warn(ctx, "look up login session failed", "error", err)
		return
	}
	if ls != nil && ls.UserID == userID {
		return
	}
	s.log.Info(ctx, "forgetting stale login session", "user_id", userID)
	if err := s.tokens.SetLoginSessionToken(ctx, ""); err != nil {
		s.log.Warn(ctx, "forget login session failed", "error", err)
	}
}

func (s *authService) TouchLoginSession(ctx context.Context) error {
	if s.sessions == nil || s.State().User == nil {
		return nil
	}
	token, err := s.tokens.LoginSessionToken(ctx)
	if err != nil {
		return fmt.Errorf("touch login session: %w", err)
	}
	if token == "" {
		return nil
	}
	return s.sessions.UpdateLastActivity(ctx, token)
}

func (s *authService) SignOut(ctx context.Context) error {
	s.log.Info(ctx, "sign out")
	s.closeLoginSession(ctx)

	_, err := asyncx.Race(ctx, 0, nil, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.auth.SignOut(ctx)
	})
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}

	s.mu.Lock()
	s.state.User = nil
	s.state.Profile = nil
	s.mu.Unlock()
	return nil
}

func (s *authService) Ping(ctx context.Context) error {
	_, err := asyncx.Race(ctx, s.pingTimeout, asyncx.NewTimeoutError("connection check timed out"),
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.auth.Health(ctx)
		})
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

type memTokenStore struct {
	mu    sync.Mutex
	token string
}

func (m *memTokenStore) LoginSessionToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memTokenStore) SetLoginSessionToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}
