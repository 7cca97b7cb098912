// Package memory is an in-process backend.Backend. It backs the CLI's demo
// mode and the service tests; faults (latency, errors, panics) can be
// injected per operation.
package memory

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/notekeeper/internal/client/backend"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
)

// Op names an injectable backend operation.
type Op string

const (
	OpGetSession Op = "get_session"
	OpSignUp     Op = "sign_up"
	OpSignIn     Op = "sign_in"
	OpSignOut    Op = "sign_out"
	OpHealth     Op = "health"
	OpSelect     Op = "select"
	OpInsert     Op = "insert"
	OpUpdate     Op = "update"
	OpDelete     Op = "delete"
)

// Fault alters one operation. Delay is applied first (ignoring the caller's
// context, like an unresponsive server); then Panic, then Err.
type Fault struct {
	Delay time.Duration
	// Block, when set, holds the call until it is closed.
	Block <-chan struct{}
	Err   error
	Panic any
}

const tokenTTL = time.Hour

type account struct {
	user         backend.User
	passwordHash string
}

// Backend is safe for concurrent use.
type Backend struct {
	mu sync.Mutex

	accounts  map[string]*account
	session   *backend.Session
	listeners map[uint64]backend.AuthListener
	nextSub   uint64

	tables map[string][]row
	faults map[Op]Fault
	calls  map[Op]int

	secret []byte
	now    func() time.Time

	// RequireConfirmation makes SignUp return a user without a session.
	RequireConfirmation bool
}

var _ backend.Backend = (*Backend)(nil)

// New returns an empty backend.
func New() *Backend {
	secret, err := common.MakeRandHexString(32)
	if err != nil {
		secret = uuid.NewString()
	}
	return &Backend{
		accounts:  make(map[string]*account),
		listeners: make(map[uint64]backend.AuthListener),
		tables:    make(map[string][]row),
		faults:    make(map[Op]Fault),
		calls:     make(map[Op]int),
		secret:    []byte(secret),
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (b *Backend) SetClock(now func() time.Time) {
	b.mu.Lock()
	b.now = now
	b.mu.Unlock()
}

// SetFault installs f for op, replacing any previous fault.
func (b *Backend) SetFault(op Op, f Fault) {
	b.mu.Lock()
	b.faults[op] = f
	b.mu.Unlock()
}

// ClearFaults removes every injected fault.
func (b *Backend) ClearFaults() {
	b.mu.Lock()
	b.faults = make(map[Op]Fault)
	b.mu.Unlock()
}

// Calls returns how many times op was invoked.
func (b *Backend) Calls(op Op) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// enter counts the call and applies its fault.
func (b *Backend) enter(op Op) error {
	b.mu.Lock()
	b.calls[op]++
	f := b.faults[op]
	b.mu.Unlock()

	if f.Delay > 0 {
		time.Sleep(f.Delay)
	}
	if f.Block != nil {
		<-f.Block
	}
	if f.Panic != nil {
		panic(f.Panic)
	}
	return f.Err
}

type subscription struct {
	b  *Backend
	id uint64
}

func (s *subscription) Unsubscribe() {
	s.b.mu.Lock()
	delete(s.b.listeners, s.id)
	s.b.mu.Unlock()
}

func (b *Backend) OnAuthStateChange(fn backend.AuthListener) backend.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSub++
	b.listeners[b.nextSub] = fn
	return &subscription{b: b, id: b.nextSub}
}

func (b *Backend) notify(ev backend.AuthEvent, s *backend.Session) {
	b.mu.Lock()
	fns := make([]backend.AuthListener, 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ev, s)
	}
}

// Emit delivers an auth event to listeners as if the backend had produced
// it, and installs s as the current session.
func (b *Backend) Emit(ev backend.AuthEvent, s *backend.Session) {
	b.mu.Lock()
	b.session = s
	b.mu.Unlock()
	b.notify(ev, s)
}

func (b *Backend) GetSession(ctx context.Context) (*backend.Session, error) {
	if err := b.enter(OpGetSession); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session.Expired(b.now(), 0) {
		b.session = nil
	}
	return b.session, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (b *Backend) SignUp(ctx context.Context, c backend.Credentials) (*backend.AuthResponse, error) {
	if err := b.enter(OpSignUp); err != nil {
		return nil, err
	}

	email := normalizeEmail(c.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, &backend.APIError{Status: http.StatusBadRequest, Code: "validation_failed", Message: "Unable to validate email address: invalid format"}
	}
	if len(c.Password) < 6 {
		return nil, &backend.APIError{Status: http.StatusUnprocessableEntity, Code: "weak_password", Message: "Password should be at least 6 characters."}
	}

	hash, err := cryptox.HashPassword(c.Password)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	if _, ok := b.accounts[email]; ok {
		b.mu.Unlock()
		return nil, &backend.APIError{Status: http.StatusUnprocessableEntity, Code: "user_already_exists", Message: "User already registered"}
	}
	acc := &account{
		user:         backend.User{ID: uuid.NewString(), Email: email, CreatedAt: b.now().UTC()},
		passwordHash: hash,
	}
	b.accounts[email] = acc
	confirm := b.RequireConfirmation
	b.mu.Unlock()

	user := acc.user
	if confirm {
		return &backend.AuthResponse{User: &user}, nil
	}
	return b.startSession(&user)
}

func (b *Backend) SignInWithPassword(ctx context.Context, c backend.Credentials) (*backend.AuthResponse, error) {
	if err := b.enter(OpSignIn); err != nil {
		return nil, err
	}

	b.mu.Lock()
	acc, ok := b.accounts[normalizeEmail(c.Email)]
	b.mu.Unlock()

	invalid := &backend.APIError{Status: http.StatusBadRequest, Code: "invalid_credentials", Message: "Invalid login credentials"}
	if !ok {
		return nil, invalid
	}
	match, err := cryptox.VerifyPassword(acc.passwordHash, c.Password)
	if err != nil {
		return nil, err
	}
	if !match {
		return nil, invalid
	}

	user := acc.user
	return b.startSession(&user)
}

func (b *Backend) startSession(u *backend.User) (*backend.AuthResponse, error) {
	b.mu.Lock()
	now := b.now()
	b.mu.Unlock()

	exp := now.Add(tokenTTL)
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"role":  "authenticated",
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		return nil, err
	}
	refresh, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, err
	}

	s := &backend.Session{
		AccessToken:  token,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresAt:    exp.Unix(),
		User:         u,
	}

	b.mu.Lock()
	b.session = s
	b.mu.Unlock()

	b.notify(backend.EventSignedIn, s)
	return &backend.AuthResponse{User: u, Session: s}, nil
}

func (b *Backend) SignOut(ctx context.Context) error {
	if err := b.enter(OpSignOut); err != nil {
		return err
	}
	b.mu.Lock()
	b.session = nil
	b.mu.Unlock()

	b.notify(backend.EventSignedOut, nil)
	return nil
}

func (b *Backend) Health(ctx context.Context) error {
	return b.enter(OpHealth)
}

// UserID returns the id of the signed-in user, or "".
func (b *Backend) UserID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil || b.session.User == nil {
		return ""
	}
	return b.session.User.ID
}

