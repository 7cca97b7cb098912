package backend

import (
	"context"
	"time"
)

// AuthEvent names the auth state transition delivered to listeners.
type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// User is the authenticated identity as reported by the auth service.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Session is an authenticated session. ExpiresAt is a unix timestamp in
// seconds, as issued by the auth service.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresAt    int64  `json:"expires_at"`
	User         *User  `json:"user"`
}

// Expired reports whether the access token is expired at now, treating
// tokens that expire within leeway as already expired.
func (s *Session) Expired(now time.Time, leeway time.Duration) bool {
	if s == nil || s.ExpiresAt == 0 {
		return false
	}
	return !now.Add(leeway).Before(time.Unix(s.ExpiresAt, 0))
}

// Credentials is an email/password pair.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by sign-up and sign-in. Session is nil when the
// service requires email confirmation before the first sign-in.
type AuthResponse struct {
	User    *User
	Session *Session
}

// Subscription is returned by OnAuthStateChange.
type Subscription interface {
	Unsubscribe()
}

// AuthListener receives auth state changes. session is nil on sign-out.
type AuthListener func(event AuthEvent, session *Session)

// Auth is the managed authentication surface.
type Auth interface {
	// GetSession returns the current session, or nil when signed out.
	GetSession(ctx context.Context) (*Session, error)
	// OnAuthStateChange registers fn until the subscription is released.
	// Notifications may arrive on any goroutine.
	OnAuthStateChange(fn AuthListener) Subscription
	SignUp(ctx context.Context, c Credentials) (*AuthResponse, error)
	SignInWithPassword(ctx context.Context, c Credentials) (*AuthResponse, error)
	SignOut(ctx context.Context) error
	// Health probes the auth service.
	Health(ctx context.Context) error
}

// Tables is the managed table surface. Rows are exchanged as JSON-shaped Go
// values: dst must be a pointer to a slice, or to a struct when q.Single is
// set.
type Tables interface {
	Select(ctx context.Context, table string, q Query, dst any) error
	// Insert stores row and, when dst is not nil, decodes the stored row
	// into it.
	Insert(ctx context.Context, table string, row any, dst any) error
	Update(ctx context.Context, table string, q Query, patch any) error
	Delete(ctx context.Context, table string, q Query) error
}

// Backend is a full client: managed auth plus managed tables.
type Backend interface {
	Auth
	Tables
}
