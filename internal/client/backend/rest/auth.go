package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/notekeeper/internal/client/backend"
)

// tokenResponse is the GoTrue session payload. Sign-up without an
// immediate session returns a bare user instead, which decodes into the
// embedded user fields.
type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	User         *backend.User `json:"user"`

	ID    string `json:"id"`
	Email string `json:"email"`
}

func (c *Client) toSession(tr *tokenResponse) (*backend.Session, error) {
	if tr.AccessToken == "" {
		return nil, nil
	}

	s := &backend.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		ExpiresAt:    tr.ExpiresAt,
		User:         tr.User,
	}
	if s.ExpiresAt == 0 && tr.ExpiresIn > 0 {
		s.ExpiresAt = c.now().Unix() + tr.ExpiresIn
	}

	if s.User == nil || s.ExpiresAt == 0 {
		u, exp, err := userFromToken(s.AccessToken)
		if err != nil {
			return nil, err
		}
		if s.User == nil {
			s.User = u
		}
		if s.ExpiresAt == 0 {
			s.ExpiresAt = exp
		}
	}
	return s, nil
}

func (tr *tokenResponse) user() *backend.User {
	if tr.User != nil {
		return tr.User
	}
	if tr.ID != "" {
		return &backend.User{ID: tr.ID, Email: tr.Email}
	}
	return nil
}

type subscription struct {
	c  *Client
	id uint64
}

func (s *subscription) Unsubscribe() {
	s.c.mu.Lock()
	delete(s.c.listeners, s.id)
	s.c.mu.Unlock()
}

// OnAuthStateChange registers fn. Listeners run synchronously on the
// goroutine that changed the session.
func (c *Client) OnAuthStateChange(fn backend.AuthListener) backend.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	c.listeners[c.nextID] = fn
	return &subscription{c: c, id: c.nextID}
}

func (c *Client) notify(event backend.AuthEvent, s *backend.Session) {
	c.mu.Lock()
	fns := make([]backend.AuthListener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(event, s)
	}
}

// setSession replaces the in-memory session and mirrors it to the store.
// Store failures are logged; the in-memory session stays authoritative.
func (c *Client) setSession(ctx context.Context, s *backend.Session) {
	c.mu.Lock()
	c.session = s
	c.loaded = true
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	var err error
	if s == nil {
		err = c.store.ClearSession(ctx)
	} else {
		err = c.store.SaveSession(ctx, s)
	}
	if err != nil {
		c.log.Warn(ctx, "persist session failed", "error", err)
	}
}

// currentSession returns the in-memory session, loading it from the store
// on first use.
func (c *Client) currentSession(ctx context.Context) *backend.Session {
	c.mu.Lock()
	if c.loaded || c.store == nil {
		c.loaded = true
		s := c.session
		c.mu.Unlock()
		return s
	}
	c.mu.Unlock()

	s, err := c.store.LoadSession(ctx)
	if err != nil {
		c.log.Warn(ctx, "load persisted session failed", "error", err)
		s = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		c.session = s
		c.loaded = true
	}
	return c.session
}

// GetSession returns the current session, refreshing an expired access
// token first. A rejected refresh token signs the user out.
func (c *Client) GetSession(ctx context.Context) (*backend.Session, error) {
	s := c.currentSession(ctx)
	if s == nil || !s.Expired(c.now(), refreshLeeway) {
		return s, nil
	}

	if s.RefreshToken == "" {
		c.setSession(ctx, nil)
		c.notify(backend.EventSignedOut, nil)
		return nil, nil
	}

	refreshed, err := c.refresh(ctx, s.RefreshToken)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) || isInvalidGrant(err) {
			c.setSession(ctx, nil)
			c.notify(backend.EventSignedOut, nil)
		}
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	c.setSession(ctx, refreshed)
	c.notify(backend.EventTokenRefreshed, refreshed)
	return refreshed, nil
}

func isInvalidGrant(err error) bool {
	var apiErr *backend.APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*backend.Session, error) {
	var tr tokenResponse
	err := c.retry(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodPost, authPath+"/token",
			url.Values{"grant_type": {"refresh_token"}},
			map[string]string{"refresh_token": refreshToken}, "")
		if err != nil {
			return err
		}
		return c.do(req, &tr)
	})
	if err != nil {
		return nil, err
	}
	s, err := c.toSession(&tr)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.New("refresh returned no session")
	}
	return s, nil
}

// SignUp registers a new account. The response carries a session only when
// the backend does not require email confirmation.
func (c *Client) SignUp(ctx context.Context, cr backend.Credentials) (*backend.AuthResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, authPath+"/signup", nil, cr, "")
	if err != nil {
		return nil, err
	}

	var tr tokenResponse
	if err := c.do(req, &tr); err != nil {
		return nil, err
	}

	return c.finishAuth(ctx, &tr)
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, cr backend.Credentials) (*backend.AuthResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, authPath+"/token",
		url.Values{"grant_type": {"password"}}, cr, "")
	if err != nil {
		return nil, err
	}

	var tr tokenResponse
	if err := c.do(req, &tr); err != nil {
		return nil, err
	}

	return c.finishAuth(ctx, &tr)
}

func (c *Client) finishAuth(ctx context.Context, tr *tokenResponse) (*backend.AuthResponse, error) {
	s, err := c.toSession(tr)
	if err != nil {
		return nil, err
	}

	resp := &backend.AuthResponse{User: tr.user(), Session: s}
	if s == nil {
		return resp, nil
	}
	if resp.User == nil {
		resp.User = s.User
	}

	c.setSession(ctx, s)
	c.notify(backend.EventSignedIn, s)
	return resp, nil
}

// SignOut revokes the session server-side, then clears it locally. An
// already-invalid token (401, 403 or 404) is not an error; any other server
// failure is returned and the local session is kept.
func (c *Client) SignOut(ctx context.Context) error {
	s := c.currentSession(ctx)

	var remoteErr error
	if s != nil && s.AccessToken != "" {
		req, err := c.newRequest(ctx, http.MethodPost, authPath+"/logout", nil, nil, s.AccessToken)
		if err != nil {
			return err
		}
		remoteErr = c.do(req, nil)
		if errors.Is(remoteErr, backend.ErrUnauthorized) || isNotFoundStatus(remoteErr) {
			remoteErr = nil
		}
	}

	if remoteErr != nil {
		return fmt.Errorf("sign out: %w", remoteErr)
	}

	c.setSession(ctx, nil)
	c.notify(backend.EventSignedOut, nil)
	return nil
}

func isNotFoundStatus(err error) bool {
	var apiErr *backend.APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type healthResponse struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// Health probes the auth service.
func (c *Client) Health(ctx context.Context) error {
	return c.retry(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, authPath+"/health", nil, nil, "")
		if err != nil {
			return err
		}
		var hr healthResponse
		return c.do(req, &hr)
	})
}

// bearer returns the access token for table requests, or "" to fall back
// to the anon key.
func (c *Client) bearer(ctx context.Context) string {
	s, err := c.GetSession(ctx)
	if err != nil {
		c.log.Debug(ctx, "no usable session for request", "error", err)
		return ""
	}
	if s == nil {
		return ""
	}
	return s.AccessToken
}
