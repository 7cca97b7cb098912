package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/client/backend"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
)

const (
	KeySession      = "auth.session"
	KeyLoginSession = "auth.login_session_token"
)

// SessionStore persists the backend session and the token of the login
// session record created for it. Both are written and cleared together.
type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) LoadSession(ctx context.Context) (*backend.Session, error) {
	raw, err := NewSQLiteRepository(s.db).Get(ctx, KeySession)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var sess backend.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode persisted session: %w", err)
	}
	return &sess, nil
}

// SaveSession stores sess. A session for a different user drops the stale
// login session token in the same transaction.
func (s *SessionStore) SaveSession(ctx context.Context, sess *backend.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	return dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)

		prev, err := repo.Get(ctx, KeySession)
		if err != nil {
			return err
		}
		if prev != nil && userID(prev) != userIDOf(sess) {
			if err := repo.Delete(ctx, KeyLoginSession); err != nil {
				return err
			}
		}
		return repo.Set(ctx, KeySession, raw)
	})
}

func (s *SessionStore) ClearSession(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, KeySession); err != nil {
			return err
		}
		return repo.Delete(ctx, KeyLoginSession)
	})
}

// LoginSessionToken returns the stored login session token, or "".
func (s *SessionStore) LoginSessionToken(ctx context.Context) (string, error) {
	raw, err := NewSQLiteRepository(s.db).Get(ctx, KeyLoginSession)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (s *SessionStore) SetLoginSessionToken(ctx context.Context, token string) error {
	repo := NewSQLiteRepository(s.db)
	if token == "" {
		return repo.Delete(ctx, KeyLoginSession)
	}
	return repo.Set(ctx, KeyLoginSession, []byte(token))
}

func userID(raw []byte) string {
	var sess backend.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return ""
	}
	return userIDOf(&sess)
}

func userIDOf(sess *backend.Session) string {
	if sess == nil || sess.User == nil {
		return ""
	}
	return sess.User.ID
}
