package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/notekeeper/internal/client/backend"
)

func TestSessionStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st := NewSessionStore(setupDB(t))

	s, err := st.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	want := &backend.Session{
		AccessToken:  "a",
		RefreshToken: "r",
		TokenType:    "bearer",
		ExpiresAt:    1_700_000_000,
		User:         &backend.User{ID: "u1", Email: "a@b.c"},
	}
	require.NoError(t, st.SaveSession(ctx, want))

	got, err := st.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, st.ClearSession(ctx))
	got, err = st.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStore_LoginTokenFollowsUser(t *testing.T) {
	ctx := context.Background()
	st := NewSessionStore(setupDB(t))

	require.NoError(t, st.SaveSession(ctx, &backend.Session{AccessToken: "a", User: &backend.User{ID: "u1"}}))
	require.NoError(t, st.SetLoginSessionToken(ctx, "tok-1"))

	// refreshed tokens for the same user keep the login session
	require.NoError(t, st.SaveSession(ctx, &backend.Session{AccessToken: "b", User: &backend.User{ID: "u1"}}))
	tok, err := st.LoginSessionToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	// another user drops it
	require.NoError(t, st.SaveSession(ctx, &backend.Session{AccessToken: "c", User: &backend.User{ID: "u2"}}))
	tok, err = st.LoginSessionToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, st.SetLoginSessionToken(ctx, "tok-2"))
	require.NoError(t, st.ClearSession(ctx))
	tok, err = st.LoginSessionToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestSessionStore_CorruptValue(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	require.NoError(t, NewSQLiteRepository(db).Set(ctx, KeySession, []byte("{not json")))

	_, err := NewSessionStore(db).LoadSession(ctx)
	require.ErrorContains(t, err, "decode persisted session")
}
