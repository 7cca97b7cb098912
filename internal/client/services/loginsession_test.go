package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/notekeeper/internal/client/backend"
	"github.com/dmitrijs2005/notekeeper/internal/client/backend/memory"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

func TestDetectDeviceType(t *testing.T) {
	tests := []struct {
		ua   string
		want models.DeviceType
	}{
		{"", models.DeviceUnknown},
		{"Mozilla/5.0 (Linux; Android 14; Pixel 8)", models.DeviceMobile},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148", models.DeviceMobile},
		{"Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X)", models.DeviceTablet},
		{"SomeTablet/2.0", models.DeviceTablet},
		{"Mozilla/5.0 (X11; Linux x86_64) Firefox/128.0", models.DeviceDesktop},
		{"notekeeper-cli/1.0 (linux; amd64)", models.DeviceDesktop},
	}
	for _, tt := range tests {
		t.Run(tt.ua, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectDeviceType(tt.ua))
		})
	}
}

func TestGenerateSessionToken(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}-[0-9a-z]+$`)
	a := GenerateSessionToken()
	b := GenerateSessionToken()
	assert.Regexp(t, re, a)
	assert.NotEqual(t, a, b)
}

func newSessionService(b *memory.Backend, now time.Time) *loginSessionService {
	s := NewLoginSessionService(b, testLogger()).(*loginSessionService)
	s.now = func() time.Time { return now }
	return s
}

func TestLoginSessions_Lifecycle(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	s := newSessionService(b, t0)

	created, err := s.Create(ctx, "u1", "tok-1", "Mozilla/5.0 (iPhone)")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.IsActive)
	assert.Equal(t, models.DeviceMobile, created.DeviceType)
	assert.True(t, created.LoginTime.Equal(t0))
	assert.Nil(t, created.LogoutTime)

	s.now = func() time.Time { return t0.Add(time.Hour) }
	_, err = s.Create(ctx, "u1", "tok-2", "")
	require.NoError(t, err)
	_, err = s.Create(ctx, "u2", "tok-3", "")
	require.NoError(t, err)

	active, err := s.ActiveSessions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "tok-2", active[0].SessionToken)

	got, err := s.GetByToken(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)

	s.now = func() time.Time { return t0.Add(2 * time.Hour) }
	require.NoError(t, s.UpdateLastActivity(ctx, "tok-1"))
	active, err = s.ActiveSessions(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", active[0].SessionToken)

	require.NoError(t, s.Deactivate(ctx, "tok-1", "u1"))
	got, err = s.GetByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	hist, err := s.History(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "tok-2", hist[0].SessionToken)
	require.NotNil(t, hist[1].LogoutTime)
	assert.True(t, hist[1].LogoutTime.Equal(t0.Add(2*time.Hour)))

	hist, err = s.History(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestLoginSessions_DeactivateScopedToUser(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	s := newSessionService(b, t0)

	mine, err := s.Create(ctx, "u1", "tok-1", "")
	require.NoError(t, err)
	theirs, err := s.Create(ctx, "u2", "tok-2", "")
	require.NoError(t, err)

	require.NoError(t, s.DeactivateByID(ctx, theirs.ID, "u1"))
	require.NoError(t, s.Deactivate(ctx, "tok-2", "u1"))
	active, err := s.ActiveSessions(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, active, 1)

	require.NoError(t, s.DeactivateByID(ctx, mine.ID, "u1"))
	active, err = s.ActiveSessions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestLoginSessions_DeactivateAll(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	s := newSessionService(b, t0)

	for _, tok := range []string{"a", "b", "c"} {
		_, err := s.Create(ctx, "u1", tok, "")
		require.NoError(t, err)
	}
	require.NoError(t, s.DeactivateAll(ctx, "u1"))

	active, err := s.ActiveSessions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, active)

	hist, err := s.History(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, hist, 3)
}

func TestLoginSessions_Errors(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	s := newSessionService(b, t0)

	b.SetFault(memory.OpInsert, memory.Fault{Err: backend.ErrUnauthorized})
	_, err := s.Create(ctx, "u1", "t", "")
	require.ErrorIs(t, err, backend.ErrUnauthorized)
	assert.Contains(t, err.Error(), "create login session")

	b.SetFault(memory.OpSelect, memory.Fault{Err: backend.ErrUnavailable})
	_, err = s.ActiveSessions(ctx, "u1")
	require.ErrorIs(t, err, backend.ErrUnavailable)
	_, err = s.GetByToken(ctx, "t")
	require.ErrorIs(t, err, backend.ErrUnavailable)

	b.SetFault(memory.OpUpdate, memory.Fault{Err: backend.ErrUnavailable})
	require.ErrorIs(t, s.DeactivateAll(ctx, "u1"), backend.ErrUnavailable)
}
