package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/notekeeper/internal/client/backend"
	"github.com/dmitrijs2005/notekeeper/internal/client/backend/memory"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

const waitFor = 2 * time.Second

// fakeHistory records calls to Record.
type fakeHistory struct {
	mu      sync.Mutex
	Records []recordCall
	ListRet []models.LoginAttempt
}

type recordCall struct {
	Email   string
	Kind    models.LoginType
	Success bool
	UserID  string
	ErrMsg  string
}

func (f *fakeHistory) Record(ctx context.Context, email string, kind models.LoginType, success bool, userID, errMsg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Records = append(f.Records, recordCall{Email: email, Kind: kind, Success: success, UserID: userID, ErrMsg: errMsg})
}

func (f *fakeHistory) List(ctx context.Context, userID string) []models.LoginAttempt {
	return f.ListRet
}

func (f *fakeHistory) calls() []recordCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordCall(nil), f.Records...)
}

// alerts collects Notifier messages.
type alerts struct {
	mu   sync.Mutex
	msgs []string
}

func (a *alerts) Alert(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.msgs = append(a.msgs, msg)
}

func (a *alerts) all() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.msgs...)
}

func testLogger() logging.Logger { return logging.NewNop() }

func waitReady(t *testing.T, s AuthService) {
	t.Helper()
	select {
	case <-s.Ready():
	case <-time.After(waitFor):
		t.Fatal("auth service never became ready")
	}
}

// signedUp registers a user directly on the backend and returns it.
func signedUp(t *testing.T, b *memory.Backend, email string) *backend.User {
	t.Helper()
	resp, err := b.SignUp(context.Background(), backend.Credentials{Email: email, Password: "secret1"})
	require.NoError(t, err)
	return resp.User
}

func ids(entries []models.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
