package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/notekeeper/internal/client/backend"
	"github.com/dmitrijs2005/notekeeper/internal/client/backend/memory"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/services"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

func stubInputs(t *testing.T, email string, password string) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return email, nil }
	getPassword = func(_ io.Writer) ([]byte, error) { return []byte(password), nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

type testApp struct {
	*App
	b       *memory.Backend
	out     *bytes.Buffer
	entries services.EntryService
}

// newTestApp wires the real services over an in-memory backend. stdin is
// the text the App reads for prompts and notices.
func newTestApp(t *testing.T, stdin string) *testApp {
	t.Helper()
	b := memory.New()
	nop := logging.NewNop()
	reader := bufio.NewReader(strings.NewReader(stdin))
	out := &bytes.Buffer{}

	history := services.NewLoginHistoryService(b, common.DefaultUserAgent, nop)
	sessions := services.NewLoginSessionService(b, nop)
	auth := services.NewAuthService(b, b, services.AuthOptions{
		UserAgent: common.DefaultUserAgent,
		History:   history,
		Sessions:  sessions,
	})
	entries := services.NewEntryService(b, services.EntryOptions{Notifier: NewNotice(reader, out)})

	app := NewApp(Deps{
		Auth:     auth,
		Entries:  entries,
		History:  history,
		Sessions: sessions,
		Backup:   services.NewBackupService(services.BackupConfig{}, nop),
	}, reader, out)

	auth.Start(context.Background())
	t.Cleanup(auth.Close)
	select {
	case <-auth.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("auth never ready")
	}
	return &testApp{App: app, b: b, out: out, entries: entries}
}

func (ta *testApp) register(t *testing.T, email string) {
	t.Helper()
	_, err := ta.b.SignUp(context.Background(), backend.Credentials{Email: email, Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, ta.b.SignOut(context.Background()))
}

func (ta *testApp) login(t *testing.T, email string) {
	t.Helper()
	stubInputs(t, email, "secret1")
	require.NoError(t, ta.Login(context.Background()))
}

func TestApp_LoginLoadsEntries(t *testing.T) {
	ta := newTestApp(t, "")
	ta.register(t, "a@b.c")
	require.NoError(t, ta.b.Seed(models.EntriesTable, models.Entry{ID: "e1", Content: "ねこ", CreatedAt: time.Now()}))

	assert.False(t, ta.isLoggedIn())
	ta.login(t, "a@b.c")

	assert.True(t, ta.isLoggedIn())
	assert.Contains(t, ta.getStatus(), "a@b.c")
	st := ta.entries.State()
	assert.False(t, st.Loading)
	assert.Len(t, st.Entries, 1)
	assert.Contains(t, ta.out.String(), "Signed in as a@b.c")
	assert.Contains(t, ta.out.String(), "ねこ")

	var attempts []models.LoginAttempt
	require.NoError(t, ta.b.Rows(models.LoginHistoryTable, &attempts))
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].Success)
}

func TestApp_LoginFailure(t *testing.T) {
	ta := newTestApp(t, "")
	stubInputs(t, "ghost@b.c", "nope")

	err := ta.Login(context.Background())
	require.Error(t, err)
	assert.False(t, ta.isLoggedIn())
	assert.True(t, ta.entries.State().Loading)
}

func TestApp_SignUpDoesNotTouchEntries(t *testing.T) {
	ta := newTestApp(t, "")
	stubInputs(t, "new@b.c", "secret1")

	require.NoError(t, ta.SignUp(context.Background()))
	assert.Contains(t, ta.out.String(), "Account created. Please log in.")
	assert.False(t, ta.isLoggedIn())
	assert.NotContains(t, ta.getStatus(), "new@b.c")

	sess, err := ta.b.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)

	st := ta.entries.State()
	assert.True(t, st.Loading)
	assert.Empty(t, st.Entries)
	assert.Zero(t, ta.b.Calls(memory.OpSelect))

	stubInputs(t, "new@b.c", "secret1")
	require.NoError(t, ta.Login(context.Background()))
	assert.True(t, ta.isLoggedIn())
	assert.False(t, ta.entries.State().Loading)
}

func TestApp_SignUpRequiringConfirmation(t *testing.T) {
	ta := newTestApp(t, "")
	ta.b.RequireConfirmation = true
	stubInputs(t, "new@b.c", "secret1")

	require.NoError(t, ta.SignUp(context.Background()))
	assert.Contains(t, ta.out.String(), "Confirm your email")
	assert.False(t, ta.isLoggedIn())
}

func TestApp_SaveFailureKeepsTextForRetry(t *testing.T) {
	ta := newTestApp(t, "first line\nsecond line\n\n")
	ta.register(t, "a@b.c")
	ta.login(t, "a@b.c")
	ctx := context.Background()

	ta.b.SetFault(memory.OpInsert, memory.Fault{Err: backend.ErrUnavailable})
	require.ErrorIs(t, ta.Add(ctx), backend.ErrUnavailable)
	assert.Equal(t, "first line\nsecond line", ta.pending)
	assert.Contains(t, ta.out.String(), "type 'retry'")

	ta.b.ClearFaults()
	require.NoError(t, ta.Retry(ctx))
	assert.Empty(t, ta.pending)

	st := ta.entries.State()
	require.Len(t, st.Entries, 1)
	assert.Equal(t, "first line\nsecond line", st.Entries[0].Content)

	ta.out.Reset()
	require.NoError(t, ta.Retry(ctx))
	assert.Contains(t, ta.out.String(), "Nothing to retry")
}

func TestApp_DeleteFailureShowsNotice(t *testing.T) {
	ta := newTestApp(t, "\n")
	ta.register(t, "a@b.c")
	require.NoError(t, ta.b.Seed(models.EntriesTable, models.Entry{ID: "42", Content: "x", CreatedAt: time.Now()}))
	ta.login(t, "a@b.c")

	ta.b.SetFault(memory.OpDelete, memory.Fault{Err: &backend.APIError{Status: 500, Message: "boom"}})
	err := ta.Delete(context.Background(), "42")
	require.Error(t, err)

	assert.Contains(t, ta.out.String(), "!!! delete failed: boom")
	assert.Len(t, ta.entries.State().Entries, 1)
}

func TestApp_DeleteAndLogout(t *testing.T) {
	ta := newTestApp(t, "")
	ta.register(t, "a@b.c")
	require.NoError(t, ta.b.Seed(models.EntriesTable, models.Entry{ID: "42", Content: "x", CreatedAt: time.Now()}))
	ta.login(t, "a@b.c")
	ctx := context.Background()

	require.NoError(t, ta.Delete(ctx, "42"))
	assert.Empty(t, ta.entries.State().Entries)

	require.NoError(t, ta.Sessions(ctx, nil))
	assert.Contains(t, ta.out.String(), string(models.DeviceDesktop))

	require.NoError(t, ta.Logout(ctx))
	assert.False(t, ta.isLoggedIn())
	assert.Contains(t, ta.out.String(), "Signed out")
}

func TestApp_HistoryWhoAmIExport(t *testing.T) {
	ta := newTestApp(t, "")
	ta.register(t, "a@b.c")
	ta.login(t, "a@b.c")
	ctx := context.Background()

	ta.out.Reset()
	require.NoError(t, ta.History(ctx))
	assert.Contains(t, ta.out.String(), "signin")

	ta.out.Reset()
	require.NoError(t, ta.WhoAmI(ctx))
	assert.Contains(t, ta.out.String(), "Email:   a@b.c")

	ta.out.Reset()
	require.NoError(t, ta.Export(ctx))
	assert.Contains(t, ta.out.String(), "not configured")
}

func TestApp_OnlineStatus(t *testing.T) {
	ta := newTestApp(t, "")
	ctx := context.Background()

	ta.checkOnline(ctx)
	assert.Equal(t, ModeOnline, ta.mode())
	assert.Contains(t, ta.getStatus(), "online")

	ta.b.SetFault(memory.OpHealth, memory.Fault{Err: backend.ErrUnavailable})
	ta.checkOnline(ctx)
	assert.Equal(t, ModeOffline, ta.mode())
}

func TestApp_SetModeLogsOnChange(t *testing.T) {
	var buf bytes.Buffer
	app := NewApp(Deps{Logger: logging.New("info", &buf)}, nil, io.Discard)

	app.setMode(ModeOnline)
	assert.Equal(t, ModeOnline, app.Mode)
	assert.Contains(t, buf.String(), "mode=online")

	buf.Reset()
	app.setMode(ModeOnline)
	assert.Empty(t, buf.String())

	app.setMode(ModeOffline)
	assert.Contains(t, buf.String(), "mode=offline")
}

func TestApp_SessionsSubcommands(t *testing.T) {
	ta := newTestApp(t, "")
	ta.register(t, "a@b.c")
	ta.login(t, "a@b.c")
	ctx := context.Background()
	userID := ta.auth.State().User.ID

	sessions := services.NewLoginSessionService(ta.b, logging.NewNop())
	other, err := sessions.Create(ctx, userID, "other-device", "Mozilla/5.0 (iPhone; Mobile)")
	require.NoError(t, err)

	ta.out.Reset()
	require.NoError(t, ta.Sessions(ctx, []string{"revoke", other.ID}))
	assert.Contains(t, ta.out.String(), "Revoked session "+other.ID)
	active, err := sessions.ActiveSessions(ctx, userID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.NotEqual(t, other.ID, active[0].ID)

	ta.out.Reset()
	require.NoError(t, ta.Sessions(ctx, []string{"revoke"}))
	assert.Contains(t, ta.out.String(), "Usage: sessions revoke <id>")

	ta.out.Reset()
	require.NoError(t, ta.Sessions(ctx, []string{"history"}))
	assert.Contains(t, ta.out.String(), "LOGOUT")
	assert.Contains(t, ta.out.String(), other.ID)
	assert.Contains(t, ta.out.String(), "active")

	ta.out.Reset()
	require.NoError(t, ta.Sessions(ctx, []string{"revoke-all"}))
	assert.Contains(t, ta.out.String(), "Revoked all sessions")
	active, err = sessions.ActiveSessions(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, active)

	ta.out.Reset()
	require.NoError(t, ta.Sessions(ctx, nil))
	assert.Contains(t, ta.out.String(), "No active sessions")

	ta.out.Reset()
	require.NoError(t, ta.Sessions(ctx, []string{"bogus"}))
	assert.Contains(t, ta.out.String(), "Usage: sessions")
}

func TestApp_OnlineCheckTouchesLoginSession(t *testing.T) {
	ta := newTestApp(t, "")
	ta.register(t, "a@b.c")
	ta.login(t, "a@b.c")
	ctx := context.Background()

	updates := ta.b.Calls(memory.OpUpdate)
	ta.checkOnline(ctx)
	assert.Equal(t, ModeOnline, ta.mode())
	assert.Equal(t, updates+1, ta.b.Calls(memory.OpUpdate))

	require.NoError(t, ta.Logout(ctx))
	updates = ta.b.Calls(memory.OpUpdate)
	ta.checkOnline(ctx)
	assert.Equal(t, updates, ta.b.Calls(memory.OpUpdate))
}
