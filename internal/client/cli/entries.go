package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/client/services"
)

const timeLayout = "2006-01-02 15:04"

func (a *App) List(ctx context.Context) error {
	st := a.entries.State()
	switch {
	case st.Loading:
		fmt.Fprintln(a.out, "Loading...")
		return nil
	case st.Err != "":
		fmt.Fprintf(a.out, "Could not load entries: %s (type 'refetch' to try again)\n", st.Err)
		return nil
	case len(st.Entries) == 0:
		fmt.Fprintln(a.out, "No entries yet. Type 'add' to write one.")
		return nil
	}

	for _, e := range st.Entries {
		content := strings.ReplaceAll(e.Content, "\n", "\n    ")
		fmt.Fprintf(a.out, "%s  %s\n    %s\n", e.ID, e.CreatedAt.Local().Format(timeLayout), content)
	}
	return nil
}

func (a *App) Add(ctx context.Context) error {
	content, err := GetMultiline(a.reader, "Enter text", a.out)
	if err != nil {
		return err
	}
	if content == "" {
		fmt.Fprintln(a.out, "Nothing to save")
		return nil
	}
	return a.save(ctx, content)
}

// Retry resubmits the content of the last failed save.
func (a *App) Retry(ctx context.Context) error {
	a.mu.Lock()
	content := a.pending
	a.mu.Unlock()

	if content == "" {
		fmt.Fprintln(a.out, "Nothing to retry")
		return nil
	}
	return a.save(ctx, content)
}

func (a *App) save(ctx context.Context, content string) error {
	e, err := a.entries.Save(ctx, content)

	a.mu.Lock()
	if err != nil {
		a.pending = content
	} else {
		a.pending = ""
	}
	a.mu.Unlock()

	if err != nil {
		fmt.Fprintln(a.out, "Save failed; your text is kept, type 'retry' to resubmit.")
		return err
	}
	fmt.Fprintf(a.out, "Saved %s\n", e.ID)
	return nil
}

// Delete removes one entry. Failures are also shown as a notice by the
// entry service.
func (a *App) Delete(ctx context.Context, id string) error {
	if err := a.entries.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s\n", id)
	return nil
}

func (a *App) Refetch(ctx context.Context) error {
	a.loadEntries(ctx)
	return a.List(ctx)
}

func (a *App) Export(ctx context.Context) error {
	user := a.auth.State().User
	if user == nil {
		return nil
	}
	if a.backup == nil {
		fmt.Fprintln(a.out, "Backups are not configured")
		return nil
	}

	key, err := a.backup.Export(ctx, user.ID, a.entries.State().Entries)
	if errors.Is(err, services.ErrBackupDisabled) {
		fmt.Fprintln(a.out, "Backups are not configured (set NOTEKEEPER_BACKUP_BUCKET)")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported to %s\n", key)
	return nil
}
