package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

// History prints the recent login attempts of the signed-in user.
func (a *App) History(ctx context.Context) error {
	user := a.auth.State().User
	if user == nil || a.history == nil {
		return nil
	}

	attempts := a.history.List(ctx, user.ID)
	if len(attempts) == 0 {
		fmt.Fprintln(a.out, "No login history")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTYPE\tRESULT\tDETAILS")
	for _, at := range attempts {
		result, details := "ok", ""
		if !at.Success {
			result = "failed"
		}
		if at.ErrorMessage != nil {
			details = *at.ErrorMessage
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", at.CreatedAt.Local().Format(timeLayout), at.LoginType, result, details)
	}
	return tw.Flush()
}

// Sessions runs a sessions subcommand: none lists the active login sessions,
// "history" the recent ones, "revoke <id>" and "revoke-all" end them.
func (a *App) Sessions(ctx context.Context, args []string) error {
	user := a.auth.State().User
	if user == nil || a.sessions == nil {
		return nil
	}

	sub := ""
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "":
		active, err := a.sessions.ActiveSessions(ctx, user.ID)
		if err != nil {
			return err
		}
		if len(active) == 0 {
			fmt.Fprintln(a.out, "No active sessions")
			return nil
		}
		return a.printSessions(active, false)

	case "history":
		all, err := a.sessions.History(ctx, user.ID, 0)
		if err != nil {
			return err
		}
		if len(all) == 0 {
			fmt.Fprintln(a.out, "No session history")
			return nil
		}
		return a.printSessions(all, true)

	case "revoke":
		if len(args) < 2 {
			fmt.Fprintln(a.out, "Usage: sessions revoke <id>")
			return nil
		}
		if err := a.sessions.DeactivateByID(ctx, args[1], user.ID); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Revoked session %s\n", args[1])
		return nil

	case "revoke-all":
		if err := a.sessions.DeactivateAll(ctx, user.ID); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Revoked all sessions")
		return nil
	}

	fmt.Fprintln(a.out, "Usage: sessions [history | revoke <id> | revoke-all]")
	return nil
}

func (a *App) printSessions(rows []models.LoginSession, withLogout bool) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	if withLogout {
		fmt.Fprintln(tw, "ID\tDEVICE\tLOGIN\tLAST ACTIVITY\tLOGOUT")
	} else {
		fmt.Fprintln(tw, "ID\tDEVICE\tLOGIN\tLAST ACTIVITY")
	}
	for _, s := range rows {
		line := fmt.Sprintf("%s\t%s\t%s\t%s", s.ID, s.DeviceType, s.LoginTime.Local().Format(timeLayout), s.LastActivity.Local().Format(timeLayout))
		if withLogout {
			logout := "active"
			if s.LogoutTime != nil {
				logout = s.LogoutTime.Local().Format(timeLayout)
			} else if !s.IsActive {
				logout = "-"
			}
			line += "\t" + logout
		}
		fmt.Fprintln(tw, line)
	}
	return tw.Flush()
}
