package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// credentials prompts for email and password. The caller wipes the password.
func (a *App) credentials() (string, []byte, error) {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

// SignUp creates an account. It never touches the entry list: the user is
// asked to log in afterwards.
func (a *App) SignUp(ctx context.Context) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	resp, err := a.auth.SignUp(ctx, email, string(password))
	if err != nil {
		return err
	}

	if resp.Session == nil {
		fmt.Fprintln(a.out, "Account created. Confirm your email, then log in.")
		return nil
	}
	fmt.Fprintln(a.out, "Account created. Please log in.")
	return nil
}

// Login signs in and loads the entry list.
func (a *App) Login(ctx context.Context) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	resp, err := a.auth.SignIn(ctx, email, string(password))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Signed in as %s\n", resp.User.Email)
	a.loadEntries(ctx)
	return a.List(ctx)
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.SignOut(ctx); err != nil {
		return err
	}
	a.mu.Lock()
	a.pending = ""
	a.mu.Unlock()

	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	st := a.auth.State()
	if st.User == nil {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}
	fmt.Fprintf(a.out, "Email:   %s\nUser ID: %s\n", st.User.Email, st.User.ID)
	if st.Profile != nil {
		fmt.Fprintf(a.out, "Profile: %s (since %s)\n", st.Profile.DisplayEmail(), st.Profile.CreatedAt.Local().Format("2006-01-02"))
	} else {
		fmt.Fprintln(a.out, "Profile: none")
	}
	return nil
}
