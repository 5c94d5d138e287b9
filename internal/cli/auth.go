package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/taskboard/internal/common"
)

// getSimpleText, getPassword, getMultiline and confirm are indirections
// used to facilitate testing.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getMultiline  = GetMultiline
	confirm       = Confirm
)

// Signup prompts for name, email and password and registers a new account,
// which also logs it in.
func (a *App) Signup(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ok, err := a.session.Signup(ctx, name, email, password)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "An account with this email already exists")
		return nil
	}
	fmt.Fprintf(a.out, "Welcome, %s!\n", name)
	return nil
}

// Login prompts for credentials and starts a session.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ok, err := a.session.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Invalid email or password")
		return nil
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", a.session.CurrentUser().Name)
	return nil
}

// Logout ends the session. Projects and tasks stay in the store.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	me := a.session.CurrentUser()
	if me == nil {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	fmt.Fprintf(a.out, "%s <%s> (%s)\n", me.Name, me.Email, me.ID)
	return nil
}
