package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/suitewaste/internal/client/services"
	"github.com/dmitrijs2005/suitewaste/internal/common"
)

// getPassword is swapped in tests to avoid touching the terminal.
var getPassword = GetPassword

// Login prompts for credentials and checks them against the local database.
// It works the same with or without the server.
func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, err := a.auth.Login(ctx, email, password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		fmt.Fprintln(a.out, "Invalid email or password.")
		return nil
	}
	if err != nil {
		return err
	}

	a.user = user
	fmt.Fprintf(a.out, "Signed in as %s (%s)\n", user.Email, user.Role)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.user = nil
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	if a.user == nil {
		return errNotLoggedIn
	}
	fmt.Fprintf(a.out, "%s\nrole: %s\nmodules: %v\n", a.user.Email, a.user.Role, a.user.Permissions)
	return nil
}

// Clear wipes the local database after confirmation, unsynced changes
// included, and reseeds the demo data.
func (a *App) Clear(ctx context.Context) error {
	if !Confirm(a.reader, "This deletes all local data, including unsynced changes. Continue?", a.out) {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}
	if err := a.auth.ClearLocalData(ctx); err != nil {
		return err
	}
	a.user = nil
	if err := a.auth.Bootstrap(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Local data cleared.")
	return nil
}
