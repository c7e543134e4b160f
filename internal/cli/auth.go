package cli

import (
	"context"
	"fmt"
)

// Register prompts for a username and password and creates the account.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	err = withPassword(a.out, "Enter password", func(password string) error {
		_, err := a.users.Register(ctx, userName, password)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Success!")
	return nil
}

// Login prompts for credentials and keeps the issued session token in memory.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	var token string
	err = withPassword(a.out, "Enter password", func(password string) error {
		var err error
		token, err = a.users.Login(ctx, userName, password)
		return err
	})
	if err != nil {
		a.clearSession()
		return err
	}

	a.token = token
	a.userName = userName
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

// Logout forgets the session token.
func (a *App) Logout(ctx context.Context) error {
	a.clearSession()
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// Unregister deletes the logged-in account and all of its items after
// asking for the login password again.
func (a *App) Unregister(ctx context.Context) error {
	u, err := a.session(ctx)
	if err != nil {
		return err
	}

	err = withPassword(a.out, "Enter password to delete your account", func(password string) error {
		return a.users.DeleteAccount(ctx, u, password)
	})
	if err != nil {
		return err
	}

	a.clearSession()
	fmt.Fprintln(a.out, "Account deleted")
	return nil
}
