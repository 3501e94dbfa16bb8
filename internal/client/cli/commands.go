package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

var errPasswordMismatch = errors.New("passwords do not match")

func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

func (a *App) Register(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	name, err := GetSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := GetPassword("Repeat password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(password, confirm) {
		return errPasswordMismatch
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	u, err := a.client.Register(ctx, email, name, string(password))
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(a.out, "Registered %s (id %s). You can log in now.\n", u.Email, u.ID)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.client.Login(ctx, email, string(password)); err != nil {
		return describe(err)
	}

	u, err := a.client.Me(ctx)
	if err != nil {
		return describe(err)
	}
	a.userEmail = u.Email
	fmt.Fprintf(a.out, "Logged in as %s\n", u.Email)
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	u, err := a.client.Me(ctx)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			a.forget()
			return errors.New("session expired, please log in again")
		}
		return describe(err)
	}
	fmt.Fprintf(a.out, "id:      %s\nemail:   %s\nname:    %s\ncreated: %s\n",
		u.ID, u.Email, u.Name, u.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.forget()
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) forget() {
	a.client.Logout()
	a.userEmail = ""
}

// describe turns client errors into messages fit for the terminal.
func describe(err error) error {
	switch {
	case errors.Is(err, common.ErrorDuplicateEmail):
		return errors.New("email already registered")
	case errors.Is(err, common.ErrorInvalidCredentials):
		return errors.New("invalid credentials")
	case errors.Is(err, client.ErrUnavailable):
		return errors.New("server unavailable, try again later")
	case errors.Is(err, client.ErrNotLoggedIn):
		return errors.New("not logged in")
	default:
		return err
	}
}
