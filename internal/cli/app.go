package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/blockpass/internal/common"
	"github.com/dmitrijs2005/blockpass/internal/models"
	"github.com/dmitrijs2005/blockpass/internal/services"
)

// UserService is the account surface the CLI needs.
type UserService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)
	DeleteAccount(ctx context.Context, user *models.User, password string) error
}

// VaultService is the vault surface the CLI needs.
type VaultService interface {
	Create(ctx context.Context, user *models.User, title, secret, masterPassword string) (*services.ItemSummary, error)
	List(ctx context.Context, user *models.User) ([]*services.ItemSummary, error)
	Reveal(ctx context.Context, user *models.User, itemID, masterPassword string) (*services.ItemDetail, error)
	Edit(ctx context.Context, user *models.User, itemID, title, secret, masterPassword string) (*services.ItemSummary, error)
	Delete(ctx context.Context, user *models.User, itemID string) error
}

type App struct {
	users  UserService
	vault  VaultService
	reader *bufio.Reader
	out    io.Writer

	token    string
	userName string
}

// NewApp returns an App reading commands from in and writing to out.
func NewApp(users UserService, vault VaultService, in io.Reader, out io.Writer) *App {
	return &App{users: users, vault: vault, reader: bufio.NewReader(in), out: out}
}

// NewStdApp returns an App bound to the process terminal.
func NewStdApp(users UserService, vault VaultService) *App {
	return NewApp(users, vault, os.Stdin, os.Stdout)
}

// Run starts the REPL and blocks until the user exits.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to blockpass CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader, a.out)
	a.clearSession()
}

func (a *App) isLoggedIn() bool {
	return a.token != ""
}

func (a *App) getStatus() string {
	if a.userName == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.userName)
}

func (a *App) clearSession() {
	a.token = ""
	a.userName = ""
}

// session resolves the held token to the current user. A rejected token
// ends the session.
func (a *App) session(ctx context.Context) (*models.User, error) {
	if a.token == "" {
		return nil, common.ErrorUnauthenticated
	}
	u, err := a.users.Authenticate(ctx, a.token)
	if err != nil {
		a.clearSession()
		return nil, err
	}
	return u, nil
}
