package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/suitewaste/internal/client/client"
	"github.com/dmitrijs2005/suitewaste/internal/client/models"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// Accounts is the part of the local store that handles accounts.
type Accounts interface {
	SeedIfEmpty(ctx context.Context) error
	SignIn(ctx context.Context, email, password string) (*models.User, error)
	SignOut(ctx context.Context) error
	CurrentUser(ctx context.Context) (*models.User, error)
	Clear(ctx context.Context) error
}

// AuthService signs users in against the local store. Sign-in never needs
// the server, so it works offline.
type AuthService interface {
	Bootstrap(ctx context.Context) error
	Login(ctx context.Context, email string, password []byte) (*models.User, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*models.User, error)
	ClearLocalData(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	accounts Accounts
	client   client.Client
}

func NewAuthService(accounts Accounts, c client.Client) AuthService {
	return &authService{accounts: accounts, client: c}
}

// Bootstrap seeds the demo data set when it is missing.
func (a *authService) Bootstrap(ctx context.Context) error {
	return a.accounts.SeedIfEmpty(ctx)
}

func (a *authService) Login(ctx context.Context, email string, password []byte) (*models.User, error) {
	u, err := a.accounts.SignIn(ctx, email, string(password))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (a *authService) Logout(ctx context.Context) error {
	return a.accounts.SignOut(ctx)
}

func (a *authService) CurrentUser(ctx context.Context) (*models.User, error) {
	return a.accounts.CurrentUser(ctx)
}

// ClearLocalData wipes the local database, including unsynced changes.
func (a *authService) ClearLocalData(ctx context.Context) error {
	return a.accounts.Clear(ctx)
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
