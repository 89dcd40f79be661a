package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/venueworks/playpass/pkg/wallet"
)

const minimumPasswordLength = 8

// ErrWeakPassword rejects staff passwords below the minimum length.
var ErrWeakPassword = errors.New("password too short")

// AdminDirectory is the slice of the store the auth service needs.
type AdminDirectory interface {
	GetAdminByUsername(ctx context.Context, username string) (wallet.Admin, error)
	CreateAdmin(ctx context.Context, admin wallet.Admin) (wallet.Admin, error)
	ListAdmins(ctx context.Context) ([]wallet.Admin, error)
	DeleteAdmin(ctx context.Context, adminID int64) error
	CountAdmins(ctx context.Context) (int64, error)
}

// Session is an authenticated login result.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Admin     wallet.Admin
}

// Service authenticates staff accounts and manages them.
type Service struct {
	directory AdminDirectory
	issuer    *TokenIssuer
	nowFn     func() time.Time
}

// NewService wires an auth Service.
func NewService(directory AdminDirectory, issuer *TokenIssuer, now func() time.Time) (*Service, error) {
	if directory == nil {
		return nil, errors.New("admin directory is nil")
	}
	if issuer == nil {
		return nil, errors.New("token issuer is nil")
	}
	if now == nil {
		now = time.Now
	}
	return &Service{directory: directory, issuer: issuer, nowFn: now}, nil
}

// Login verifies credentials and issues a session token. Unknown
// usernames and wrong passwords both come back as ErrInvalidCredentials
// so the response does not reveal which half failed.
func (service *Service) Login(ctx context.Context, username string, password string) (Session, error) {
	admin, err := service.directory.GetAdminByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, wallet.ErrAdminNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !VerifyPassword(admin.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	token, expiresAt, err := service.issuer.Issue(admin.Username)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expiresAt, Admin: admin}, nil
}

// Authenticate resolves a bearer token to the staff account behind it.
// The role comes from the database, not the token.
func (service *Service) Authenticate(ctx context.Context, rawToken string) (wallet.Admin, error) {
	username, err := service.issuer.Verify(rawToken)
	if err != nil {
		return wallet.Admin{}, err
	}
	admin, err := service.directory.GetAdminByUsername(ctx, username)
	if errors.Is(err, wallet.ErrAdminNotFound) {
		return wallet.Admin{}, ErrInvalidToken
	}
	if err != nil {
		return wallet.Admin{}, err
	}
	return admin, nil
}

// RegisterAdmin creates a staff account with a hashed password.
func (service *Service) RegisterAdmin(ctx context.Context, username string, password string, role wallet.AdminRole) (wallet.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return wallet.Admin{}, ErrInvalidCredentials
	}
	if len(password) < minimumPasswordLength {
		return wallet.Admin{}, ErrWeakPassword
	}
	hashed, err := HashPassword(password)
	if err != nil {
		return wallet.Admin{}, err
	}
	return service.directory.CreateAdmin(ctx, wallet.Admin{
		Username:     username,
		PasswordHash: hashed,
		Role:         role,
		CreatedAt:    service.nowFn(),
	})
}

// Admins lists every staff account.
func (service *Service) Admins(ctx context.Context) ([]wallet.Admin, error) {
	return service.directory.ListAdmins(ctx)
}

// DeleteAdmin removes a staff account.
func (service *Service) DeleteAdmin(ctx context.Context, adminID int64) error {
	return service.directory.DeleteAdmin(ctx, adminID)
}

// Bootstrap creates the initial SUPERADMIN when the directory is empty.
// It reports whether an account was created.
func (service *Service) Bootstrap(ctx context.Context, username string, password string) (bool, error) {
	count, err := service.directory.CountAdmins(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if _, err := service.RegisterAdmin(ctx, username, password, wallet.RoleSuperAdmin); err != nil {
		return false, err
	}
	return true, nil
}
