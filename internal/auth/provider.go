// Package auth owns password credentials and sessions. Everything else in
// the system identifies callers by user id only.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tangle/internal/core"
)

const sessionTTL = 7 * 24 * time.Hour

type Provider struct {
	Logger *slog.Logger
	DB     core.DB
	Users  core.UserRepository
}

func (p *Provider) Init(_ context.Context) error {
	p.Logger = p.Logger.With("component", "auth.Provider")
	return nil
}

func (p *Provider) CreateAccount(ctx context.Context, username, email, password string) (*core.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return p.Users.Register(ctx, username, email, string(hash))
}

// Authenticate checks the credentials and opens a fresh session. The caller
// never learns whether the username or the password was wrong.
func (p *Provider) Authenticate(ctx context.Context, username, password string) (*core.Session, error) {
	user, err := p.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, core.ErrInvalidCredentials
	}

	session := core.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(sessionTTL),
	}

	if err = p.DB.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, err
	}

	return &session, nil
}

// CurrentUser resolves a session token to its user. Unknown and expired
// tokens both come back as ErrUnauthenticated.
func (p *Provider) CurrentUser(ctx context.Context, token string) (*core.User, error) {
	if token == "" {
		return nil, core.ErrUnauthenticated
	}

	var session core.Session

	err := p.DB.WithContext(ctx).
		Where("token = ? AND expires_at > ?", token, time.Now()).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrUnauthenticated
		}
		return nil, err
	}

	user, err := p.Users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.ErrUnauthenticated
		}
		return nil, err
	}

	return user, nil
}

// Logout revokes the session. Revoking an unknown token is a no-op.
func (p *Provider) Logout(ctx context.Context, token string) error {
	return p.DB.WithContext(ctx).Where("token = ?", token).Delete(&core.Session{}).Error
}
