package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	// Login checks the admin password for clientID, throttled per client.
	Login(ctx context.Context, clientID string, password string) (*Session, error)
	Authenticate(ctx context.Context, token string) (*Session, error)
	Logout(ctx context.Context, token string) error
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

var (
	ErrNotConfigured      = errors.New("admin_login_not_configured")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrTooManyAttempts    = errors.New("too_many_attempts")
	ErrUnauthorized       = errors.New("unauthorized")
)
