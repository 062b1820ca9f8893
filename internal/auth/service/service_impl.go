package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/railzwaylabs/partnerops/internal/auth/domain"
	"github.com/railzwaylabs/partnerops/internal/clock"
	"github.com/railzwaylabs/partnerops/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const sessionValue = "admin"

type ServiceParam struct {
	fx.In

	Redis *redis.Client
	Log   *zap.Logger
	Clock clock.Clock
	Cfg   config.Config
}

type service struct {
	redis        *redis.Client
	log          *zap.Logger
	clock        clock.Clock
	limiter      *Limiter
	passwordHash []byte
	password     string
	sessionTTL   time.Duration
}

func New(p ServiceParam) domain.Service {
	log := p.Log.Named("auth.service")
	ttl := p.Cfg.Admin.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &service{
		redis:        p.Redis,
		log:          log,
		clock:        p.Clock,
		limiter:      NewLimiter(p.Redis, log, p.Cfg.Admin.LoginMaxAttempts, p.Cfg.Admin.LoginWindow),
		passwordHash: []byte(strings.TrimSpace(p.Cfg.Admin.PasswordHash)),
		password:     p.Cfg.Admin.Password,
		sessionTTL:   ttl,
	}
}

func sessionKey(token string) string {
	return fmt.Sprintf("auth:session:%s", token)
}

func (s *service) Login(ctx context.Context, clientID string, password string) (*domain.Session, error) {
	if len(s.passwordHash) == 0 && s.password == "" {
		return nil, domain.ErrNotConfigured
	}

	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		clientID = "unknown"
	}
	if !s.limiter.Hit(ctx, clientID) {
		s.log.Warn("admin login throttled", zap.String("client", clientID))
		return nil, domain.ErrTooManyAttempts
	}

	if !s.checkPassword(password) {
		s.log.Info("admin login rejected", zap.String("client", clientID))
		return nil, domain.ErrInvalidCredentials
	}
	s.limiter.Reset(ctx, clientID)

	token := uuid.NewString()
	if err := s.redis.Set(ctx, sessionKey(token), sessionValue, s.sessionTTL).Err(); err != nil {
		return nil, err
	}

	s.log.Info("admin logged in", zap.String("client", clientID))
	return &domain.Session{Token: token, ExpiresAt: s.clock.Now(ctx).Add(s.sessionTTL)}, nil
}

func (s *service) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	token = strings.TrimSpace(token)
	if _, err := uuid.Parse(token); err != nil {
		return nil, domain.ErrUnauthorized
	}

	ttl, err := s.redis.TTL(ctx, sessionKey(token)).Result()
	if err != nil {
		return nil, err
	}
	// Redis reports -2 for a missing key and -1 for a key without expiry.
	switch {
	case ttl == -2:
		return nil, domain.ErrUnauthorized
	case ttl < 0:
		ttl = s.sessionTTL
	}
	return &domain.Session{Token: token, ExpiresAt: s.clock.Now(ctx).Add(ttl)}, nil
}

func (s *service) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrUnauthorized
	}
	return s.redis.Del(ctx, sessionKey(token)).Err()
}

func (s *service) checkPassword(password string) bool {
	if len(s.passwordHash) > 0 {
		err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
		if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.log.Error("admin password hash is invalid", zap.Error(err))
		}
		return err == nil
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
}
