package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"roastledger/internal/core/apperror"
	"roastledger/internal/core/id"
	"roastledger/pkg/logger"
)

// Service authenticates the single configured operator.
type Service struct {
	username     string
	passwordHash []byte
	jwt          *JWTService
}

// NewService creates an auth service. passwordHash is a bcrypt hash,
// typically injected via environment.
func NewService(username, passwordHash string, jwtService *JWTService) *Service {
	return &Service{
		username:     username,
		passwordHash: []byte(passwordHash),
		jwt:          jwtService,
	}
}

// LoginResult carries the issued token.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login verifies credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if username != s.username {
		// Burn a comparison anyway so the two failure modes take
		// similar time.
		_ = bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
		return LoginResult{}, apperror.NewUnauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		logger.Warn(ctx, "failed login attempt", "username", username)
		return LoginResult{}, apperror.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.jwt.GenerateAccessToken(username, id.New().String())
	if err != nil {
		return LoginResult{}, apperror.NewInternal(err)
	}

	logger.Info(ctx, "operator logged in", "username", username)
	return LoginResult{Token: token, ExpiresAt: expiresAt}, nil
}

// Validate checks a bearer token and returns the operator context.
func (s *Service) Validate(tokenString string) (username string, sessionID string, err error) {
	user, err := s.jwt.ValidateToken(tokenString)
	if err != nil {
		return "", "", apperror.NewUnauthorized("invalid or expired token")
	}
	return user.Username, user.SessionID, nil
}
