package auth

import (
	stderrors "errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	errors "github.com/my-other-app/moa-backend/internal"
	"github.com/my-other-app/moa-backend/internal/core/datamodel/user"
)

type UserRepository interface {
	GetByEmail(email string) (*user.User, error)
}

// Service authenticates users against their stored credentials and hands out
// access tokens.
type Service struct {
	users  UserRepository
	tokens *TokenService
	logger *slog.Logger
}

func NewService(users UserRepository, tokens *TokenService, logger *slog.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// Login verifies the credentials and issues an access token. Unknown emails
// and wrong passwords return the same error.
func (s *Service) Login(email, password string) (string, *User, error) {
	record, err := s.users.GetByEmail(email)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, errors.NewUnauthorizedError("invalid credentials", errors.ErrCodeInvalidCredentials)
		}
		return "", nil, errors.NewInternalError("failed to look up user", err)
	}

	if !record.IsActive {
		return "", nil, errors.NewUnauthorizedError("invalid credentials", errors.ErrCodeInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("failed login attempt", "email", email)
		return "", nil, errors.NewUnauthorizedError("invalid credentials", errors.ErrCodeInvalidCredentials)
	}

	principal := &User{
		ID:    record.ID,
		Email: record.Email,
		Name:  record.Name,
	}

	token, err := s.tokens.Issue(principal)
	if err != nil {
		return "", nil, errors.NewInternalError("failed to issue token", err)
	}

	return token, principal, nil
}
