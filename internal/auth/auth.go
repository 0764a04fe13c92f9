// Package auth handles storefront accounts: local username/password accounts,
// optional OpenID Connect login, and the gin middleware guarding the API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/DaniDevGS/triven-shop/internal/apperrors"
	"github.com/DaniDevGS/triven-shop/internal/db"
	"github.com/DaniDevGS/triven-shop/internal/logkey"
	"github.com/DaniDevGS/triven-shop/internal/models"
	"github.com/DaniDevGS/triven-shop/internal/session"
)

var ErrInvalidCredentials = errors.New("username or password is incorrect")

type SignupInput struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email"`
	Password1 string `json:"password1" binding:"required"`
	Password2 string `json:"password2" binding:"required"`
}

type Service struct {
	db       *gorm.DB
	sessions session.Store
	managers map[string]bool
	oidc     *oidcClient
}

// NewService builds the account service. sessions holds the server-side
// state that is dropped when a visitor signs out or another account signs
// in on the same browser; it may be nil.
func NewService(conn *gorm.DB, sessions session.Store, managerUsernames []string) *Service {
	managers := make(map[string]bool, len(managerUsernames))
	for _, u := range managerUsernames {
		managers[u] = true
	}
	return &Service{db: conn, sessions: sessions, managers: managers}
}

// IsManager reports whether the user may run the back-office.
func (s *Service) IsManager(u *models.User) bool {
	return u != nil && (u.IsManager || s.managers[u.Username])
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	switch {
	case username == "":
		return nil, apperrors.Validation("username", "is required")
	case in.Password1 == "":
		return nil, apperrors.Validation("password1", "is required")
	case in.Password1 != in.Password2:
		return nil, apperrors.Validation("password2", "passwords do not match")
	case in.Password1 == username:
		return nil, apperrors.Validation("password1", "password cannot be the same as the username")
	}

	conn := s.db.WithContext(ctx)
	if email != "" {
		var count int64
		if err := conn.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if count > 0 {
			return nil, apperrors.Validation("email", "email is already registered")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password1), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{Username: username, PasswordHash: string(hash)}
	if email != "" {
		user.Email = &email
	}
	if err := conn.Create(&user).Error; err != nil {
		if db.IsDuplicateKey(err) {
			return nil, apperrors.Validation("username", "username is already registered")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user signed up", slog.Uint64(logkey.UserID, uint64(user.ID)))
	return &user, nil
}

func (s *Service) Signin(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *Service) User(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}
