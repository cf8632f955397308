package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"turtlecrossing/internal/models"
	"turtlecrossing/internal/utils"
)

var (
	ErrUsernameTaken      = errors.New("that username is already taken")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidEmail       = errors.New("enter a valid email address")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInactive           = errors.New("this account has been deactivated")
	ErrUserNotFound       = errors.New("user not found")
)

const minPasswordLength = 6

type UserService struct {
	db    *gorm.DB
	clock clockwork.Clock
}

func NewUserService(db *gorm.DB, clock clockwork.Clock) *UserService {
	return &UserService{db: db, clock: clock}
}

type Registration struct {
	Username string
	Email    string
	Password string
	FullName string
}

func (s *UserService) Register(ctx context.Context, reg Registration) (*models.User, error) {
	user := &models.User{
		Username: strings.TrimSpace(reg.Username),
		Email:    strings.TrimSpace(reg.Email),
		FullName: strings.TrimSpace(reg.FullName),
		IsActive: true,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if _, err := mail.ParseAddress(user.Email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(reg.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := utils.HashPassword(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = hash
	user.DateJoined = s.clock.Now()

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Authenticate checks a username and password. Inactive accounts cannot
// log in.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactive
	}
	return user, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
