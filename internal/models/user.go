package models

import (
	"errors"
	"regexp"
	"time"
	"unicode/utf8"
)

var (
	ErrInvalidUsername = errors.New("username may only contain A-Z, a-z, 0-9 and _, up to 30 characters")
	ErrFullNameTooLong = errors.New("full name must be 30 characters or fewer")

	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Username      string    `gorm:"size:30;uniqueIndex;not null" json:"username"`
	Email         string    `gorm:"size:254;not null;default:''" json:"-"`
	Password      string    `gorm:"not null" json:"-"` // bcrypt hash
	FullName      string    `gorm:"size:30;not null;default:''" json:"full_name"`
	Biography     string    `gorm:"type:text" json:"biography"`
	GravatarEmail string    `gorm:"size:254;not null;default:''" json:"-"` // only used to look up the avatar
	Karma         int       `gorm:"not null;default:0" json:"karma"`
	IsStaff       bool      `gorm:"not null;default:false" json:"is_staff"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"` // unset instead of deleting accounts
	DateJoined    time.Time `json:"date_joined"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DisplayName is the full name if set, otherwise the username.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

func (u *User) AvatarEmail() string {
	if u.GravatarEmail != "" {
		return u.GravatarEmail
	}
	return u.Email
}

func (u *User) Validate() error {
	if utf8.RuneCountInString(u.Username) > 30 || !usernamePattern.MatchString(u.Username) {
		return ErrInvalidUsername
	}
	if utf8.RuneCountInString(u.FullName) > 30 {
		return ErrFullNameTooLong
	}
	return nil
}
