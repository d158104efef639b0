package user

import (
	"strings"
	"time"
)

// User represents an account in the system.
type User struct {
	ID                 string `gorm:"primaryKey;type:text"`
	Email              string `gorm:"uniqueIndex;not null;type:text"`
	FirstName          string `gorm:"not null;size:20"`
	LastName           string `gorm:"not null;size:20"`
	PasswordHash       string `gorm:"not null;type:text"`
	IsAdmin            bool   `gorm:"not null;default:false"`
	ProfilePicture     []byte `gorm:"type:blob"`
	ProfilePictureType string `gorm:"type:text"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// FullName is the display name shown to other users.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasProfilePicture reports whether a picture was uploaded.
func (u *User) HasProfilePicture() bool {
	return len(u.ProfilePicture) > 0
}

// TokenPair represents access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Claims is the identity resolved from a valid access token.
type Claims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}
