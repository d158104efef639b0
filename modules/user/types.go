package user

import (
	"time"
)

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	FirstName          string `json:"firstName" validate:"required,max=20"`
	LastName           string `json:"lastName" validate:"required,max=20"`
	Email              string `json:"email" validate:"required,email,max=254"`
	Password           string `json:"password" validate:"required,min=5,max=50"`
	ConfirmPassword    string `json:"confirmPassword" validate:"required,eqfield=Password"`
	ProfilePicture     []byte `json:"profilePicture,omitempty" validate:"-"`
	ProfilePictureType string `json:"profilePictureType,omitempty" validate:"-"`
}

// RegisterResponse represents a user registration response.
type RegisterResponse struct {
	User  *UserInfo     `json:"user,omitempty"`
	Error *ServiceError `json:"error,omitempty"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a fresh token pair from login or refresh.
type TokenResponse struct {
	AccessToken  string        `json:"access_token,omitempty"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	ExpiresIn    int64         `json:"expires_in,omitempty"`
	TokenType    string        `json:"token_type,omitempty"`
	Error        *ServiceError `json:"error,omitempty"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ValidateTokenRequest represents a token validation request.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse represents a token validation response.
type ValidateTokenResponse struct {
	Valid   bool   `json:"valid"`
	UserID  string `json:"user_id,omitempty"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	IsAdmin bool   `json:"is_admin,omitempty"`
	Error   string `json:"error,omitempty"`
}

// UserInfo is the public view of an account.
type UserInfo struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Name              string    `json:"name"`
	IsAdmin           bool      `json:"is_admin"`
	HasProfilePicture bool      `json:"has_profile_picture"`
	CreatedAt         time.Time `json:"created_at"`
}

// GetUserRequest represents a get user request.
type GetUserRequest struct {
	UserID string `json:"user_id"`
}

// GetUserResponse represents a get user response.
type GetUserResponse struct {
	User  *UserInfo `json:"user,omitempty"`
	Found bool      `json:"found"`
}

// AssignableUser is one entry of the assignee picker.
type AssignableUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// ListAssignableUsersRequest asks for every user except ExcludingID.
type ListAssignableUsersRequest struct {
	ExcludingID string `json:"excluding_id"`
}

// ListAssignableUsersResponse lists users ordered by id.
type ListAssignableUsersResponse struct {
	Users []AssignableUser `json:"users"`
	Error *ServiceError    `json:"error,omitempty"`
}

// ProfilePicture is the stored picture of a user.
type ProfilePicture struct {
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// GetProfilePictureRequest asks for the picture of UserID.
type GetProfilePictureRequest struct {
	UserID string `json:"user_id"`
}

// GetProfilePictureResponse carries the picture when one exists.
type GetProfilePictureResponse struct {
	Picture *ProfilePicture `json:"picture,omitempty"`
	Found   bool            `json:"found"`
}
