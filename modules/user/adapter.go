package user

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/todo-tracker/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// UserPort defines the user operations other modules depend on.
type UserPort interface {
	Register(ctx context.Context, req *RegisterRequest) (*UserInfo, error)
	Login(ctx context.Context, email, password string) (*domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	ValidateToken(ctx context.Context, token string) (*domain.Claims, error)
	GetUser(ctx context.Context, userID string) (*UserInfo, error)
	ListAssignableUsers(ctx context.Context, excludingID string) ([]AssignableUser, error)
	GetProfilePicture(ctx context.Context, userID string) (*ProfilePicture, error)
}

// userAdapter wraps ServiceContainer for type-safe cross-module communication.
type userAdapter struct {
	container mono.ServiceContainer
}

// NewUserAdapter creates a new adapter for user services.
// container is the ServiceContainer received via SetDependencyServiceContainer.
func NewUserAdapter(container mono.ServiceContainer) UserPort {
	if container == nil {
		panic("user adapter requires non-nil ServiceContainer")
	}
	return &userAdapter{container: container}
}

func call[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s service call failed: %w", service, err)
	}
	return nil
}

// Register creates an account via the register service.
func (a *userAdapter) Register(ctx context.Context, req *RegisterRequest) (*UserInfo, error) {
	var resp RegisterResponse
	if err := call(ctx, a.container, "register", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	return resp.User, nil
}

// Login exchanges credentials for tokens via the login service.
func (a *userAdapter) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	req := LoginRequest{Email: email, Password: password}
	var resp TokenResponse
	if err := call(ctx, a.container, "login", &req, &resp); err != nil {
		return nil, err
	}
	return resp.tokenPair()
}

// Refresh exchanges a refresh token via the refresh-token service.
func (a *userAdapter) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	req := RefreshRequest{RefreshToken: refreshToken}
	var resp TokenResponse
	if err := call(ctx, a.container, "refresh-token", &req, &resp); err != nil {
		return nil, err
	}
	return resp.tokenPair()
}

func (r *TokenResponse) tokenPair() (*domain.TokenPair, error) {
	if r.Error != nil {
		return nil, r.Error.Err()
	}
	return &domain.TokenPair{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresIn:    r.ExpiresIn,
		TokenType:    r.TokenType,
	}, nil
}

// ValidateToken resolves an access token via the validate-token service.
func (a *userAdapter) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse
	if err := call(ctx, a.container, "validate-token", &req, &resp); err != nil {
		return nil, err
	}
	if !resp.Valid {
		if resp.Error == "token expired" {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	return &domain.Claims{
		UserID:  resp.UserID,
		Email:   resp.Email,
		Name:    resp.Name,
		IsAdmin: resp.IsAdmin,
	}, nil
}

// GetUser looks a user up via the get-user service.
func (a *userAdapter) GetUser(ctx context.Context, userID string) (*UserInfo, error) {
	req := GetUserRequest{UserID: userID}
	var resp GetUserResponse
	if err := call(ctx, a.container, "get-user", &req, &resp); err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, ErrUserNotFound
	}
	return resp.User, nil
}

// ListAssignableUsers lists candidate assignees via the list-assignable-users service.
func (a *userAdapter) ListAssignableUsers(ctx context.Context, excludingID string) ([]AssignableUser, error) {
	req := ListAssignableUsersRequest{ExcludingID: excludingID}
	var resp ListAssignableUsersResponse
	if err := call(ctx, a.container, "list-assignable-users", &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	return resp.Users, nil
}

// GetProfilePicture fetches picture bytes via the get-profile-picture service.
func (a *userAdapter) GetProfilePicture(ctx context.Context, userID string) (*ProfilePicture, error) {
	req := GetProfilePictureRequest{UserID: userID}
	var resp GetProfilePictureResponse
	if err := call(ctx, a.container, "get-profile-picture", &req, &resp); err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, ErrUserNotFound
	}
	return resp.Picture, nil
}
