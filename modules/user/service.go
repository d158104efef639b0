package user

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	domain "github.com/example/todo-tracker/domain/user"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// MaxProfilePictureBytes caps an uploaded profile picture.
const MaxProfilePictureBytes = 300 * 1024

// UserService handles account business logic.
type UserService struct {
	repo        *UserRepository
	hasher      *PasswordHasher
	jwt         *JWTManager
	validate    *validator.Validate
	adminEmails map[string]bool
}

// NewUserService creates a new UserService. Accounts registered with one of
// adminEmails are created as administrators.
func NewUserService(repo *UserRepository, hasher *PasswordHasher, jwt *JWTManager, adminEmails []string) *UserService {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		if e = normalizeEmail(e); e != "" {
			admins[e] = true
		}
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})

	return &UserService{
		repo:        repo,
		hasher:      hasher,
		jwt:         jwt,
		validate:    v,
		adminEmails: admins,
	}
}

// Register creates a new user account.
func (s *UserService) Register(_ context.Context, req RegisterRequest) (*domain.User, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = normalizeEmail(req.Email)

	if fe := s.validateRegistration(req); fe != nil {
		return nil, fe
	}

	exists, err := s.repo.EmailExists(req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: passwordHash,
		IsAdmin:      s.adminEmails[req.Email],
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if len(req.ProfilePicture) > 0 {
		user.ProfilePicture = req.ProfilePicture
		user.ProfilePictureType = strings.ToLower(req.ProfilePictureType)
	}

	if err := s.repo.Create(user); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (s *UserService) validateRegistration(req RegisterRequest) *FormError {
	fe := &FormError{}

	var fieldErrs validator.ValidationErrors
	if err := s.validate.Struct(req); errors.As(err, &fieldErrs) {
		for _, e := range fieldErrs {
			fe.add(e.Field(), registrationMessage(e))
		}
	}

	if len(req.ProfilePicture) > 0 {
		if !strings.HasPrefix(strings.ToLower(req.ProfilePictureType), "image/") {
			fe.add("profilePicture", "file must be an image")
		}
		if len(req.ProfilePicture) > MaxProfilePictureBytes {
			fe.add("profilePicture", fmt.Sprintf("file must not be larger than %d KB", MaxProfilePictureBytes/1024))
		}
	}

	if len(fe.Fields) == 0 {
		return nil
	}
	return fe
}

func registrationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "email":
		return "email is not a valid address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param())
	case "eqfield":
		return "passwords do not match"
	}
	return fmt.Sprintf("%s is invalid", e.Field())
}

// Login authenticates a user and returns tokens.
func (s *UserService) Login(_ context.Context, email, password string) (*domain.TokenPair, error) {
	user, err := s.repo.FindByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokenPair(user)
}

// RefreshTokens exchanges a refresh token for a new pair. The user is looked
// up again so a changed admin flag takes effect.
func (s *UserService) RefreshTokens(_ context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return s.generateTokenPair(user)
}

// ValidateToken validates an access token and returns the identity it holds.
func (s *UserService) ValidateToken(_ context.Context, token string) (*domain.Claims, error) {
	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}

	return &domain.Claims{
		UserID:  claims.UserID,
		Email:   claims.Email,
		Name:    claims.Name,
		IsAdmin: claims.IsAdmin,
	}, nil
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(_ context.Context, userID string) (*domain.User, error) {
	return s.repo.FindByID(userID)
}

// ListAssignable returns every user except excludingID, ordered by id.
func (s *UserService) ListAssignable(_ context.Context, excludingID string) ([]AssignableUser, error) {
	users, err := s.repo.ListExcept(excludingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := make([]AssignableUser, 0, len(users))
	for i := range users {
		out = append(out, AssignableUser{ID: users[i].ID, DisplayName: users[i].FullName()})
	}
	return out, nil
}

func (s *UserService) generateTokenPair(user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwt.GenerateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.jwt.AccessTokenDuration(),
		TokenType:    "Bearer",
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUserInfo(u *domain.User) *UserInfo {
	return &UserInfo{
		ID:                u.ID,
		Email:             u.Email,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Name:              u.FullName(),
		IsAdmin:           u.IsAdmin,
		HasProfilePicture: u.HasProfilePicture(),
		CreatedAt:         u.CreatedAt,
	}
}
