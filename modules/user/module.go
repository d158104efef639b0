package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	domain "github.com/example/todo-tracker/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config configures the user module.
type Config struct {
	DBPath      string
	JWT         JWTConfig
	AdminEmails []string
	BcryptCost  int
}

// UserModule is the identity provider: accounts, credentials and tokens.
type UserModule struct {
	cfg     Config
	db      *gorm.DB
	service *UserService
}

// Compile-time interface checks.
var _ mono.Module = (*UserModule)(nil)
var _ mono.ServiceProviderModule = (*UserModule)(nil)
var _ mono.HealthCheckableModule = (*UserModule)(nil)

// NewModule creates a new UserModule.
func NewModule(cfg Config) *UserModule {
	if cfg.DBPath == "" {
		cfg.DBPath = "users.db"
	}
	if cfg.JWT.SecretKey == "" {
		cfg.JWT = DefaultJWTConfig()
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultBcryptCost
	}
	return &UserModule{cfg: cfg}
}

// Name returns the module name.
func (m *UserModule) Name() string {
	return "user"
}

// Start opens the database and wires the service.
func (m *UserModule) Start(_ context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.cfg.DBPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&domain.User{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.service = NewUserService(
		NewUserRepository(db),
		NewPasswordHasherWithCost(m.cfg.BcryptCost),
		NewJWTManager(m.cfg.JWT),
		m.cfg.AdminEmails,
	)

	log.Printf("[user] Module started (database: %s, admins configured: %d)", m.cfg.DBPath, len(m.cfg.AdminEmails))
	return nil
}

// Stop closes the database.
func (m *UserModule) Stop(_ context.Context) error {
	if m.db != nil {
		if sqlDB, err := m.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[user] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *UserModule) Health(_ context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{Healthy: false, Message: "database not initialized"}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}
	if err := sqlDB.Ping(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.cfg.DBPath,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *UserModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "register", json.Unmarshal, json.Marshal, m.handleRegister,
	); err != nil {
		return fmt.Errorf("failed to register register service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "login", json.Unmarshal, json.Marshal, m.handleLogin,
	); err != nil {
		return fmt.Errorf("failed to register login service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "refresh-token", json.Unmarshal, json.Marshal, m.handleRefresh,
	); err != nil {
		return fmt.Errorf("failed to register refresh-token service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "validate-token", json.Unmarshal, json.Marshal, m.handleValidateToken,
	); err != nil {
		return fmt.Errorf("failed to register validate-token service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-user", json.Unmarshal, json.Marshal, m.handleGetUser,
	); err != nil {
		return fmt.Errorf("failed to register get-user service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-assignable-users", json.Unmarshal, json.Marshal, m.handleListAssignable,
	); err != nil {
		return fmt.Errorf("failed to register list-assignable-users service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-profile-picture", json.Unmarshal, json.Marshal, m.handleGetProfilePicture,
	); err != nil {
		return fmt.Errorf("failed to register get-profile-picture service: %w", err)
	}

	log.Printf("[user] Registered services: register, login, refresh-token, validate-token, get-user, list-assignable-users, get-profile-picture")
	return nil
}

func (m *UserModule) handleRegister(ctx context.Context, req RegisterRequest, _ *mono.Msg) (RegisterResponse, error) {
	user, err := m.service.Register(ctx, req)
	if err != nil {
		se := toServiceError(err)
		if se.Code == CodeInternal {
			log.Printf("[user] Registration failed: %v", err)
		}
		return RegisterResponse{Error: se}, nil
	}

	log.Printf("[user] Registered user %s (admin: %v)", user.ID, user.IsAdmin)
	return RegisterResponse{User: toUserInfo(user)}, nil
}

func (m *UserModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (TokenResponse, error) {
	tokens, err := m.service.Login(ctx, req.Email, req.Password)
	return tokenResponse(tokens, err), nil
}

func (m *UserModule) handleRefresh(ctx context.Context, req RefreshRequest, _ *mono.Msg) (TokenResponse, error) {
	tokens, err := m.service.RefreshTokens(ctx, req.RefreshToken)
	return tokenResponse(tokens, err), nil
}

func tokenResponse(tokens *domain.TokenPair, err error) TokenResponse {
	if err != nil {
		se := toServiceError(err)
		if se.Code == CodeInternal {
			log.Printf("[user] Token issue failed: %v", err)
		}
		return TokenResponse{Error: se}
	}
	return TokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		TokenType:    tokens.TokenType,
	}
}

func (m *UserModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.service.ValidateToken(ctx, req.Token)
	if err != nil {
		errMsg := "invalid token"
		if errors.Is(err, ErrExpiredToken) {
			errMsg = "token expired"
		}
		// Validation failures are a normal response, not a service error.
		return ValidateTokenResponse{Valid: false, Error: errMsg}, nil
	}

	return ValidateTokenResponse{
		Valid:   true,
		UserID:  claims.UserID,
		Email:   claims.Email,
		Name:    claims.Name,
		IsAdmin: claims.IsAdmin,
	}, nil
}

func (m *UserModule) handleGetUser(ctx context.Context, req GetUserRequest, _ *mono.Msg) (GetUserResponse, error) {
	user, err := m.service.GetUser(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return GetUserResponse{Found: false}, nil
		}
		return GetUserResponse{}, err
	}
	return GetUserResponse{User: toUserInfo(user), Found: true}, nil
}

func (m *UserModule) handleListAssignable(ctx context.Context, req ListAssignableUsersRequest, _ *mono.Msg) (ListAssignableUsersResponse, error) {
	users, err := m.service.ListAssignable(ctx, req.ExcludingID)
	if err != nil {
		log.Printf("[user] Listing assignable users failed: %v", err)
		return ListAssignableUsersResponse{Users: []AssignableUser{}, Error: toServiceError(err)}, nil
	}
	return ListAssignableUsersResponse{Users: users}, nil
}

func (m *UserModule) handleGetProfilePicture(ctx context.Context, req GetProfilePictureRequest, _ *mono.Msg) (GetProfilePictureResponse, error) {
	user, err := m.service.GetUser(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return GetProfilePictureResponse{Found: false}, nil
		}
		return GetProfilePictureResponse{}, err
	}
	if !user.HasProfilePicture() {
		return GetProfilePictureResponse{Found: false}, nil
	}
	return GetProfilePictureResponse{
		Found: true,
		Picture: &ProfilePicture{
			ContentType: user.ProfilePictureType,
			Data:        user.ProfilePicture,
		},
	}, nil
}
