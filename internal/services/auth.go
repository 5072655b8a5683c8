package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/apperr"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/metrics"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/models"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/storage"
)

const minPasswordLength = 6

var errBadCredentials = apperr.Unauthorized("invalid username or password")

type AuthService struct {
	users   storage.UserStore
	tokens  *TokenIssuer
	metrics *metrics.Metrics
	log     *zap.Logger
	cost    int
}

func NewAuthService(users storage.UserStore, tokens *TokenIssuer, m *metrics.Metrics, log *zap.Logger) *AuthService {
	return &AuthService{
		users:   users,
		tokens:  tokens,
		metrics: m,
		log:     log,
		cost:    bcrypt.DefaultCost,
	}
}

func (s *AuthService) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", apperr.Internal("failed to hash password", err)
	}
	return string(h), nil
}

func (s *AuthService) issue(user *models.User) (*models.AuthResult, error) {
	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, apperr.Internal("failed to issue token", err)
	}
	return &models.AuthResult{User: user, Token: token}, nil
}

// Register creates a regular, active user and logs them in.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := models.Validate(req); err != nil {
		return nil, apperr.FromValidator(err)
	}

	exists, err := s.users.UserExists(ctx, req.Username, req.Email)
	if err != nil {
		return nil, apperr.Internal("failed to check user", err)
	}
	if exists {
		return nil, apperr.Conflict("username or email already exists")
	}

	hashed, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &models.User{
		Username:  req.Username,
		Email:     req.Email,
		HPassword: hashed,
		FullName:  req.FullName,
		Phone:     req.Phone,
		Role:      models.RoleUser,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperr.Conflict("username or email already exists")
		}
		return nil, apperr.Internal("failed to create user", err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.Hex()), zap.String("username", user.Username))
	return s.issue(user)
}

// Login accepts a username or an email together with the password.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error) {
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return nil, apperr.Validation("username and password are required")
	}

	user, err := s.users.FindUserByLogin(ctx, req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.metrics.Login("unknown_user")
			return nil, errBadCredentials
		}
		return nil, apperr.Internal("failed to find user", err)
	}
	if !user.IsActive {
		s.metrics.Login("inactive")
		return nil, apperr.Unauthorized("account is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HPassword), []byte(req.Password)); err != nil {
		s.metrics.Login("bad_password")
		return nil, errBadCredentials
	}

	s.metrics.Login("success")
	return s.issue(user)
}

// Authenticate resolves a bearer token to the caller's identity. The user is
// reloaded on every call so role changes and deactivation apply immediately.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, apperr.Unauthorized("missing token")
	}
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired token")
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.Unauthorized("user no longer exists")
		}
		return nil, apperr.Internal("failed to load user", err)
	}
	if !user.IsActive {
		return nil, apperr.Unauthorized("account is disabled")
	}
	return &models.Identity{UserID: user.ID.Hex(), Username: user.Username, Role: user.Role}, nil
}

func (s *AuthService) getUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("failed to load user", err)
	}
	return user, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.getUser(ctx, userID)
}

// UpdateProfile applies the present fields of req to the user.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req models.ProfileRequest) (*models.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var update models.ProfileRequest
	if req.FullName != nil {
		update.FullName = lo.ToPtr(strings.TrimSpace(*req.FullName))
	}
	if req.Phone != nil {
		update.Phone = lo.ToPtr(strings.TrimSpace(*req.Phone))
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if !models.ValidEmail(email) {
			return nil, apperr.Validation("validation failed",
				apperr.FieldError{Field: "email", Message: "email must be a valid email address"})
		}
		if email != user.Email {
			other, err := s.users.FindUserByEmail(ctx, email)
			switch {
			case err == nil && other.ID != user.ID:
				return nil, apperr.Conflict("email already in use")
			case err != nil && !errors.Is(err, storage.ErrNotFound):
				return nil, apperr.Internal("failed to check email", err)
			}
			update.Email = &email
		}
	}

	updated, err := s.users.UpdateUserProfile(ctx, userID, update)
	switch {
	case errors.Is(err, storage.ErrDuplicate):
		return nil, apperr.Conflict("email already in use")
	case errors.Is(err, storage.ErrNotFound):
		return nil, apperr.NotFound("user not found")
	case err != nil:
		return nil, apperr.Internal("failed to update user", err)
	}
	return updated, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	if err := models.Validate(req); err != nil {
		return apperr.FromValidator(err)
	}
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HPassword), []byte(req.CurrentPassword)); err != nil {
		return apperr.Unauthorized("current password is incorrect")
	}

	hashed, err := s.hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.SetUserPassword(ctx, userID, hashed); err != nil {
		return apperr.Internal("failed to update password", err)
	}
	return nil
}

// ListUsers returns every user, newest first.
func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to list users", err)
	}
	return users, nil
}

// ToggleUserStatus flips the active flag of a user.
func (s *AuthService) ToggleUserStatus(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.ToggleUserActive(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("failed to update user", err)
	}
	s.log.Info("user status toggled", zap.String("user_id", id), zap.Bool("is_active", user.IsActive))
	return user, nil
}

// EnsureAdmin creates the admin account unless a user with that username
// already exists. It reports whether a user was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	if len(password) < minPasswordLength {
		return false, apperr.Validation("admin password must be at least 6 characters")
	}
	existing, err := s.users.FindUserByLogin(ctx, username)
	if err == nil && existing.Username == username {
		return false, nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return false, apperr.Internal("failed to look up admin", err)
	}

	hashed, err := s.hash(password)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	admin := &models.User{
		Username:  username,
		Email:     strings.ToLower(email),
		HPassword: hashed,
		FullName:  "Administrator",
		Role:      models.RoleAdmin,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.CreateUser(ctx, admin); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return false, apperr.Conflict("admin email already belongs to another user")
		}
		return false, apperr.Internal("failed to create admin", err)
	}
	s.log.Info("admin user created", zap.String("username", username))
	return true, nil
}
