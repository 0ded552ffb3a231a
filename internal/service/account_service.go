package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medi-kart/internal/auth"
	"medi-kart/internal/model"
	"medi-kart/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const minPasswordLength = 6

// accountService implements AccountService.
type accountService struct {
	users  repository.UserRepository
	tokens TokenIssuer
	policy *auth.Policy
	logger zerolog.Logger
	now    func() time.Time
}

// NewAccountService creates a new account service.
func NewAccountService(users repository.UserRepository, tokens TokenIssuer, policy *auth.Policy, logger zerolog.Logger) AccountService {
	return &accountService{
		users:  users,
		tokens: tokens,
		policy: policy,
		logger: logger.With().Str("service", "account").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an account and returns it with a fresh token.
func (s *accountService) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	if req == nil {
		return nil, model.NewValidationError("Registration details are required")
	}

	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" || req.Password == "" {
		return nil, model.NewValidationError("Name, email and password are required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, model.NewValidationError("Password must be at least %d characters", minPasswordLength)
	}

	role := req.Role
	if role == "" {
		role = model.RolePatient
	}
	if !role.Valid() {
		return nil, model.NewValidationError("Invalid role: %q", role)
	}
	if role == model.RoleAdmin {
		return nil, model.NewValidationError("Administrator accounts cannot be self-registered")
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		return nil, model.ErrUserExists
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Phone:        strings.TrimSpace(req.Phone),
		DateOfBirth:  req.DateOfBirth,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// the unique index still guards against a concurrent registration
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID.String()).
		Str("role", string(user.Role)).
		Msg("user registered")

	return s.authenticated(user)
}

// Login verifies credentials and issues a token.
func (s *accountService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	if req == nil {
		return nil, model.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.logger.Debug().Str("email", req.Email).Msg("login rejected")
		return nil, model.ErrInvalidCredentials
	}

	return s.authenticated(user)
}

// Profile returns the caller's account.
func (s *accountService) Profile(ctx context.Context, principal model.Principal) (*model.User, error) {
	if err := s.policy.Authorize(auth.OpViewProfile, principal); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, model.ErrUserNotFound
	}
	return user, nil
}

func (s *accountService) authenticated(user *model.User) (*model.AuthResponse, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to issue token")
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &model.AuthResponse{User: user, Token: token}, nil
}
