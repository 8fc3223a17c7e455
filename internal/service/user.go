// Package service holds the business rules. Services know nothing about
// HTTP: they take plain values and return domain types or apperror values.
//
//	Handler (HTTP) → Service (rules) → Repository (DB)
//	               ↘ TokenService / PasswordService / Emitter
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/marketplace-api/internal/apperror"
	"github.com/sakif/marketplace-api/internal/auth"
	"github.com/sakif/marketplace-api/internal/event"
	"github.com/sakif/marketplace-api/internal/model"
	"github.com/sakif/marketplace-api/internal/repository"
)

// EventEmitter schedules a domain event for background delivery.
// *event.Emitter satisfies it.
type EventEmitter interface {
	Emit(ctx context.Context, name string, payload any)
}

// UserService handles registration, login and the current user's account.
type UserService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	events    EventEmitter
	logger    *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	events EventEmitter,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		events:    events,
		logger:    logger,
	}
}

// AuthResult bundles a user with a freshly issued token.
type AuthResult struct {
	User  *model.User
	Token string
}

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// UpdateInput is a partial update: nil fields are left untouched.
type UpdateInput struct {
	Username *string
	Email    *string
	Bio      *string
	Image    *string
	Password *string
}

// UserCreatedPayload is the body of the user_created event.
type UserCreatedPayload struct {
	Username string `json:"username"`
}

// Register validates and stores a new account, emits user_created and issues
// a token. Username and email are stored lowercased.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	reg := registration{
		userFields: userFields{
			Username: normalize(in.Username),
			Email:    normalize(in.Email),
		},
		Password: in.Password,
	}
	if err := validateStruct(reg); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(reg.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: registering %q: %w", reg.Username, err)
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	s.events.Emit(ctx, event.UserCreated, UserCreatedPayload{Username: user.Username})

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/user: issuing token for %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Login checks email and password. Email is checked for presence before
// password; an unknown email and a wrong password fail identically.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalize(email)
	if email == "" {
		return nil, apperror.Blank("email")
	}
	if password == "" {
		return nil, apperror.Blank("password")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/user: looking up login email: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("login rejected", slog.String("user_id", user.ID))
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/user: verifying password: %w", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/user: issuing token for %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// Current returns the caller's account. A missing user is reported as
// apperror.ErrNotFound.
func (s *UserService) Current(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching %s: %w", userID, err)
	}
	return user, nil
}

// Update applies the present fields of in to the caller's account and
// re-validates the result.
func (s *UserService) Update(ctx context.Context, userID string, in UpdateInput) (*model.User, error) {
	user, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Username != nil {
		user.Username = normalize(*in.Username)
	}
	if in.Email != nil {
		user.Email = normalize(*in.Email)
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	if in.Image != nil {
		user.Image = *in.Image
	}

	if err := validateStruct(userFields{Username: user.Username, Email: user.Email}); err != nil {
		return nil, err
	}

	if in.Password != nil {
		hash, err := s.passwords.Hash(*in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: updating %s: %w", userID, err)
	}

	s.logger.Info("user updated", slog.String("user_id", user.ID))
	return user, nil
}

// ToggleVerified flips the caller's verification flag and persists it.
func (s *UserService) ToggleVerified(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.IsVerified = !user.IsVerified
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: toggling verification of %s: %w", userID, err)
	}

	s.logger.Info("verification toggled",
		slog.String("user_id", user.ID),
		slog.Bool("is_verified", user.IsVerified),
	)
	return user, nil
}
