package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tasknest/tasknest-go/internal/crypto"
	"github.com/tasknest/tasknest-go/internal/model"
	"github.com/tasknest/tasknest-go/internal/repository"
)

// MinPasswordLength is the shortest password accepted at signup.
const MinPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrCredentialsMissing = errors.New("email and password are required")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrPasswordTooLong    = crypto.ErrPasswordTooLong
	ErrEmailTaken         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
)

// TokenIssuer signs identity tokens.
type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

// AuthService handles authentication business logic.
type AuthService struct {
	users      repository.UserStore
	tokens     TokenIssuer
	bcryptCost int
	// dummyHash is compared against when the email is unknown so that both
	// login failure paths spend the same bcrypt work.
	dummyHash string
}

// NewAuthService creates a new AuthService.
func NewAuthService(users repository.UserStore, tokens TokenIssuer, bcryptCost int) *AuthService {
	dummy, err := crypto.HashPassword("tasknest-dummy-password", bcryptCost)
	if err != nil {
		slog.Warn("precomputing dummy password hash failed", "error", err)
	}
	return &AuthService{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		dummyHash:  dummy,
	}
}

// Signup creates a new account and returns an auth token for it.
func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) (model.AuthResponse, error) {
	if req.Email == "" || req.Password == "" {
		return model.AuthResponse{}, ErrCredentialsMissing
	}
	if len(req.Password) < MinPasswordLength {
		return model.AuthResponse{}, ErrPasswordTooShort
	}
	if len(req.Password) > crypto.MaxPasswordBytes {
		return model.AuthResponse{}, ErrPasswordTooLong
	}

	hash, err := crypto.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return model.AuthResponse{}, err
	}

	user := &model.User{
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.AuthResponse{}, ErrEmailTaken
		}
		return model.AuthResponse{}, err
	}

	return s.respond(user, "User created successfully")
}

// Login authenticates a user and returns an auth token. An unknown email and
// a wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	if req.Email == "" || req.Password == "" {
		return model.AuthResponse{}, ErrCredentialsMissing
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_, _ = crypto.VerifyPassword(req.Password, s.dummyHash)
			return model.AuthResponse{}, ErrInvalidCredentials
		}
		return model.AuthResponse{}, err
	}

	match, err := crypto.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return model.AuthResponse{}, err
	}
	if !match {
		return model.AuthResponse{}, ErrInvalidCredentials
	}

	return s.respond(user, "Login successful")
}

// GetUser retrieves a user by ID and returns safe user data.
func (s *AuthService) GetUser(ctx context.Context, userID string) (model.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.UserResponse{}, ErrUserNotFound
		}
		return model.UserResponse{}, err
	}

	return model.UserResponse{ID: user.ID, Email: user.Email}, nil
}

func (s *AuthService) respond(user *model.User, message string) (model.AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return model.AuthResponse{}, err
	}

	return model.AuthResponse{
		Message: message,
		Token:   token,
		User: model.UserResponse{
			ID:    user.ID,
			Email: user.Email,
		},
	}, nil
}
