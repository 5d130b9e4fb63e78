package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/store"
)

var (
	ErrEmailTaken         = errors.New("email already used")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserService handles signup and login and mints the tokens the HTTP
// layer hands out.
type UserService struct {
	users     store.UserStore
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewUserService(users store.UserStore, jwtSecret []byte, tokenTTL time.Duration) *UserService {
	return &UserService{
		users:     users,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

// Signup registers a new user and returns it with a fresh token.
func (s *UserService) Signup(ctx context.Context, name, email, password string) (core.User, string, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.CreateUser(ctx, name, email, hash)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return core.User{}, "", ErrEmailTaken
		}
		return core.User{}, "", fmt.Errorf("create user: %w", err)
	}
	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return core.User{}, "", fmt.Errorf("generate token: %w", err)
	}
	return user, token, nil
}

// Login verifies the credentials and returns the user with a fresh
// token. An unknown email and a wrong password are indistinguishable to
// the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (core.User, string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.User{}, "", ErrInvalidCredentials
		}
		return core.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return core.User{}, "", ErrInvalidCredentials
	}
	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return core.User{}, "", fmt.Errorf("generate token: %w", err)
	}
	return user, token, nil
}

// Profile returns the user identified by id.
func (s *UserService) Profile(ctx context.Context, id string) (core.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return core.User{}, fmt.Errorf("fetch user: %w", err)
	}
	return user, nil
}

// VerifyToken resolves a bearer token to the user ID it names.
func (s *UserService) VerifyToken(token string) (string, error) {
	return auth.VerifyToken(token, s.jwtSecret)
}
