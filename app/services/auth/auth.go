// Package auth registers shoppers and exchanges credentials for tokens.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/app/repositories"
	"github.com/shashiranjanraj/kirana/app/services/errs"
	jwtauth "github.com/shashiranjanraj/kirana/pkg/auth"
	"github.com/shashiranjanraj/kirana/pkg/logger"
	"github.com/shashiranjanraj/kirana/pkg/store"
	"github.com/shashiranjanraj/kirana/pkg/validate"
)

type credentialsError struct{}

func (credentialsError) Error() string   { return "invalid credentials" }
func (credentialsError) HTTPStatus() int { return http.StatusUnauthorized }

// ErrInvalidCredentials covers an unknown email, a wrong password and a bad
// refresh token alike.
var ErrInvalidCredentials error = credentialsError{}

type RegisterInput struct {
	Name     string `json:"name"     validate:"required,max=255"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Account is the user as handlers may return it.
type Account struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func accountOf(u models.User) Account {
	return Account{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type Tokens struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	User         Account `json:"user"`
}

type Service struct {
	users *repositories.UserRepository
}

func New(db store.Client) *Service {
	return &Service{users: repositories.NewUserRepository(db)}
}

func issue(u models.User) (Tokens, error) {
	access, err := jwtauth.GenerateToken(u.ID, u.Role)
	if err != nil {
		return Tokens{}, err
	}
	refresh, err := jwtauth.GenerateRefreshToken(u.ID, u.Role)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{AccessToken: access, RefreshToken: refresh, User: accountOf(u)}, nil
}

// Register creates a shopper account. Pass role to create an admin from
// the seeders or CLI.
func (s *Service) Register(ctx context.Context, in RegisterInput, role string) (Tokens, error) {
	if fields := validate.Struct(in); validate.HasErrors(fields) {
		return Tokens{}, &errs.ValidationError{Errors: fields}
	}
	if role == "" {
		role = jwtauth.RoleShopper
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return Tokens{}, errs.Invalid("email", "The email has already been taken.")
	} else if !errors.Is(err, store.ErrNotFound) {
		return Tokens{}, err
	}

	hash, err := jwtauth.HashPassword(in.Password)
	if err != nil {
		return Tokens{}, err
	}
	u := models.User{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     email,
		Password:  hash,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return Tokens{}, errs.Invalid("email", "The email has already been taken.")
		}
		return Tokens{}, errs.RemoteWrite("register", err)
	}
	logger.WithCtx(ctx).Info("auth: account registered", "user_id", u.ID, "role", role)
	return issue(u)
}

func (s *Service) Login(ctx context.Context, in LoginInput) (Tokens, error) {
	if fields := validate.Struct(in); validate.HasErrors(fields) {
		return Tokens{}, &errs.ValidationError{Errors: fields}
	}
	u, err := s.users.FindByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return Tokens{}, ErrInvalidCredentials
	}
	if err != nil {
		return Tokens{}, err
	}
	if !jwtauth.CheckPassword(u.Password, in.Password) {
		logger.WithCtx(ctx).Warn("auth: wrong password", "user_id", u.ID)
		return Tokens{}, ErrInvalidCredentials
	}
	return issue(u)
}

// Refresh trades a valid token for a fresh pair, re-reading the role so a
// demoted admin loses access on the next refresh.
func (s *Service) Refresh(ctx context.Context, token string) (Tokens, error) {
	claims, err := jwtauth.ValidateToken(token)
	if err != nil {
		return Tokens{}, ErrInvalidCredentials
	}
	u, err := s.users.Find(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return Tokens{}, ErrInvalidCredentials
	}
	if err != nil {
		return Tokens{}, err
	}
	return issue(u)
}

func (s *Service) Me(ctx context.Context, id string) (Account, error) {
	u, err := s.users.Find(ctx, id)
	if err != nil {
		return Account{}, err
	}
	return accountOf(u), nil
}
