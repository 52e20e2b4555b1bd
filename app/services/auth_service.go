package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shashiranjanraj/kachra/app/models"
	"github.com/shashiranjanraj/kachra/app/repositories"
	"github.com/shashiranjanraj/kachra/pkg/auth"
	"github.com/shashiranjanraj/kachra/pkg/docstore"
	"github.com/shashiranjanraj/kachra/pkg/errs"
	"github.com/shashiranjanraj/kachra/pkg/logger"
	"github.com/shashiranjanraj/kachra/pkg/validate"
)

type SignUpInput struct {
	Username             string `json:"username"              validate:"required,min=2,max=50"`
	Email                string `json:"email"                 validate:"required,email"`
	Password             string `json:"password"              validate:"required,min=8,max=72"`
	PasswordConfirmation string `json:"password_confirmation" validate:"confirmed"`
	Role                 string `json:"role"                  validate:"required,in=buyer,seller"`
	CompanyName          string `json:"companyName"           validate:"nullable,max=120"`
}

type SignInInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is returned by sign-up and sign-in.
type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// AuthService signs users up and in. Sessions are stateless JWTs carrying
// the user's id, email and role.
type AuthService struct {
	users *repositories.UserRepository
}

func NewAuthService(users *repositories.UserRepository) *AuthService {
	return &AuthService{users: users}
}

// SignUp creates an account. The company name is kept only for sellers.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (Session, error) {
	const op = "auth.signup"

	in.Email = normalizeEmail(in.Email)
	if fields := validate.Struct(in); validate.HasErrors(fields) {
		return Session{}, errs.Validation(op, fields)
	}

	_, err := s.users.FindByEmail(ctx, in.Email)
	if err == nil {
		return Session{}, errs.Conflict(op, "an account with this email already exists")
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return Session{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Session{}, err
	}

	u := models.User{
		ID:           docstore.NewID(),
		Username:     strings.TrimSpace(in.Username),
		Email:        in.Email,
		Role:         in.Role,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if u.Role == models.RoleSeller {
		u.CompanyName = strings.TrimSpace(in.CompanyName)
	}

	if _, err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, docstore.ErrDuplicate) {
			return Session{}, errs.Conflict(op, "an account with this email already exists")
		}
		return Session{}, err
	}

	logger.WithCtx(ctx).Info("user signed up", "user_id", u.ID, "role", u.Role)
	return s.session(u)
}

// SignIn checks the credentials and issues a session token.
func (s *AuthService) SignIn(ctx context.Context, in SignInInput) (Session, error) {
	const op = "auth.signin"

	in.Email = normalizeEmail(in.Email)
	if fields := validate.Struct(in); validate.HasErrors(fields) {
		return Session{}, errs.Validation(op, fields)
	}

	u, err := s.users.FindByEmail(ctx, in.Email)
	if errors.Is(err, docstore.ErrNotFound) {
		return Session{}, errs.Unauthenticated(op, "invalid email or password")
	}
	if err != nil {
		return Session{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		return Session{}, errs.Unauthenticated(op, "invalid email or password")
	}
	return s.session(u)
}

// CurrentUser returns the profile of the authenticated caller.
func (s *AuthService) CurrentUser(ctx context.Context, id auth.Identity) (models.User, error) {
	u, err := s.users.FindByID(ctx, id.UserID)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.User{}, errs.NotFound("auth.me", "user %s not found", id.UserID)
	}
	return u, err
}

func (s *AuthService) session(u models.User) (Session, error) {
	token, err := auth.GenerateToken(auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: u}, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
