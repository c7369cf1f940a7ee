package auth

import (
	"context"
	"errors"
	"time"

	"smart-todo-api/pkg/errs"
	"smart-todo-api/pkg/models"
	"smart-todo-api/pkg/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"
)

var tracer = otel.Tracer("smart-todo-api/pkg/auth")

// User-facing messages.
const (
	MsgUsernameTaken  = "Username already taken"
	MsgIncorrectLogin = "Incorrect username or password"
	MsgRegistered     = "User created successfully"
	TokenTypeBearer   = "bearer"
)

// Accounts registers users and exchanges credentials for access tokens.
type Accounts struct {
	users  store.UserStore
	tokens *Tokens
	now    func() time.Time
}

// NewAccounts creates an account service. A nil now uses time.Now.
func NewAccounts(users store.UserStore, tokens *Tokens, now func() time.Time) *Accounts {
	if now == nil {
		now = time.Now
	}
	return &Accounts{users: users, tokens: tokens, now: now}
}

// Register creates a user with a hashed password.
func (a *Accounts) Register(ctx context.Context, username, password string) (models.User, error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer span.End()

	hash, err := HashPassword(password)
	if err != nil {
		span.SetStatus(codes.Error, "hash password")
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return models.User{}, errs.Wrap(errs.CodeBadRequest, "Password too long", err)
		}
		return models.User{}, errs.Wrap(errs.CodeInternal, "hash password", err)
	}

	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    a.now().UTC(),
	}
	if err := a.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			return models.User{}, errs.New(errs.CodeValidationConflict, MsgUsernameTaken)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "create user")
		return models.User{}, errs.Wrap(errs.CodeInternal, "create user", err)
	}
	return user, nil
}

// Login verifies credentials and issues an access token. Unknown users and
// wrong passwords produce the same error.
func (a *Accounts) Login(ctx context.Context, username, password string) (models.TokenResponse, error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer span.End()

	user, err := a.users.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load user")
		return models.TokenResponse{}, errs.Wrap(errs.CodeInternal, "load user", err)
	}
	if err != nil || !VerifyPassword(password, user.PasswordHash) {
		return models.TokenResponse{}, errs.New(errs.CodeInvalidCredentials, MsgIncorrectLogin)
	}

	token, err := a.tokens.Issue(user.Username)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "issue token")
		return models.TokenResponse{}, errs.Wrap(errs.CodeInternal, "issue token", err)
	}
	return models.TokenResponse{AccessToken: token, TokenType: TokenTypeBearer}, nil
}
