package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"smart-todo-api/pkg/errs"
	"smart-todo-api/pkg/models"
	"smart-todo-api/pkg/store"

	"github.com/gin-gonic/gin"
)

const (
	// ContextUserKey is the gin context key holding the authenticated user.
	ContextUserKey = "user"

	// MsgCouldNotValidate is the single message for every authentication
	// failure so callers cannot tell a bad token from an unknown user.
	MsgCouldNotValidate = "Could not validate credentials"
)

// ErrUnauthorized is returned by Resolve for any authentication failure.
var ErrUnauthorized = errs.New(errs.CodeUnauthorized, MsgCouldNotValidate)

// UserLookup finds users by username.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}

// Resolver turns bearer tokens into users.
type Resolver struct {
	tokens *Tokens
	users  UserLookup
}

// NewResolver creates a Resolver.
func NewResolver(tokens *Tokens, users UserLookup) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// Resolve validates token and loads the user it names.
func (r *Resolver) Resolve(ctx context.Context, token string) (models.User, error) {
	username, err := r.tokens.Validate(token)
	if err != nil {
		return models.User{}, ErrUnauthorized
	}

	user, err := r.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.User{}, ErrUnauthorized
		}
		return models.User{}, errs.Wrap(errs.CodeInternal, "load user", err)
	}
	return user, nil
}

// Middleware returns a Gin middleware that requires a valid bearer token
func (r *Resolver) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c)
			return
		}

		user, err := r.Resolve(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, errs.Unauthorized) {
				abortUnauthorized(c)
				return
			}
			log.Printf("auth: resolve user: %v", err)
			status, msg := errs.Public(err)
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}

		c.Set(ContextUserKey, user)
		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), user))
		c.Next()
	}
}

// CurrentUser returns the user stored by Middleware.
func CurrentUser(c *gin.Context) (models.User, bool) {
	if v, ok := c.Get(ContextUserKey); ok {
		if user, ok := v.(models.User); ok {
			return user, true
		}
	}
	return UserFromContext(c.Request.Context())
}

// bearerToken extracts the credentials of an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

func abortUnauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": MsgCouldNotValidate})
}

type userKey struct{}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, user models.User) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the authenticated user stored in ctx.
func UserFromContext(ctx context.Context) (models.User, bool) {
	if ctx == nil {
		return models.User{}, false
	}
	user, ok := ctx.Value(userKey{}).(models.User)
	return user, ok
}
