package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smart-todo-api/pkg/errs"
	"smart-todo-api/pkg/models"
	"smart-todo-api/pkg/store"

	"github.com/gin-gonic/gin"
)

type failingLookup struct{ err error }

func (f failingLookup) GetUserByUsername(context.Context, string) (models.User, error) {
	return models.User{}, f.err
}

func newResolverFixture(t *testing.T) (*Resolver, *Tokens, models.User) {
	t.Helper()
	users := store.NewMemory()
	alice := models.User{ID: "user-alice", Username: "alice", PasswordHash: "x"}
	if err := users.CreateUser(context.Background(), alice); err != nil {
		t.Fatalf("create user: %v", err)
	}
	tokens := newTestTokens(t, nil)
	return NewResolver(tokens, users), tokens, alice
}

func TestResolve(t *testing.T) {
	resolver, tokens, alice := newResolverFixture(t)

	token, err := tokens.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != alice.ID {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestResolveBadTokenAndUnknownUserAreIdentical(t *testing.T) {
	resolver, tokens, _ := newResolverFixture(t)

	ghostToken, err := tokens.Issue("ghost")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, badErr := resolver.Resolve(context.Background(), "garbage")
	_, ghostErr := resolver.Resolve(context.Background(), ghostToken)

	for _, err := range []error{badErr, ghostErr} {
		if !errors.Is(err, errs.Unauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	}
	if badErr.Error() != ghostErr.Error() {
		t.Fatalf("errors differ: %q vs %q", badErr, ghostErr)
	}
}

func TestResolveStorageFailureIsInternal(t *testing.T) {
	tokens := newTestTokens(t, nil)
	resolver := NewResolver(tokens, failingLookup{err: errors.New("connection reset")})

	token, err := tokens.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, err = resolver.Resolve(context.Background(), token)
	if !errors.Is(err, errs.Internal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"BEARER  abc ", "abc", true},
		{"", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"abc.def.ghi", "", false},
	}
	for _, tt := range tests {
		got, ok := bearerToken(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("bearerToken(%q) = (%q, %v), want (%q, %v)", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func newMiddlewareRouter(resolver *Resolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", resolver.Middleware(), func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no user"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"username": user.Username})
	})
	return r
}

func TestMiddleware(t *testing.T) {
	resolver, tokens, _ := newResolverFixture(t)
	router := newMiddlewareRouter(resolver)

	valid, err := tokens.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	ghost, err := tokens.Issue("ghost")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	expiredTokens, err := NewTokens(testSecret, time.Minute, fixedClock(time.Now().Add(-time.Hour)))
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	expired, err := expiredTokens.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Token " + valid, http.StatusUnauthorized},
		{"garbage", "Bearer garbage", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"unknown user", "Bearer " + ghost, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if tt.wantStatus == http.StatusOK {
				if body["username"] != "alice" {
					t.Fatalf("unexpected body: %v", body)
				}
				return
			}
			if body["error"] != MsgCouldNotValidate {
				t.Fatalf("unexpected error body: %v", body)
			}
			if w.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Fatalf("expected WWW-Authenticate challenge, got %q", w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestMiddlewareStoresUserInBothContexts(t *testing.T) {
	resolver, tokens, alice := newResolverFixture(t)
	token, err := tokens.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", resolver.Middleware(), func(c *gin.Context) {
		v, ok := c.Get(ContextUserKey)
		fromGin, _ := v.(models.User)
		fromReq, reqOK := UserFromContext(c.Request.Context())
		if !ok || !reqOK || fromGin.ID != alice.ID || fromReq.ID != alice.ID {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected user in gin and request context, got %d", w.Code)
	}
}

func TestCurrentUserWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := CurrentUser(c); ok {
		t.Fatal("expected no user")
	}

	c.Set(ContextUserKey, models.User{Username: "bob"})
	if user, ok := CurrentUser(c); !ok || user.Username != "bob" {
		t.Fatalf("expected bob from gin context, got %+v %v", user, ok)
	}
}

func TestMiddlewareStorageFailure(t *testing.T) {
	tokens := newTestTokens(t, nil)
	router := newMiddlewareRouter(NewResolver(tokens, failingLookup{err: errors.New("connection reset")}))

	token, err := tokens.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestUserContextRoundTrip(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Fatal("expected no user in empty context")
	}
	ctx := WithUser(context.Background(), models.User{ID: "u1"})
	user, ok := UserFromContext(ctx)
	if !ok || user.ID != "u1" {
		t.Fatalf("unexpected user: %+v %v", user, ok)
	}
}
