package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Dan9191/recipe-service/internal/apperr"
	"github.com/Dan9191/recipe-service/internal/auth"
	"github.com/Dan9191/recipe-service/internal/models"
	"github.com/Dan9191/recipe-service/internal/repository"
	"github.com/Dan9191/recipe-service/internal/response"
	"github.com/gorilla/mux"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const bearerPrefix = "Bearer "

type ctxKey string

const claimsKey ctxKey = "claims"

// TokenValidator checks an access token and returns its claims
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// UserFinder looks accounts up by email
type UserFinder interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Gate guards routes with bearer token authentication
type Gate struct {
	tokens TokenValidator
	users  UserFinder
	log    *logrus.Logger
}

// NewGate initializes an auth gate
func NewGate(tokens TokenValidator, users UserFinder, log *logrus.Logger) *Gate {
	return &Gate{tokens: tokens, users: users, log: log}
}

// Authorize returns a middleware admitting requests that carry a valid token
// for an active account whose role is one of roles. An empty roles list
// admits any authenticated account.
func (g *Gate) Authorize(roles ...models.Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := g.authenticate(r, roles)
			if err != nil {
				response.Error(w, g.log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func (g *Gate) authenticate(r *http.Request, roles []models.Role) (*auth.Claims, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, apperr.ErrHeaderMalformed
	}

	claims, err := g.tokens.Validate(strings.TrimPrefix(header, bearerPrefix))
	if err != nil {
		return nil, err
	}

	user, err := g.users.FindUserByEmail(r.Context(), claims.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if user.Status == models.StatusBlocked {
		return nil, apperr.ErrUserBlocked
	}

	if user.PasswordChangedAt != nil &&
		repository.CredentialChangedAfter(*user.PasswordChangedAt, claims.IssuedAtTime()) {
		g.log.WithField("user_id", user.ID).Info("rejected token issued before password change")
		return nil, apperr.ErrCredentialChanged
	}

	if len(roles) > 0 && !lo.Contains(roles, claims.Role) {
		return nil, apperr.ErrRoleNotAllowed
	}
	return claims, nil
}

// WithClaims returns a copy of ctx carrying claims
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims attached by Authorize
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}
