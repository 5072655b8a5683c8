// Package middleware provides the HTTP middleware chain.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/apperr"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/httputil"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/logger"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/models"
)

type identityKey struct{}

// Authenticator resolves a bearer token to the caller.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Identity, error)
}

func WithIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller stored by Authenticate, if any.
func IdentityFrom(ctx context.Context) (*models.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*models.Identity)
	return id, ok && id != nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate rejects requests without a valid bearer token and stores the
// resolved identity in the request context.
func Authenticate(auth Authenticator, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				httputil.WriteError(w, r, log, apperr.Unauthorized("missing or malformed Authorization header"))
				return
			}
			id, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				logger.FromContext(r.Context(), log).Debug("authentication failed", zap.Error(err))
				httputil.WriteError(w, r, log, err)
				return
			}
			ctx := WithIdentity(r.Context(), id)
			ctx = logger.WithUserID(ctx, id.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authorize allows the request through only if the authenticated caller has one
// of roles. It must run after Authenticate.
func Authorize(log *zap.Logger, roles ...models.Role) func(http.Handler) http.Handler {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				httputil.WriteError(w, r, log, apperr.Unauthorized("authentication required"))
				return
			}
			if _, ok := allowed[id.Role]; !ok {
				httputil.WriteError(w, r, log, apperr.Forbidden("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
