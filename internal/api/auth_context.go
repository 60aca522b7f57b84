package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/stockroomapp/stockroom-server/internal/auth"
	domainerrors "github.com/stockroomapp/stockroom-server/internal/errors"
)

type ctxKey string

const scopeKey ctxKey = "scope"

// Scope is the workspace and user a request acts for.
type Scope struct {
	WorkspaceID string
	UserID      string
}

func withScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

func scopeFrom(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeKey).(Scope)
	return scope, ok
}

// requireScope returns the authenticated scope or a 401.
func requireScope(ctx context.Context) (Scope, error) {
	scope, ok := scopeFrom(ctx)
	if !ok {
		return Scope{}, domainerrors.Unauthorized("valid bearer token required")
	}
	return scope, nil
}

// authMiddleware attaches the token's scope to the request context.
// Requests without a valid token continue unscoped and are rejected by
// handlers that call requireScope.
func authMiddleware(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokens == nil {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Verify(strings.TrimSpace(token))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := withScope(r.Context(), Scope{WorkspaceID: claims.WorkspaceID, UserID: claims.UserID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
