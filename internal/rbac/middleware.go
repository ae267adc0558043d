package rbac

import (
	"log/slog"
	"net/http"

	"github.com/clubroster/roster/internal/platform/httpx"
	"github.com/clubroster/roster/internal/shared"
)

// Authorize allows iff role is a member of allowed. It must only be called
// after the caller has been authenticated.
func Authorize(role Role, allowed RoleSet) error {
	if allowed.Contains(role) {
		return nil
	}
	return shared.ErrForbidden
}

// PrincipalFunc resolves the authenticated caller's role from the request.
// ok is false when no principal is attached.
type PrincipalFunc func(r *http.Request) (role Role, ok bool)

// Middleware wires role authorization helpers for HTTP handlers.
type Middleware struct {
	Principal PrincipalFunc
	Logger    *slog.Logger
}

// RequireRole ensures the current principal holds one of the allowed roles.
// Missing principals yield 401, disallowed roles 403.
func (m Middleware) RequireRole(allowed RoleSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				role Role
				ok   bool
			)
			if m.Principal != nil {
				role, ok = m.Principal(r)
			}
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			if err := Authorize(role, allowed); err != nil {
				if m.Logger != nil {
					m.Logger.Warn("role denied",
						slog.String("role", role.String()),
						slog.String("path", r.URL.Path),
					)
				}
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
