package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clubroster/roster/internal/platform/httpx"
	"github.com/clubroster/roster/internal/shared"
)

// RefreshCookieName is the cookie carrying the refresh token.
const RefreshCookieName = "refreshToken"

// CookieConfig controls the refresh token cookie.
type CookieConfig struct {
	Secure bool
	Path   string
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger        *slog.Logger
	service       *Service
	authenticator *Authenticator
	limiter       func(http.Handler) http.Handler
	cookies       CookieConfig
	validator     *validator.Validate
}

// NewHandler constructs a Handler instance. limiter guards register and login
// and may be nil.
func NewHandler(logger *slog.Logger, service *Service, authenticator *Authenticator, limiter func(http.Handler) http.Handler, cookies CookieConfig) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cookies.Path == "" {
		cookies.Path = "/"
	}
	return &Handler{
		logger:        logger,
		service:       service,
		authenticator: authenticator,
		limiter:       limiter,
		cookies:       cookies,
		validator:     shared.NewValidator(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(h.limiter)
		}
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
	})
	r.Post("/refresh", h.handleRefresh)
	r.Group(func(r chi.Router) {
		r.Use(h.authenticator.Middleware)
		r.Post("/logout", h.handleLogout)
		r.Post("/logout-all", h.handleLogoutAll)
	})
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
}

// loginRequest is not validated: blank credentials fail verification with the
// same 401 as wrong ones.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func viewOf(u *User) userView {
	return userView{ID: u.ID, Username: u.Username, Role: u.Role.String()}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := shared.ValidateStruct(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.Register(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		h.logFailure("register", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": viewOf(user)})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	session, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logFailure("login", err)
		httpx.RespondError(w, err)
		return
	}
	h.setRefreshCookie(w, session.RefreshToken, session.RefreshExpiresAt)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"accessToken": session.AccessToken,
		"user":        viewOf(session.User),
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(RefreshCookieName); err == nil {
		token = c.Value
	}
	access, _, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		h.logFailure("refresh", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accessToken": access})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(RefreshCookieName); err == nil && c.Value != "" {
		if err := h.service.Logout(r.Context(), c.Value); err != nil {
			h.logFailure("logout", err)
			httpx.RespondError(w, err)
			return
		}
	}
	h.clearRefreshCookie(w)
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	n, err := h.service.LogoutAll(r.Context(), claims.UserID)
	if err != nil {
		h.logFailure("logout_all", err)
		httpx.RespondError(w, err)
		return
	}
	h.clearRefreshCookie(w)
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "revoked": n})
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     h.cookies.Path,
		Expires:  expiresAt,
		MaxAge:   int(h.service.RefreshTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     h.cookies.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) logFailure(op string, err error) {
	if isClientError(err) {
		h.logger.Debug("auth request rejected", slog.String("op", op), slog.Any("error", err))
		return
	}
	h.logger.Error("auth request failed", slog.String("op", op), slog.Any("error", err))
}

func isClientError(err error) bool {
	return outcome(err) != "error"
}
