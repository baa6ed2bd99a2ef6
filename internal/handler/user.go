package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-account-service/internal/auth"
	"github.com/iliyamo/user-account-service/internal/config"
	"github.com/iliyamo/user-account-service/internal/model"
	"github.com/iliyamo/user-account-service/internal/queue"
	"github.com/iliyamo/user-account-service/internal/repository"
	queue_publisher "github.com/iliyamo/user-account-service/internal/service"
	"github.com/iliyamo/user-account-service/internal/utils"
)

// Cookie names used by login/refresh to carry the session tokens.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// UserStore is the slice of the user repository the account handlers
// depend on. *repository.UserRepo satisfies it.
type UserStore interface {
	Create(ctx context.Context, fullName, email, phone, password string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetAll(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, id uint64, fullName, email, phone string) (model.User, error)
	Delete(ctx context.Context, id uint64) error
	ClearRefreshToken(ctx context.Context, id uint64) error
}

// UserHandler bundles dependencies for the account endpoints. Publish
// delivers domain events to the broker; it defaults to the RabbitMQ
// publisher and is best-effort only.
type UserHandler struct {
	Cfg     config.Config
	Users   UserStore
	Tokens  *auth.TokenService
	Publish func(ctx context.Context, event queue.UserRegisteredEvent) error
}

func NewUserHandler(cfg config.Config, users UserStore, tokens *auth.TokenService) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users, Tokens: tokens, Publish: queue_publisher.PublishUserRegistered}
}

// ----- DTOs -----

type registerReq struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}
type updateReq struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type loginResp struct {
	User         model.PublicUser `json:"user"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
}
type refreshResp struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Register handles POST /api/v1/users/register. It validates the four
// input fields, creates the user and returns the stored projection.
func (h *UserHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return RespondError(c, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.FullName) == "" || strings.TrimSpace(req.Email) == "" ||
		strings.TrimSpace(req.Password) == "" || strings.TrimSpace(req.Phone) == "" {
		return RespondError(c, http.StatusBadRequest, "please fill all fields properly")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.FullName, req.Email, req.Phone, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBlankField):
			return RespondError(c, http.StatusBadRequest, "please fill all fields properly")
		case errors.Is(err, repository.ErrEmailExists), errors.Is(err, repository.ErrPhoneExists):
			return RespondError(c, http.StatusConflict, "user already exists")
		}
		return RespondError(c, http.StatusInternalServerError, "user cannot be registered, try again later")
	}

	// Re-fetch so the response reflects exactly what was stored.
	created, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return RespondError(c, http.StatusInternalServerError, "user cannot be registered, try again later")
	}

	// Best effort: downstream consumers (welcome mail, analytics) pick
	// this up from the broker. A broker outage never fails the request.
	_ = h.Publish(ctx, queue.UserRegisteredEvent{
		UserID:       created.ID,
		Email:        created.Email,
		FullName:     created.FullName,
		RegisteredAt: created.CreatedAt.UTC().Format(time.RFC3339),
	})

	return Respond(c, http.StatusCreated, created.Public(), "user registered successfully")
}

// Login handles POST /api/v1/users/login. On success both tokens are
// set as httpOnly cookies and returned in the body alongside the user
// projection.
func (h *UserHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return RespondError(c, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" {
		return RespondError(c, http.StatusBadRequest, "email is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RespondError(c, http.StatusNotFound, "user not found")
		}
		return RespondError(c, http.StatusInternalServerError, "login failed, try again later")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return RespondError(c, http.StatusUnauthorized, "invalid password")
	}

	pair, err := h.Tokens.IssuePair(ctx, u)
	if err != nil {
		return RespondError(c, http.StatusInternalServerError, "could not generate tokens")
	}
	setTokenCookies(c, pair)

	return Respond(c, http.StatusOK, loginResp{
		User:         u.Public(),
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
	}, "user logged in successfully")
}

// Logout handles POST /api/v1/users/logout (protected). It clears the
// stored refresh token slot and expires both cookies. A second call
// without a valid access token never reaches this handler; the session
// middleware rejects it with 401.
func (h *UserHandler) Logout(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return RespondError(c, http.StatusUnauthorized, "unauthorized request")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.ClearRefreshToken(ctx, u.ID); err != nil {
		return RespondError(c, http.StatusInternalServerError, "logout failed, try again later")
	}
	clearTokenCookies(c)
	return Respond(c, http.StatusOK, map[string]any{}, "user logged out successfully")
}

// RefreshSession handles POST /api/v1/users/refresh-session. The
// refresh token is read from the cookie first, then from the body. The
// rotation itself (verify, match against the stored slot, issue and
// store a fresh pair) lives in the token service.
func (h *UserHandler) RefreshSession(c echo.Context) error {
	raw := ""
	if ck, err := c.Cookie(RefreshCookie); err == nil {
		raw = ck.Value
	}
	if raw == "" {
		var req refreshReq
		_ = c.Bind(&req)
		raw = strings.TrimSpace(req.RefreshToken)
	}
	if raw == "" {
		return RespondError(c, http.StatusUnauthorized, "unauthorized request")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	_, pair, err := h.Tokens.Rotate(ctx, raw)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrSessionRevoked) {
			return RespondError(c, http.StatusUnauthorized, "invalid refresh token")
		}
		return RespondError(c, http.StatusInternalServerError, "could not generate tokens")
	}
	setTokenCookies(c, pair)

	return Respond(c, http.StatusOK, refreshResp{
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
	}, "session refreshed successfully")
}

// GetAllUsers handles GET /api/v1/users/get-all-users (admin only).
func (h *UserHandler) GetAllUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.GetAll(ctx)
	if err != nil {
		return RespondError(c, http.StatusInternalServerError, "failed to fetch users")
	}
	out := make([]model.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return Respond(c, http.StatusOK, out, "all users fetched successfully")
}

// GetUserByID handles GET /api/v1/users/get-user/:id (admin only).
func (h *UserHandler) GetUserByID(c echo.Context) error {
	id, err := userIDParam(c)
	if err != nil {
		return RespondError(c, http.StatusBadRequest, "user id is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RespondError(c, http.StatusNotFound, "user not found")
		}
		return RespondError(c, http.StatusInternalServerError, "failed to fetch user")
	}
	return Respond(c, http.StatusOK, u.Public(), "user fetched successfully")
}

// UpdateUserData handles PUT /api/v1/users/update-user-data/:id. Only
// the profile fields are updatable here; role and password never route
// through this path.
func (h *UserHandler) UpdateUserData(c echo.Context) error {
	id, err := userIDParam(c)
	if err != nil {
		return RespondError(c, http.StatusBadRequest, "user id is required")
	}
	var req updateReq
	if err := c.Bind(&req); err != nil {
		return RespondError(c, http.StatusBadRequest, "invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.Update(ctx, id, req.FullName, req.Email, req.Phone)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBlankField):
			return RespondError(c, http.StatusBadRequest, "please fill all fields properly")
		case errors.Is(err, repository.ErrEmailExists), errors.Is(err, repository.ErrPhoneExists):
			return RespondError(c, http.StatusConflict, "user already exists")
		case errors.Is(err, sql.ErrNoRows):
			return RespondError(c, http.StatusNotFound, "user not found")
		}
		return RespondError(c, http.StatusInternalServerError, "failed to update user")
	}
	return Respond(c, http.StatusOK, u.Public(), "user updated successfully")
}

// DeleteUserByID handles DELETE /api/v1/users/delete-user/:id (admin
// only).
func (h *UserHandler) DeleteUserByID(c echo.Context) error {
	id, err := userIDParam(c)
	if err != nil {
		return RespondError(c, http.StatusBadRequest, "user id is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RespondError(c, http.StatusNotFound, "user not found")
		}
		return RespondError(c, http.StatusInternalServerError, "failed to delete user")
	}
	return Respond(c, http.StatusOK, nil, "user deleted successfully")
}

// ----- helpers -----

// currentUser extracts the identity attached by the session middleware.
func currentUser(c echo.Context) (model.PublicUser, error) {
	if u, ok := c.Get("user").(model.PublicUser); ok {
		return u, nil
	}
	return model.PublicUser{}, errors.New("no authenticated user in context")
}

// userIDParam parses the :id route parameter.
func userIDParam(c echo.Context) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
}

// setTokenCookies attaches both session tokens as httpOnly cookies.
func setTokenCookies(c echo.Context, pair auth.Pair) {
	c.SetCookie(&http.Cookie{
		Name:     AccessCookie,
		Value:    pair.Access.Value,
		Expires:  pair.Access.Exp,
		Path:     "/",
		HttpOnly: true,
	})
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    pair.Refresh.Value,
		Expires:  pair.Refresh.Exp,
		Path:     "/",
		HttpOnly: true,
	})
}

// clearTokenCookies expires both session cookies immediately.
func clearTokenCookies(c echo.Context) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			Path:     "/",
			HttpOnly: true,
		})
	}
}
