package middleware // middleware provides shared request processing for handlers

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/user-account-service/internal/auth"
    "github.com/iliyamo/user-account-service/internal/handler"
    "github.com/iliyamo/user-account-service/internal/model"
)

// UserLoader is the single repository method the session middleware
// needs. *repository.UserRepo satisfies it.
type UserLoader interface {
    GetByID(ctx context.Context, id uint64) (model.User, error)
}

// JWTAuth returns an Echo middleware that authenticates a request from
// its access token.  The token is read from the `accessToken` cookie
// first, then from an `Authorization: Bearer <token>` header.  After
// signature and expiry checks the referenced user is loaded from the
// store; a token for a deleted account is rejected.  On success the
// user's projection (secrets stripped) is attached to the request
// context under the "user" key for downstream handlers.  The
// middleware never mutates persisted state.
func JWTAuth(tokens *auth.TokenService, users UserLoader) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := ""
            if ck, err := c.Cookie(handler.AccessCookie); err == nil {
                raw = ck.Value
            }
            if raw == "" {
                header := c.Request().Header.Get("Authorization")
                if strings.HasPrefix(header, "Bearer ") {
                    raw = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
                }
            }
            if raw == "" {
                return handler.RespondError(c, http.StatusUnauthorized, "unauthorized request")
            }

            claims, err := tokens.VerifyAccess(raw)
            if err != nil {
                return handler.RespondError(c, http.StatusUnauthorized, "invalid access token")
            }

            ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
            defer cancel()

            u, err := users.GetByID(ctx, claims.UserID)
            if err != nil {
                // The account behind a still-valid token may have been
                // deleted; treat that the same as a bad token.
                return handler.RespondError(c, http.StatusUnauthorized, "invalid access token")
            }
            c.Set("user", u.Public())
            return next(c)
        }
    }
}

// RequireAdmin returns a middleware that rejects requests whose
// authenticated identity does not carry the admin role.  It assumes
// JWTAuth already ran and attached the identity; a missing identity is
// treated as forbidden.
func RequireAdmin() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            u, ok := c.Get("user").(model.PublicUser)
            if !ok || u.Role != model.RoleAdmin {
                return handler.RespondError(c, http.StatusForbidden, "only admins are allowed")
            }
            return next(c)
        }
    }
}
