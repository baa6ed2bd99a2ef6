// Package auth implements the token service: issuing, verifying and
// rotating the signed access/refresh token pair that backs a user
// session. Access and refresh tokens are HS256 JWTs signed with
// distinct secrets; the refresh token additionally lives (hashed) in
// the user's single session slot so that rotation invalidates any
// previously issued value.
package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/user-account-service/internal/model"
	"github.com/iliyamo/user-account-service/internal/utils"
)

// ErrInvalidToken is returned when a token fails signature or expiry
// checks. Handlers should translate this into an HTTP 401 response.
var ErrInvalidToken = errors.New("invalid or expired token")

// ErrSessionRevoked is returned by Rotate when the referenced user no
// longer exists or the presented refresh token is not the currently
// stored one (a stale or already rotated-out value). Handlers should
// translate this into an HTTP 401 response without detail.
var ErrSessionRevoked = errors.New("session revoked")

// ErrTokenPersist is returned when a freshly issued refresh token could
// not be stored. Handlers should translate this into a generic HTTP
// 500 response; the underlying cause is logged, never surfaced.
var ErrTokenPersist = errors.New("could not persist refresh token")

// SessionStore is the slice of the user repository the token service
// needs: loading users and manipulating the refresh token slot.
type SessionStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	SetRefreshToken(ctx context.Context, id uint64, tokenHash string) error
	SwapRefreshToken(ctx context.Context, id uint64, oldHash, newHash string) error
}

// Token is a signed JWT string along with its expiry.
type Token struct {
	Value string    `json:"token"`
	Exp   time.Time `json:"expires"`
}

// Pair bundles the access and refresh tokens issued together for one
// session.
type Pair struct {
	Access  Token `json:"access"`
	Refresh Token `json:"refresh"`
}

// AccessClaims carries the identity embedded in an access token.
type AccessClaims struct {
	UserID   uint64
	Email    string
	FullName string
}

// RefreshClaims carries the identity embedded in a refresh token. Only
// the user id is included; everything else is re-read from the store
// at rotation time.
type RefreshClaims struct {
	UserID uint64
}

// TokenService issues and verifies session tokens. AccessSecret and
// RefreshSecret must differ so that a refresh token can never pass as
// an access token or vice versa.
type TokenService struct {
	AccessSecret   string
	RefreshSecret  string
	AccessTTLMin   int
	RefreshTTLDays int
	Users          SessionStore
}

func NewTokenService(accessSecret, refreshSecret string, accessTTLMin, refreshTTLDays int, users SessionStore) *TokenService {
	return &TokenService{
		AccessSecret:   accessSecret,
		RefreshSecret:  refreshSecret,
		AccessTTLMin:   accessTTLMin,
		RefreshTTLDays: refreshTTLDays,
		Users:          users,
	}
}

// IssueAccess builds and signs a short-lived HS256 access token for a
// user. The claims include subject (sub), email, full_name, expiration
// (exp) and issued at (iat).
func (s *TokenService) IssueAccess(u model.User) (Token, error) {
	exp := time.Now().UTC().Add(time.Duration(s.AccessTTLMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":       u.ID,
		"email":     u.Email,
		"full_name": u.FullName,
		"exp":       exp.Unix(),
		"iat":       time.Now().UTC().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.AccessSecret))
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, Exp: exp}, nil
}

// IssueRefresh builds and signs a long-lived HS256 refresh token. Only
// the subject claim identifies the user.
func (s *TokenService) IssueRefresh(u model.User) (Token, error) {
	exp := time.Now().UTC().Add(time.Duration(s.RefreshTTLDays) * 24 * time.Hour)
	claims := jwt.MapClaims{
		"sub": u.ID,
		"exp": exp.Unix(),
		"iat": time.Now().UTC().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.RefreshSecret))
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, Exp: exp}, nil
}

// IssuePair issues both tokens and stores the hash of the new refresh
// token in the user's session slot, overwriting any prior value. Any
// failure to persist is collapsed into ErrTokenPersist so that callers
// surface a generic 500 instead of internal detail.
func (s *TokenService) IssuePair(ctx context.Context, u model.User) (Pair, error) {
	access, err := s.IssueAccess(u)
	if err != nil {
		return Pair{}, ErrTokenPersist
	}
	refresh, err := s.IssueRefresh(u)
	if err != nil {
		return Pair{}, ErrTokenPersist
	}
	if err := s.Users.SetRefreshToken(ctx, u.ID, utils.HashToken(refresh.Value)); err != nil {
		return Pair{}, ErrTokenPersist
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

// VerifyAccess parses an access token and returns its claims, or
// ErrInvalidToken on a bad signature, wrong algorithm or expiry.
func (s *TokenService) VerifyAccess(raw string) (AccessClaims, error) {
	claims, err := s.parse(raw, s.AccessSecret)
	if err != nil {
		return AccessClaims{}, err
	}
	id, ok := subjectID(claims)
	if !ok {
		return AccessClaims{}, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	fullName, _ := claims["full_name"].(string)
	return AccessClaims{UserID: id, Email: email, FullName: fullName}, nil
}

// VerifyRefresh parses a refresh token and returns its claims, or
// ErrInvalidToken on a bad signature, wrong algorithm or expiry.
func (s *TokenService) VerifyRefresh(raw string) (RefreshClaims, error) {
	claims, err := s.parse(raw, s.RefreshSecret)
	if err != nil {
		return RefreshClaims{}, err
	}
	id, ok := subjectID(claims)
	if !ok {
		return RefreshClaims{}, ErrInvalidToken
	}
	return RefreshClaims{UserID: id}, nil
}

// Rotate exchanges a valid refresh token for a fresh pair. The swap of
// the stored slot is a compare-and-swap on the old token's hash, so a
// stale or reused token (or a concurrent rotation that already won)
// fails with ErrSessionRevoked and leaves the slot untouched.
func (s *TokenService) Rotate(ctx context.Context, raw string) (model.User, Pair, error) {
	claims, err := s.VerifyRefresh(raw)
	if err != nil {
		return model.User{}, Pair{}, err
	}
	u, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, Pair{}, ErrSessionRevoked
		}
		return model.User{}, Pair{}, err
	}
	access, err := s.IssueAccess(u)
	if err != nil {
		return model.User{}, Pair{}, ErrTokenPersist
	}
	refresh, err := s.IssueRefresh(u)
	if err != nil {
		return model.User{}, Pair{}, ErrTokenPersist
	}
	err = s.Users.SwapRefreshToken(ctx, u.ID, utils.HashToken(raw), utils.HashToken(refresh.Value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, Pair{}, ErrSessionRevoked
		}
		return model.User{}, Pair{}, ErrTokenPersist
	}
	return u, Pair{Access: access, Refresh: refresh}, nil
}

// parse validates a raw JWT against a secret, enforcing the HMAC
// signing method, and returns its claim map.
func (s *TokenService) parse(raw, secret string) (jwt.MapClaims, error) {
	// WithJSONNumber keeps the sub claim as a decimal string instead
	// of a float64, which would round ids above 2^53.
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithJSONNumber())
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// subjectID extracts the sub claim as a uint64. Numeric subjects
// arrive as json.Number under WithJSONNumber; float64 and string
// subjects are tolerated for compatibility with older tokens.
func subjectID(claims jwt.MapClaims) (uint64, bool) {
	switch v := claims["sub"].(type) {
	case json.Number:
		if id, err := strconv.ParseUint(v.String(), 10, 64); err == nil {
			return id, true
		}
	case float64:
		return uint64(v), true
	case string:
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			return id, true
		}
	}
	return 0, false
}
