package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/iliyamo/user-account-service/internal/model"
	"github.com/iliyamo/user-account-service/internal/utils"
)

// fakeSessions holds a single user and its refresh token slot,
// mimicking the repository's compare-and-swap semantics.
type fakeSessions struct {
	user    model.User
	deleted bool
	slot    string
}

func (f *fakeSessions) GetByID(_ context.Context, id uint64) (model.User, error) {
	if f.deleted || id != f.user.ID {
		return model.User{}, sql.ErrNoRows
	}
	return f.user, nil
}

func (f *fakeSessions) SetRefreshToken(_ context.Context, id uint64, hash string) error {
	if f.deleted || id != f.user.ID {
		return sql.ErrNoRows
	}
	f.slot = hash
	return nil
}

func (f *fakeSessions) SwapRefreshToken(_ context.Context, id uint64, oldHash, newHash string) error {
	if f.deleted || id != f.user.ID || f.slot != oldHash {
		return sql.ErrNoRows
	}
	f.slot = newHash
	return nil
}

func newTestService(store *fakeSessions) *TokenService {
	return NewTokenService("access-secret", "refresh-secret", 15, 7, store)
}

func testUser() model.User {
	return model.User{ID: 42, FullName: "Ada Lovelace", Email: "ada@example.com", Role: model.RoleUser}
}

func TestIssuePairStoresRefreshHash(t *testing.T) {
	store := &fakeSessions{user: testUser()}
	svc := newTestService(store)

	pair, err := svc.IssuePair(context.Background(), store.user)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	if pair.Access.Value == "" || pair.Refresh.Value == "" {
		t.Fatal("expected both tokens to be issued")
	}
	if store.slot != utils.HashToken(pair.Refresh.Value) {
		t.Fatal("stored slot must hold the hash of the new refresh token")
	}
}

func TestIssuePairOverwritesPreviousSlot(t *testing.T) {
	store := &fakeSessions{user: testUser()}
	svc := newTestService(store)

	first, err := svc.IssuePair(context.Background(), store.user)
	if err != nil {
		t.Fatalf("first pair: %v", err)
	}
	second, err := svc.IssuePair(context.Background(), store.user)
	if err != nil {
		t.Fatalf("second pair: %v", err)
	}
	if store.slot == utils.HashToken(first.Refresh.Value) {
		t.Fatal("second login must overwrite the stored refresh token")
	}
	if store.slot != utils.HashToken(second.Refresh.Value) {
		t.Fatal("slot must hold the latest refresh token hash")
	}
}

func TestIssuePairPersistFailure(t *testing.T) {
	store := &fakeSessions{user: testUser(), deleted: true}
	svc := newTestService(store)

	if _, err := svc.IssuePair(context.Background(), testUser()); !errors.Is(err, ErrTokenPersist) {
		t.Fatalf("expected ErrTokenPersist, got %v", err)
	}
}

func TestVerifyAccessRoundTrip(t *testing.T) {
	svc := newTestService(&fakeSessions{user: testUser()})

	tok, err := svc.IssueAccess(testUser())
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	claims, err := svc.VerifyAccess(tok.Value)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "ada@example.com" || claims.FullName != "Ada Lovelace" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyAccessLargeUserID(t *testing.T) {
	// Ids above 2^53 round if the sub claim decodes as a float64; the
	// parse must keep every digit exact all the way up the range.
	u := testUser()
	u.ID = 1<<60 + 3
	store := &fakeSessions{user: u}
	svc := newTestService(store)

	tok, err := svc.IssueAccess(u)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	claims, err := svc.VerifyAccess(tok.Value)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.UserID != u.ID {
		t.Fatalf("user id round trip lost precision: got %d, want %d", claims.UserID, u.ID)
	}

	pair, err := svc.IssuePair(context.Background(), u)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	got, _, err := svc.Rotate(context.Background(), pair.Refresh.Value)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("rotate resolved wrong user: got %d, want %d", got.ID, u.ID)
	}
}

func TestVerifyAccessRejectsRefreshToken(t *testing.T) {
	svc := newTestService(&fakeSessions{user: testUser()})

	refresh, err := svc.IssueRefresh(testUser())
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if _, err := svc.VerifyAccess(refresh.Value); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token must not verify as access token, got %v", err)
	}
	access, err := svc.IssueAccess(testUser())
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if _, err := svc.VerifyRefresh(access.Value); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token must not verify as refresh token, got %v", err)
	}
}

func TestVerifyAccessExpired(t *testing.T) {
	store := &fakeSessions{user: testUser()}
	svc := NewTokenService("access-secret", "refresh-secret", -1, 7, store)

	tok, err := svc.IssueAccess(testUser())
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if _, err := svc.VerifyAccess(tok.Value); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestVerifyAccessGarbage(t *testing.T) {
	svc := newTestService(&fakeSessions{user: testUser()})
	if _, err := svc.VerifyAccess("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRotateReplacesSlot(t *testing.T) {
	store := &fakeSessions{user: testUser()}
	svc := newTestService(store)

	pair, err := svc.IssuePair(context.Background(), store.user)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	u, next, err := svc.Rotate(context.Background(), pair.Refresh.Value)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if u.ID != store.user.ID {
		t.Fatalf("rotate returned wrong user: %d", u.ID)
	}
	if store.slot != utils.HashToken(next.Refresh.Value) {
		t.Fatal("slot must hold the rotated refresh token hash")
	}

	// The rotated-out token stays rejected for good.
	if _, _, err := svc.Rotate(context.Background(), pair.Refresh.Value); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("stale token must be revoked, got %v", err)
	}
	// And the rejection must not have clobbered the active slot.
	if store.slot != utils.HashToken(next.Refresh.Value) {
		t.Fatal("failed rotation must not mutate the slot")
	}

	// The fresh token still rotates fine.
	if _, _, err := svc.Rotate(context.Background(), next.Refresh.Value); err != nil {
		t.Fatalf("fresh token rotate: %v", err)
	}
}

func TestRotateUserGone(t *testing.T) {
	store := &fakeSessions{user: testUser()}
	svc := newTestService(store)

	pair, err := svc.IssuePair(context.Background(), store.user)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	store.deleted = true
	if _, _, err := svc.Rotate(context.Background(), pair.Refresh.Value); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked for deleted user, got %v", err)
	}
}

func TestRotateBadSignature(t *testing.T) {
	store := &fakeSessions{user: testUser()}
	svc := newTestService(store)
	other := NewTokenService("access-secret", "some-other-secret", 15, 7, store)

	forged, err := other.IssueRefresh(store.user)
	if err != nil {
		t.Fatalf("issue forged refresh: %v", err)
	}
	if _, _, err := svc.Rotate(context.Background(), forged.Value); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for forged token, got %v", err)
	}
}
