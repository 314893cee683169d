package auth_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"inventory/internal/apperrors"
	"inventory/internal/auth"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test_jwt_secret"

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newManager(t *testing.T, clock *fakeClock) *auth.TokenManager {
	t.Helper()
	tm, err := auth.NewTokenManager(testSecret, "HS256", 30*time.Minute, auth.WithClock(clock.Now))
	require.NoError(t, err)
	return tm
}

func TestTokenManager_IssueAndValidate(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	tm := newManager(t, clock)

	token, expiresAt, err := tm.Issue("alice")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, clock.now.Add(30*time.Minute).Equal(expiresAt))

	claims, err := tm.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, expiresAt.Equal(claims.ExpiresAt.Time))
}

func TestTokenManager_ExpiresAtExpiryInstant(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	tm := newManager(t, clock)

	token, expiresAt, err := tm.Issue("alice")
	require.NoError(t, err)

	clock.now = expiresAt.Add(-time.Second)
	_, err = tm.Validate(token)
	assert.NoError(t, err)

	clock.now = expiresAt
	_, err = tm.Validate(token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestTokenManager_RejectsForgedAndMalformed(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	tm := newManager(t, clock)

	other, err := auth.NewTokenManager("another-secret", "HS256", time.Hour, auth.WithClock(clock.Now))
	require.NoError(t, err)
	forged, _, err := other.Issue("mallory")
	require.NoError(t, err)

	_, err = tm.Validate(forged)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = tm.Validate("invalid.token.string")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = tm.Validate("")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestTokenManager_RejectsOtherAlgorithms(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	tm := newManager(t, clock)

	hs512, err := auth.NewTokenManager(testSecret, "HS512", time.Hour, auth.WithClock(clock.Now))
	require.NoError(t, err)
	token, _, err := hs512.Issue("alice")
	require.NoError(t, err)

	_, err = tm.Validate(token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "alice",
		"exp": clock.now.Add(time.Hour).Unix(),
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.Validate(unsigned)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestTokenManager_RequiresExpiryAndSubject(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	tm := newManager(t, clock)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice"}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = tm.Validate(noExp)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": clock.now.Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = tm.Validate(noSub)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestNewTokenManager_InvalidConfig(t *testing.T) {
	_, err := auth.NewTokenManager("", "HS256", time.Hour)
	assert.Error(t, err)
	_, err = auth.NewTokenManager(testSecret, "RS256", time.Hour)
	assert.Error(t, err)
	_, err = auth.NewTokenManager(testSecret, "nope", time.Hour)
	assert.Error(t, err)
	_, err = auth.NewTokenManager(testSecret, "HS256", 0)
	assert.Error(t, err)
}

func TestPasswordHasher(t *testing.T) {
	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	hash, err := hasher.Hash("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	again, err := hasher.Hash("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes must be salted")

	assert.NoError(t, hasher.Compare(hash, "secret123"))
	assert.Error(t, hasher.Compare(hash, "wrong"))
	assert.NotPanics(t, func() { hasher.CompareDummy("anything") })

	_, err = auth.NewPasswordHasher(bcrypt.MaxCost + 1)
	assert.Error(t, err)
}

func TestPasswordHasher_RejectsOverlongPassword(t *testing.T) {
	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	// 40 runes, 80 bytes
	_, err = hasher.Hash(strings.Repeat("é", 40))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = hasher.Hash(strings.Repeat("a", 72))
	assert.NoError(t, err)
}
