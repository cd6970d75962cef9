package auth

import (
	"testing"
	"time"

	"github.com/Dan9191/recipe-service/internal/apperr"
	"github.com/Dan9191/recipe-service/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *models.User {
	return &models.User{
		ID:     "u-1",
		Email:  "alice@example.com",
		Role:   models.RoleUser,
		Status: models.StatusActive,
	}
}

func TestIssueAndValidate(t *testing.T) {
	t.Parallel()

	log, _ := logtest.NewNullLogger()
	codec := NewTokenCodec("super-secret", time.Hour, "recipe-service", log)

	tok, err := codec.Issue(testUser())
	require.NoError(t, err)

	claims, err := codec.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.Equal(t, models.StatusActive, claims.Status)
	assert.Equal(t, "recipe-service", claims.Issuer)
	assert.WithinDuration(t, time.Now(), claims.IssuedAtTime(), 2*time.Second)
	assert.WithinDuration(t, claims.IssuedAtTime().Add(time.Hour), claims.ExpiresAt.Time, time.Second)
}

func TestIssuedAtKeepsMilliseconds(t *testing.T) {
	t.Parallel()

	log, _ := logtest.NewNullLogger()
	codec := NewTokenCodec("super-secret", time.Hour, "recipe-service", log)
	base := time.Now().Add(-time.Minute).Truncate(time.Second)

	for ms := 0; ms < 1000; ms++ {
		issuedAt := base.Add(time.Duration(ms)*time.Millisecond + 456*time.Microsecond)
		codec.now = func() time.Time { return issuedAt }

		tok, err := codec.Issue(testUser())
		require.NoError(t, err)
		codec.now = time.Now
		claims, err := codec.Validate(tok)
		require.NoError(t, err)

		want := issuedAt.Truncate(IssuedAtPrecision)
		require.True(t, want.Equal(claims.IssuedAtTime()), "issued %s, decoded %s", want, claims.IssuedAtTime())
	}
}

func TestValidate_Expired(t *testing.T) {
	t.Parallel()

	log, hook := logtest.NewNullLogger()
	codec := NewTokenCodec("secret", time.Minute, "recipe-service", log)
	codec.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tok, err := codec.Issue(testUser())
	require.NoError(t, err)

	codec.now = time.Now
	_, err = codec.Validate(tok)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
	assert.Equal(t, "You are not authorized!", err.Error())

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "expired")
}

func TestValidate_WrongSecret(t *testing.T) {
	t.Parallel()

	log, _ := logtest.NewNullLogger()
	tok, err := NewTokenCodec("right-secret", time.Hour, "", log).Issue(testUser())
	require.NoError(t, err)

	_, err = NewTokenCodec("wrong-secret", time.Hour, "", log).Validate(tok)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
}

func TestValidate_Malformed(t *testing.T) {
	t.Parallel()

	log, _ := logtest.NewNullLogger()
	_, err := NewTokenCodec("k", time.Hour, "", log).Validate("not.a.jwt")
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
}

func TestValidate_RejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	claims := &Claims{
		Email: "alice@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	log, _ := logtest.NewNullLogger()
	_, err = NewTokenCodec("k", time.Hour, "", log).Validate(tok)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
}

func TestValidate_MissingIssuedAt(t *testing.T) {
	t.Parallel()

	claims := &Claims{
		Email: "alice@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)

	log, _ := logtest.NewNullLogger()
	_, err = NewTokenCodec("k", time.Hour, "", log).Validate(tok)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
}
