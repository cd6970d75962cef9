package auth

import (
	"fmt"
	"time"

	"github.com/Dan9191/recipe-service/internal/apperr"
	"github.com/Dan9191/recipe-service/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// IssuedAtPrecision is the resolution of token issue times. Password change
// times are compared against iat at this precision.
const IssuedAtPrecision = time.Millisecond

func init() {
	// Encode with headroom below IssuedAtPrecision so float parsing of the
	// numeric dates cannot move iat into the previous millisecond.
	jwt.TimePrecision = time.Microsecond
}

// Claims is the identity carried by an access token
type Claims struct {
	UserID string        `json:"id"`
	Email  string        `json:"email"`
	Role   models.Role   `json:"role"`
	Status models.Status `json:"status"`
	jwt.RegisteredClaims
}

// IssuedAtTime returns the token issue time at IssuedAtPrecision, zero if absent
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time.Round(IssuedAtPrecision)
}

// TokenCodec signs and validates access tokens
type TokenCodec struct {
	secret   []byte
	lifetime time.Duration
	issuer   string
	log      *logrus.Logger
	now      func() time.Time
}

// NewTokenCodec initializes a codec with an HMAC secret and token lifetime
func NewTokenCodec(secret string, lifetime time.Duration, issuer string, log *logrus.Logger) *TokenCodec {
	return &TokenCodec{
		secret:   []byte(secret),
		lifetime: lifetime,
		issuer:   issuer,
		log:      log,
		now:      time.Now,
	}
}

// Issue creates a signed token for the user
func (c *TokenCodec) Issue(user *models.User) (string, error) {
	now := c.now().Truncate(IssuedAtPrecision)
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Status: user.Status,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Validate checks signature and expiry and returns the embedded claims.
// Every failure is reported as apperr.ErrTokenInvalid; the cause is only logged.
func (c *TokenCodec) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithTimeFunc(c.now),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		c.log.Warnf("JWT verification error: %v", err)
		return nil, apperr.ErrTokenInvalid
	}
	if !token.Valid {
		c.log.Warn("JWT verification error: token is not valid")
		return nil, apperr.ErrTokenInvalid
	}
	if claims.IssuedAt == nil || claims.Email == "" {
		c.log.Warn("JWT verification error: missing iat or email claim")
		return nil, apperr.ErrTokenInvalid
	}
	return claims, nil
}
