// Package token signs and verifies short-lived access tokens and generates
// opaque refresh tokens. Access tokens are stateless HS256 JWTs; refresh
// tokens carry no claims and only have meaning as session-store lookup keys.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/fleetstack/fleet-backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingKey   = errors.New("signing key not configured")
	ErrInvalidToken = errors.New("invalid access token")
	ErrExpiredToken = errors.New("expired access token")
)

// Claims is the fixed access-token payload. Tokens whose claims do not match
// this shape (non-positive id, unknown role) are rejected on decode.
type Claims struct {
	UserID uint   `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Codec issues and verifies access tokens with a shared symmetric key.
type Codec struct {
	secret    []byte
	accessTTL time.Duration
}

func NewCodec(secret string, accessTTL time.Duration) *Codec {
	return &Codec{secret: []byte(secret), accessTTL: accessTTL}
}

// AccessTTL is the lifetime applied to issued access tokens.
func (c *Codec) AccessTTL() time.Duration {
	return c.accessTTL
}

// IssueAccessToken signs a token for the given principal. It fails only when
// the signing key is unconfigured.
func (c *Codec) IssueAccessToken(userID uint, role string) (string, error) {
	if len(c.secret) == 0 {
		return "", ErrMissingKey
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// VerifyAccessToken decodes and validates a token. Expiry is reported as
// ErrExpiredToken so callers can branch into the refresh flow; every other
// failure (bad signature, malformed token, claims of the wrong shape) is
// ErrInvalidToken.
func (c *Codec) VerifyAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if claims.UserID == 0 || !models.ValidRole(claims.Role) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueRefreshToken returns a cryptographically random opaque token:
// 48 bytes of entropy, hex-encoded.
func IssueRefreshToken() (string, error) {
	raw := make([]byte, 48)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// HashToken returns the hex SHA-256 of a refresh token. Only hashes are
// stored; the session store is looked up by hash.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
