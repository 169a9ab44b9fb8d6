package utils // package utils holds token, password and code helpers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// issuer is stamped on every access token and required when parsing.
const issuer = "smartfix"

// AccessToken is a signed JWT and its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken is an opaque random token.  Only HashRefreshRaw(Raw) is
// stored server side.
type RefreshToken struct {
	Raw string
	Exp time.Time
}

// Claims is the identity carried by an access token.
type Claims struct {
	UserID string
	Email  string
	Role   string
}

// tokenClaims is the wire form.  The email claim lets the customer portal
// resolve the customer row without a users lookup.
type tokenClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid token")

// NewAccessToken signs an HS256 token for a user valid for ttlMin minutes.
func NewAccessToken(secret, userID, email, role string, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := tokenClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

var parser = jwt.NewParser(
	jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	jwt.WithIssuer(issuer),
	jwt.WithExpirationRequired(),
	jwt.WithLeeway(30*time.Second),
)

// ParseAccessToken verifies raw and returns its claims.  Every failure,
// including a missing subject, is reported as ErrInvalidToken.
func ParseAccessToken(secret, raw string) (Claims, error) {
	var tc tokenClaims
	_, err := parser.ParseWithClaims(raw, &tc, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || tc.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return Claims{UserID: tc.Subject, Email: tc.Email, Role: tc.Role}, nil
}

// NewRefreshToken returns 48 random bytes, URL-safe encoded, valid for
// ttlDays.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	buf := make([]byte, 48)
	if _, err := rand.Read(buf); err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: base64.RawURLEncoding.EncodeToString(buf),
		Exp: time.Now().UTC().AddDate(0, 0, ttlDays),
	}, nil
}

// HashRefreshRaw is the hex SHA-256 of a raw refresh token, the form kept
// in refresh_tokens.token_hash.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
