package utils

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "0b7e6a52-1111-4a4a-9999-000000000001", "ann@example.com", "CUSTOMER", 15)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), tok.Exp, 5*time.Second)

	claims, err := ParseAccessToken("s3cret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, Claims{UserID: "0b7e6a52-1111-4a4a-9999-000000000001", Email: "ann@example.com", Role: "CUSTOMER"}, claims)

	_, err = ParseAccessToken("other", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "u1", "", "ADMIN", -1)
	require.NoError(t, err)
	_, err = ParseAccessToken("s3cret", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessTokenRejectsForeignTokens(t *testing.T) {
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer: "someone-else", Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	raw, err := foreign.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = ParseAccessToken("s3cret", raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Issuer: "smartfix", Subject: "u1"})
	raw, err = noExp.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = ParseAccessToken("s3cret", raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshToken(t *testing.T) {
	a, err := NewRefreshToken(30)
	require.NoError(t, err)
	b, err := NewRefreshToken(30)
	require.NoError(t, err)
	assert.NotEqual(t, a.Raw, b.Raw)
	assert.Len(t, a.Raw, 64)
	assert.Len(t, HashRefreshRaw(a.Raw), 64)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), a.Exp, time.Minute)
}

func TestTrackingAndReceiptNumbers(t *testing.T) {
	at := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	tn, err := TrackingNumber(at)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^SFX261016[A-Z0-9]{6}$`), tn)

	rn, err := ReceiptNumber(at)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^RCP-20261016-[A-Z0-9]{6}$`), rn)
}

func TestPasswordHashing(t *testing.T) {
	h, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(h, "hunter22"))
	assert.False(t, VerifyPassword(h, "hunter23"))

	h, err = HashPassword("hunter22", 99)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(h, "hunter22"), "out-of-range cost falls back to the default")
}

func TestCheckPassword(t *testing.T) {
	assert.ErrorIs(t, CheckPassword("short"), ErrWeakPassword)
	assert.ErrorIs(t, CheckPassword("ñññññññ"), ErrWeakPassword, "counted in characters")
	assert.NoError(t, CheckPassword("long enough"))
	assert.Error(t, CheckPassword(strings.Repeat("x", 73)))
}
