package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/matryer/is"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	is := is.New(t)

	tok, err := NewAccessToken("secret", 42, "LIBRARIAN", 5)
	is.NoErr(err)

	claims, err := ParseAccessToken("secret", tok.Token)
	is.NoErr(err)
	id, err := claims.UserID()
	is.NoErr(err)
	is.Equal(id, uint64(42))
	is.Equal(claims.Role, "LIBRARIAN")
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	is := is.New(t)

	tok, err := NewAccessToken("secret", 1, "STUDENT", 5)
	is.NoErr(err)

	_, err = ParseAccessToken("other", tok.Token)
	is.Equal(err, ErrInvalidToken)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	is := is.New(t)

	tok, err := NewAccessToken("secret", 1, "STUDENT", -1)
	is.NoErr(err)

	_, err = ParseAccessToken("secret", tok.Token)
	is.Equal(err, ErrInvalidToken)
}

func TestParseAccessTokenRejectsNonNumericSubject(t *testing.T) {
	is := is.New(t)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "alice",
		"role": "ADMIN",
		"exp":  time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("secret"))
	is.NoErr(err)

	_, err = ParseAccessToken("secret", raw)
	is.Equal(err, ErrInvalidToken)
}

func TestRefreshTokenHash(t *testing.T) {
	is := is.New(t)

	rt, err := NewRefreshToken(7)
	is.NoErr(err)
	is.Equal(len(rt.Raw), 96)

	h := HashRefreshRaw(rt.Raw)
	is.Equal(len(h), 64)
	is.Equal(h, HashRefreshRaw(rt.Raw))
	is.True(!strings.Contains(h, rt.Raw))
}

func TestPasswordHashing(t *testing.T) {
	is := is.New(t)

	hash, err := HashPassword("correct horse", 4)
	is.NoErr(err)
	is.True(VerifyPassword(hash, "correct horse"))
	is.True(!VerifyPassword(hash, "wrong horse"))
}
