package auth_test

import (
	"context"
	"testing"
	"time"

	"marketplace-chat/internal/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestJWTVerifier_RoundTrip(t *testing.T) {
	req := require.New(t)
	v := auth.NewJWTVerifier("test-secret", "marketplace")

	token, err := v.Issue(42, "company@example.test", time.Hour)
	req.NoError(err)

	claims, err := v.Verify(context.Background(), token)
	req.NoError(err)
	req.Equal("42", claims.Subject)
	req.Equal("company@example.test", claims.Email)
}

func TestJWTVerifier_Expired(t *testing.T) {
	v := auth.NewJWTVerifier("test-secret", "")

	token, err := v.Issue(1, "a@example.test", -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTVerifier_WrongSecret(t *testing.T) {
	token, err := auth.NewJWTVerifier("one", "").Issue(1, "a@example.test", time.Hour)
	require.NoError(t, err)

	_, err = auth.NewJWTVerifier("two", "").Verify(context.Background(), token)
	require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestJWTVerifier_WrongIssuer(t *testing.T) {
	token, err := auth.NewJWTVerifier("s", "other").Issue(1, "a@example.test", time.Hour)
	require.NoError(t, err)

	_, err = auth.NewJWTVerifier("s", "marketplace").Verify(context.Background(), token)
	require.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestJWTVerifier_Malformed(t *testing.T) {
	_, err := auth.NewJWTVerifier("s", "").Verify(context.Background(), "not-a-token")
	require.ErrorIs(t, err, jwt.ErrTokenMalformed)
}
