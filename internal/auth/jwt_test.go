package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_SignVerify(t *testing.T) {
	svc := NewService([]byte("secret"))

	token, err := svc.Sign("operator", time.Hour)
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestService_Verify_Rejects(t *testing.T) {
	svc := NewService([]byte("secret"))
	other := NewService([]byte("other"))

	expired := NewService([]byte("secret"))
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	goodFromOther, err := other.Sign("operator", time.Hour)
	require.NoError(t, err)
	expiredToken, err := expired.Sign("operator", time.Hour)
	require.NoError(t, err)
	noSubject, err := svc.Sign("", time.Hour)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "operator",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	noneToken, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "wrong secret", token: goodFromOther},
		{name: "expired", token: expiredToken},
		{name: "no subject", token: noSubject},
		{name: "alg none", token: noneToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Verify(tc.token)
			assert.Error(t, err)
		})
	}
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	assert.NoError(t, CheckPassword(hash, "s3cret"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, CheckPassword("", "s3cret"), ErrInvalidCredentials)
}
