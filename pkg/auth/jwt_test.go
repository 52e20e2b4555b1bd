package auth_test

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kachra/pkg/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	id := auth.Identity{UserID: "u1", Email: "s@x.com", Role: "seller"}

	token, err := auth.GenerateToken(id)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.Identity())
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	token, err := auth.GenerateToken(auth.Identity{UserID: "u1", Email: "b@x.com", Role: "buyer"})
	require.NoError(t, err)

	_, err = auth.ValidateToken(token + "x")
	assert.Error(t, err)
}

func TestValidateRejectsForeignAlgorithm(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"email": "b@x.com"})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = auth.ValidateToken(s)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)

	assert.True(t, auth.CheckPassword(hash, "secret123"))
	assert.False(t, auth.CheckPassword(hash, "wrong"))
}

func TestIdentityContext(t *testing.T) {
	_, ok := auth.FromCtx(context.Background())
	assert.False(t, ok)

	ctx := auth.WithIdentity(context.Background(), auth.Identity{Email: "s@x.com"})
	id, ok := auth.FromCtx(ctx)
	assert.True(t, ok)
	assert.Equal(t, "s@x.com", id.Email)
}
