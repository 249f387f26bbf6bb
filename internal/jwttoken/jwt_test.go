package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "trustforge/pkg/domainerrors"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("test-signing-key", "trustforge", "trustforge-api")

	token, err := svc.GenerateAccessToken("5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY", claims.Owner)
}

func TestValidateExpiredToken(t *testing.T) {
	svc := NewJWTService("test-signing-key", "trustforge", "trustforge-api")

	token, err := svc.GenerateAccessToken("alice", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateWrongKey(t *testing.T) {
	issuer := NewJWTService("key-one", "trustforge", "trustforge-api")
	verifier := NewJWTService("key-two", "trustforge", "trustforge-api")

	token, err := issuer.GenerateAccessToken("alice", time.Hour)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}

func TestValidateGarbage(t *testing.T) {
	svc := NewJWTService("test-signing-key", "trustforge", "trustforge-api")

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}
