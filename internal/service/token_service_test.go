package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-result-engine/internal/models"
	"github.com/noah-isme/sma-result-engine/pkg/config"
	appErrors "github.com/noah-isme/sma-result-engine/pkg/errors"
)

func signToken(t *testing.T, secret string, claims models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() models.JWTClaims {
	now := time.Now()
	return models.JWTClaims{
		UserID:   "teacher-1",
		Role:     models.RoleTeacher,
		SchoolID: "school-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "identity",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
}

func TestTokenServiceValidate(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "secret", Issuer: "identity"})

	claims, err := svc.Validate(signToken(t, "secret", validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", claims.UserID)
	assert.Equal(t, models.Actor{UserID: "teacher-1", Role: models.RoleTeacher, SchoolID: "school-1"}, claims.Actor())
}

func TestTokenServiceRejects(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "secret", Issuer: "identity"})

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "elsewhere"
	anonymous := validClaims()
	anonymous.UserID = ""

	for name, token := range map[string]string{
		"bad signature": signToken(t, "other", validClaims()),
		"expired":       signToken(t, "secret", expired),
		"wrong issuer":  signToken(t, "secret", wrongIssuer),
		"no identity":   signToken(t, "secret", anonymous),
		"garbage":       "not-a-token",
	} {
		_, err := svc.Validate(token)
		assert.ErrorIs(t, err, appErrors.ErrUnauthorized, name)
	}
}
