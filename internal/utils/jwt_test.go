package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-portal-server/internal/config"
	"clinic-portal-server/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:                 "test-access-secret",
		JWTRefreshSecret:          "test-refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 168,
	}
}

func testUser() *models.User {
	return &models.User{
		BaseModel: models.BaseModel{ID: "11111111-2222-3333-4444-555555555555"},
		Email:     "pat@example.com",
		Role:      models.RolePatient,
	}
}

func TestGenerateTokens_RoundTrip(t *testing.T) {
	cfg := testConfig()
	user := testUser()

	access, refresh, err := GenerateTokens(user, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.NotEqual(t, access, refresh)

	claims, err := ValidateToken(access, cfg.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, models.RolePatient, claims.Role)

	refreshClaims, err := ValidateToken(refresh, cfg.JWTRefreshSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, refreshClaims.UserID)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	cfg := testConfig()
	access, _, err := GenerateTokens(testUser(), cfg)
	require.NoError(t, err)

	_, err = ValidateToken(access, "some-other-secret")
	assert.Error(t, err)

	// An access token must not validate against the refresh secret.
	_, err = ValidateToken(access, cfg.JWTRefreshSecret)
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	cfg := testConfig()
	cfg.JWTExpirationMinutes = -1

	access, _, err := GenerateTokens(testUser(), cfg)
	require.NoError(t, err)

	_, err = ValidateToken(access, cfg.JWTSecret)
	assert.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	_, err := ValidateToken("not.a.token", "secret")
	assert.Error(t, err)
}

func TestValidateBookingSlot(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)

	assert.NoError(t, ValidateBookingSlot("2025-03-12", "10:00", 8, 18, now))
	assert.NoError(t, ValidateBookingSlot("2025-03-12", "08:00", 8, 18, now))

	assert.Error(t, ValidateBookingSlot("2025-03-09", "10:00", 8, 18, now), "past date")
	assert.Error(t, ValidateBookingSlot("2025-03-12", "18:00", 8, 18, now), "closing hour is exclusive")
	assert.Error(t, ValidateBookingSlot("2025-03-12", "07:00", 8, 18, now), "before opening")
	assert.Error(t, ValidateBookingSlot("2026-03-12", "10:00", 8, 18, now), "more than six months out")
	assert.Error(t, ValidateBookingSlot("12/03/2025", "10:00", 8, 18, now), "wrong date format")
}
