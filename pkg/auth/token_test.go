package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perkstack/rewards-backend/pkg/config"
	"github.com/perkstack/rewards-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "perkstack-test",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	employeeID := uuid.New()

	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		EmployeeID: employeeID,
		Role:       enums.RoleAdmin,
	})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, employeeID, claims.EmployeeID)
	assert.Equal(t, enums.RoleAdmin, claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, cfg.Issuer, claims.Issuer)
}

func TestMintRequiresValidRole(t *testing.T) {
	_, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{
		EmployeeID: uuid.New(),
		Role:       enums.Role("superuser"),
	})
	require.Error(t, err)
}

func TestMintRequiresEmployeeID(t *testing.T) {
	_, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{Role: enums.RoleUser})
	require.Error(t, err)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		EmployeeID: uuid.New(),
		Role:       enums.RoleUser,
	})
	require.NoError(t, err)

	cfg.Secret = "other-secret"
	_, err = ParseAccessToken(cfg, token)
	require.Error(t, err)
}

func TestParseRejectsExpiredButAllowExpiredAccepts(t *testing.T) {
	cfg := testJWTConfig()
	issued := time.Now().Add(-2 * time.Hour)
	token, err := MintAccessToken(cfg, issued, AccessTokenPayload{
		EmployeeID: uuid.New(),
		Role:       enums.RoleUser,
		JTI:        "fixed-jti",
	})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	require.Error(t, err)

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "fixed-jti", claims.ID)
}
