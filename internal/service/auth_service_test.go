package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Phurinho/outcome-career-align/internal/models"
	appErrors "github.com/Phurinho/outcome-career-align/pkg/errors"
)

func newTestAuthService() *AuthService {
	return NewAuthService(nil, nil, AuthConfig{Secret: "test-secret", Expiry: time.Hour, Issuer: "outcome-career-align"})
}

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := newTestAuthService()

	issued, err := svc.IssueToken(IssueTokenRequest{UserID: "stu-1", Role: models.RoleStudent, Career: "Data Analyst"})
	require.NoError(t, err)
	require.NotEmpty(t, issued.AccessToken)

	claims, err := svc.ValidateToken(issued.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "stu-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "Data Analyst", claims.Career)
}

func TestAuthServiceIssueRejectsUnknownRole(t *testing.T) {
	svc := newTestAuthService()
	_, err := svc.IssueToken(IssueTokenRequest{UserID: "u", Role: "guest"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceValidateRejectsForeignTokens(t *testing.T) {
	svc := newTestAuthService()

	other := NewAuthService(nil, nil, AuthConfig{Secret: "other-secret", Issuer: "outcome-career-align"})
	issued, err := other.IssueToken(IssueTokenRequest{UserID: "u", Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = svc.ValidateToken(issued.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JWTClaims{UserID: "u", Role: models.RoleAdmin})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(unsigned)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceValidateRejectsExpired(t *testing.T) {
	svc := newTestAuthService()
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	issued, err := svc.IssueToken(IssueTokenRequest{UserID: "u", Role: models.RoleEducator})
	require.NoError(t, err)

	_, err = svc.ValidateToken(issued.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
