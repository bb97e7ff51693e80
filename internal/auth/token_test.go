package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rwaledger/pkg/domain"
	dErrors "rwaledger/pkg/domain-errors"
)

var (
	jwtService = NewJWTService("test-signing-key", "test-issuer", "test-audience")
	operator   = domain.MustParseAddress("0x00000000000000000000000000000000000000a1")
	expiresIn  = time.Hour
)

func Test_IssueToken(t *testing.T) {
	issued, err := jwtService.IssueToken(operator, "ops", expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)
	require.NotEmpty(t, issued.JTI)

	claims, err := jwtService.ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, operator.Hex(), claims.Subject)
	assert.Equal(t, issued.JTI, claims.ID)
	assert.Equal(t, "ops", claims.Label)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_IssueToken_RejectsZeroSubject(t *testing.T) {
	_, err := jwtService.IssueToken(domain.Address{}, "", expiresIn)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	svc := NewJWTService("test-signing-key", "test-issuer", "test-audience")
	issued, err := svc.IssueToken(operator, "", time.Minute)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(issued.Token)
	require.Error(t, err)
	assert.Equal(t, "token has expired", err.Error())
}

func Test_ValidateToken_WrongKeyOrAudience(t *testing.T) {
	issued, err := jwtService.IssueToken(operator, "", expiresIn)
	require.NoError(t, err)

	_, err = NewJWTService("other-key", "test-issuer", "test-audience").ValidateToken(issued.Token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = NewJWTService("test-signing-key", "test-issuer", "other-audience").ValidateToken(issued.Token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_MiddlewareValidator(t *testing.T) {
	issued, err := jwtService.IssueToken(operator, "", expiresIn)
	require.NoError(t, err)

	claims, err := NewMiddlewareValidator(jwtService).ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, operator.Hex(), claims.Subject)
	assert.Equal(t, issued.JTI, claims.JTI)
}
