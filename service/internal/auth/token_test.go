package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueThenValidateRoundTrips(t *testing.T) {
	iss := NewIssuer([]byte("test-secret"))

	tok, err := iss.Issue("user-1", "room-1")
	require.NoError(t, err)

	claims, err := iss.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "room-1", claims.RoomID)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	iss := NewIssuer([]byte("test-secret"))
	tok, err := iss.Issue("user-1", "room-1")
	require.NoError(t, err)

	other := NewIssuer([]byte("other-secret"))
	_, err = other.Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	iss := &Issuer{secret: []byte("test-secret"), ttl: -time.Hour}
	tok, err := iss.Issue("user-1", "room-1")
	require.NoError(t, err)

	_, err = iss.Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	iss := NewIssuer([]byte("test-secret"))
	_, err := iss.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
