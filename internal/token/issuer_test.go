package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/switchboard/internal/token"
)

func TestOperatorTokenClaims(t *testing.T) {
	issuer := token.NewIssuer("api-key", "api-secret", time.Hour)

	signed, err := issuer.OperatorToken("room-1", "alice")
	require.NoError(t, err)

	parsed, err := jwt.Parse(signed, func(tok *jwt.Token) (any, error) {
		return []byte("api-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)

	assert.Equal(t, "api-key", claims["iss"])
	assert.Equal(t, "agent_alice", claims["sub"])
	assert.Equal(t, "alice", claims["name"])

	video, ok := claims["video"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "room-1", video["room"])
	assert.Equal(t, true, video["roomJoin"])
	assert.Equal(t, true, video["canPublish"])
	assert.Equal(t, true, video["canSubscribe"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp.Time, time.Minute)
}

func TestOperatorTokenWrongSecret(t *testing.T) {
	issuer := token.NewIssuer("api-key", "api-secret", time.Hour)

	signed, err := issuer.OperatorToken("room-1", "alice")
	require.NoError(t, err)

	_, err = jwt.Parse(signed, func(tok *jwt.Token) (any, error) {
		return []byte("wrong-secret"), nil
	})
	assert.Error(t, err)
}
