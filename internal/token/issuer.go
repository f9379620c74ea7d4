// Package token issues time-limited room-scoped join credentials.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer mints media-server join tokens. Grants are scoped to a single
// room: join, publish, subscribe.
type Issuer struct {
	apiKey    string
	apiSecret string
	ttl       time.Duration
}

// NewIssuer creates a token issuer for the given media server API key
// pair.
func NewIssuer(apiKey, apiSecret string, ttl time.Duration) *Issuer {
	return &Issuer{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		ttl:       ttl,
	}
}

// OperatorToken mints a join token for a human operator entering a
// call's room. The operator identity carries the "agent_" prefix so the
// session controller can recognize the join and disengage.
func (i *Issuer) OperatorToken(roomName, operatorName string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  i.apiKey,
		"sub":  "agent_" + operatorName,
		"name": operatorName,
		"nbf":  now.Unix(),
		"exp":  now.Add(i.ttl).Unix(),
		"video": map[string]any{
			"room":         roomName,
			"roomJoin":     true,
			"canPublish":   true,
			"canSubscribe": true,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(i.apiSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
