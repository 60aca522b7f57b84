package auth

import (
	"time"
)

// AccessClaims are the claims carried by a sync access token.
// v4.local tokens are encrypted, so clients cannot read or alter them.
type AccessClaims struct {
	WorkspaceID string `json:"workspace_id"`
	UserID      string `json:"user_id"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}
