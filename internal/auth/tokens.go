package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/stockroomapp/stockroom-server/internal/id"
)

const (
	// TokenIssuer is the issuer the identity service stamps on access tokens.
	TokenIssuer = "stockroom-identity"
	// TokenAudience is the audience sync tokens are minted for.
	TokenAudience = "stockroom-sync"
)

// TokenService issues and verifies PASETO v4.local access tokens.
type TokenService struct {
	symmetricKey paseto.V4SymmetricKey
	now          func() time.Time
}

// NewTokenService builds a token service from a hex-encoded 32-byte key.
func NewTokenService(keyHex string) (*TokenService, error) {
	keyBytes, err := decodeKey(keyHex)
	if err != nil {
		return nil, err
	}

	key, err := paseto.V4SymmetricKeyFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}

	return &TokenService{symmetricKey: key, now: time.Now}, nil
}

// Issue mints a token scoping its bearer to one workspace.
// Production tokens come from the identity service; this exists for seeding and tests.
func (s *TokenService) Issue(workspaceID, userID string, ttl time.Duration) (string, error) {
	if workspaceID == "" || userID == "" {
		return "", errors.New("workspace id and user id are required")
	}
	now := s.now()

	token := paseto.NewToken()
	token.SetIssuer(TokenIssuer)
	token.SetSubject(userID)
	token.SetAudience(TokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(ttl))

	tokenID, err := id.Generate("token")
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	//nolint:errcheck // Token.Set only errors on values that cannot be marshaled
	_ = token.Set("workspace_id", workspaceID)
	//nolint:errcheck // Token.Set only errors on values that cannot be marshaled
	_ = token.Set("user_id", userID)

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// Verify decrypts a token and checks its audience, issuer and validity window.
func (s *TokenService) Verify(tokenString string) (*AccessClaims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(TokenAudience))
	parser.AddRule(paseto.IssuedBy(TokenIssuer))
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims AccessClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if claims.WorkspaceID == "" || claims.UserID == "" {
		return nil, errors.New("invalid token: missing workspace_id or user_id")
	}

	return &claims, nil
}
