package providers

import (
	"github.com/samber/do/v2"

	"github.com/stockroomapp/stockroom-server/internal/auth"
	"github.com/stockroomapp/stockroom-server/internal/config"
	"github.com/stockroomapp/stockroom-server/internal/logger"
)

// AuthKey is the hex-encoded PASETO v4 symmetric key.
type AuthKey string

// ProvideAuthKey uses AUTH_KEY when set and otherwise loads or generates the key file.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Auth.KeyHex != "" {
		log.Info("Authentication key loaded from configuration")
		return AuthKey(cfg.Auth.KeyHex), nil
	}

	key, err := auth.LoadOrGenerateKey(cfg.Database.DataDir)
	if err != nil {
		return "", err
	}
	cfg.Auth.KeyHex = key

	log.Info("Authentication key loaded", "dir", cfg.Database.DataDir)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	authKey := do.MustInvoke[AuthKey](i)
	return auth.NewTokenService(string(authKey))
}
