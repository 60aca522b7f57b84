// Package di provides dependency injection configuration for the Stockroom sync server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/stockroomapp/stockroom-server/internal/auth"
	"github.com/stockroomapp/stockroom-server/internal/config"
	"github.com/stockroomapp/stockroom-server/internal/di/providers"
	"github.com/stockroomapp/stockroom-server/internal/logger"
	"github.com/stockroomapp/stockroom-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideReplayCache)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Sync services
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideDeltaService)
	do.Provide(injector, providers.ProvideBatchProcessor)
	do.Provide(injector, providers.ProvideBatchRateLimiter)

	// Workers
	do.Provide(injector, providers.ProvideMaintenanceJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)

	for _, invoke := range []func() error{
		func() error { _, err := do.Invoke[providers.AuthKey](injector); return err },
		func() error { _, err := do.Invoke[*providers.StoreHandle](injector); return err },
		func() error { _, err := do.Invoke[*providers.ReplayHandle](injector); return err },
		func() error { _, err := do.Invoke[*auth.TokenService](injector); return err },
		func() error { _, err := do.Invoke[*service.DeltaService](injector); return err },
		func() error { _, err := do.Invoke[*service.BatchProcessor](injector); return err },
		func() error { _, err := do.Invoke[*providers.RateLimiterHandle](injector); return err },
		func() error { _, err := do.Invoke[*providers.MaintenanceJob](injector); return err },
		func() error { _, err := do.Invoke[*providers.HTTPServerHandle](injector); return err },
	} {
		if err := invoke(); err != nil {
			return err
		}
	}

	return nil
}
