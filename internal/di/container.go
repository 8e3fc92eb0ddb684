// Package di provides dependency injection configuration for the Folium server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/foliumapp/folium-server/internal/config"
	"github.com/foliumapp/folium-server/internal/di/providers"
	"github.com/foliumapp/folium-server/internal/logger"
	"github.com/foliumapp/folium-server/internal/media/pages"
	"github.com/foliumapp/folium-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Storage layer
	do.Provide(injector, providers.ProvidePageStorage)

	// Business services
	do.Provide(injector, providers.ProvideMetadataService)
	do.Provide(injector, providers.ProvideImporterService)

	// Workers
	do.Provide(injector, providers.ProvideInboxWatcher)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*pages.Storage](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.MetadataService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.ImporterService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.InboxWatcherHandle](injector); err != nil {
		return err
	}
	return nil
}
