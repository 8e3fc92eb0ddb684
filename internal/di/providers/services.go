package providers

import (
	"github.com/samber/do/v2"

	"github.com/foliumapp/folium-server/internal/config"
	"github.com/foliumapp/folium-server/internal/logger"
	"github.com/foliumapp/folium-server/internal/media/pages"
	"github.com/foliumapp/folium-server/internal/service"
)

// ProvideMetadataService provides the metadata reconciliation service.
func ProvideMetadataService(i do.Injector) (*service.MetadataService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	storage := do.MustInvoke[*pages.Storage](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewMetadataService(storeHandle.Store, storage, cfg, log.Logger), nil
}

// ProvideImporterService provides the metadata import orchestrator.
func ProvideImporterService(i do.Injector) (*service.ImporterService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	metadata := do.MustInvoke[*service.MetadataService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewImporterService(storeHandle.Store, metadata, log.Logger), nil
}
