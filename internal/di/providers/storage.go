package providers

import (
	"github.com/samber/do/v2"

	"github.com/foliumapp/folium-server/internal/config"
	"github.com/foliumapp/folium-server/internal/logger"
	"github.com/foliumapp/folium-server/internal/media/pages"
)

// ProvidePageStorage provides the page image storage.
func ProvidePageStorage(i do.Injector) (*pages.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	storage, err := pages.NewStorage(cfg.Directories.Images)
	if err != nil {
		return nil, err
	}

	log.Info("Page storage initialized", "path", cfg.Directories.Images)

	return storage, nil
}
