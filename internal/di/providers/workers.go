package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/foliumapp/folium-server/internal/config"
	"github.com/foliumapp/folium-server/internal/logger"
	"github.com/foliumapp/folium-server/internal/service"
	"github.com/foliumapp/folium-server/internal/watcher"
)

// inboxSettleDelay is how long a dropped document must stop changing before
// it is imported.
const inboxSettleDelay = 2 * time.Second

// InboxWatcherHandle wraps the inbox watcher with shutdown capability.
type InboxWatcherHandle struct {
	*watcher.InboxWatcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *InboxWatcherHandle) Shutdown() error {
	h.cancel()
	return h.InboxWatcher.Stop()
}

// ProvideInboxWatcher provides the metadata inbox watcher.
func ProvideInboxWatcher(i do.Injector) (*InboxWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	importer := do.MustInvoke[*service.ImporterService](i)

	importFn := func(ctx context.Context, path string) error {
		_, err := importer.ImportFile(ctx, path)
		return err
	}

	w, err := watcher.New(cfg.Directories.Inbox, inboxSettleDelay, importFn, log.Logger)
	if err != nil {
		return nil, err
	}

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("Inbox watcher error", "error", err)
		}
	}()

	log.Info("Inbox watcher started", "dir", cfg.Directories.Inbox)

	return &InboxWatcherHandle{
		InboxWatcher: w,
		cancel:       cancel,
	}, nil
}
