package rbac

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/sjlangley/social-golf-spa/pkg/observability"
)

// WatchConfigFile reloads the engine's policy whenever the policy file
// changes, until ctx is cancelled. A file that fails to parse leaves
// the current policy in place; a broken edit must not lock everyone
// out.
//
// The parent directory is watched rather than the file itself so that
// editors and configmap updates that replace the file atomically
// (rename over it) keep triggering events.
func WatchConfigFile(ctx context.Context, engine *Engine, path string, logger *observability.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				cfg, err := LoadConfigFile(path)
				if err != nil {
					logger.WithError(err).Error("Failed to reload role policy, keeping current policy")
					continue
				}
				engine.Reload(cfg)
				logger.WithField("path", path).Info("Role policy reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithError(err).Warn("Role policy watcher error")
			}
		}
	}()

	return nil
}
