package source

import (
	"context"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher reloads file sources when their catalog changes on disk.
type Watcher struct {
	loader   *Loader
	sources  map[string]*FileSource // cleaned path -> source
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// NewWatcher creates a watcher for the given file sources. The parent
// directory of each catalog is watched so atomic replacements are seen.
func NewWatcher(loader *Loader, sources []*FileSource) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}

	w := &Watcher{
		loader:   loader,
		sources:  make(map[string]*FileSource),
		watcher:  fw,
		debounce: defaultDebounce,
	}

	for _, src := range sources {
		w.sources[filepath.Clean(src.Path())] = src
	}

	dirs := lo.Uniq(lo.Map(lo.Keys(w.sources), func(path string, _ int) string {
		return filepath.Dir(path)
	}))
	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, errors.Wrapf(err, "failed to watch %s", dir)
		}
		zlog.Info().Msgf("watching catalog directory: %s", dir)
	}

	return w, nil
}

// Run processes file events until ctx is done. Bursts of events for the same
// catalog are coalesced into a single reload.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	pending := make(map[*FileSource]struct{})
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			src, ok := w.sources[filepath.Clean(event.Name)]
			if !ok {
				continue
			}
			zlog.Debug().Msgf("catalog changed: %s (%s)", event.Name, event.Op)
			pending[src] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			zlog.Warn().Err(err).Msg("file watcher error")

		case <-timer.C:
			for src := range pending {
				if _, err := w.loader.Load(ctx, src); err != nil {
					continue
				}
				zlog.Info().Msgf("catalog reloaded: %s", src.Path())
			}
			clear(pending)
		}
	}
}
