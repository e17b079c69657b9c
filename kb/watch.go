package kb

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/signalsfoundry/efis-adapter/internal/logging"
)

// WatchFile reloads c from path whenever the file is written, created or
// renamed into place. The parent directory is watched so editors that replace
// the file atomically are handled. A file that fails to parse leaves the
// current contents in place.
//
// The returned stop function ends the watch and waits for the watcher
// goroutine to exit. The watch also ends when ctx is cancelled.
func WatchFile(ctx context.Context, c *Catalog, path string, log logging.Logger) (stop func(), err error) {
	if log == nil {
		log = logging.Noop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create catalog watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	wctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer w.Close()
		for {
			select {
			case <-wctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				reload(wctx, c, abs, log)
			case werr, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn(wctx, "catalog watcher error", logging.Err(werr))
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}

func reload(ctx context.Context, c *Catalog, path string, log logging.Logger) {
	cats, err := LoadCatalogFile(path)
	if err != nil {
		log.Warn(ctx, "catalog reload rejected; keeping previous contents",
			logging.String("path", path), logging.Err(err))
		return
	}
	if err := c.Replace(cats); err != nil {
		log.Warn(ctx, "catalog reload rejected; keeping previous contents",
			logging.String("path", path), logging.Err(err))
		return
	}
	log.Info(ctx, "category catalog reloaded",
		logging.String("path", path),
		logging.Int("count", len(cats)),
		logging.Any("version", c.Version()),
	)
}
