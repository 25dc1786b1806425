package callgraph

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits after the last change to a file
// before rebuilding it.
const DefaultDebounce = 100 * time.Millisecond

// WithDebounce sets the quiet period Watch waits for before rebuilding.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.debounce = d
		}
	}
}

// WatchFunc receives each completed rebuild. On failure g and a are nil and
// err is the build error, typically a *pyast.ParseError.
type WatchFunc func(g *Graph, a *Analysis, err error)

// Watch builds path once, then rebuilds it whenever it is written or
// recreated, calling fn after every build. Bursts of events within the
// debounce window collapse into one rebuild. Rebuilds run one at a time on
// the calling goroutine, so fn always sees the latest completed build last.
// Watch blocks until ctx is done and then returns nil.
//
// The parent directory is watched rather than the file so editors that
// save by renaming a temporary file over the original keep triggering
// rebuilds.
func (e *Engine) Watch(ctx context.Context, path string, fn WatchFunc) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("callgraph: watch %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("callgraph: watch: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("callgraph: watch %s: %w", abs, err)
	}

	rebuild := func() {
		g, err := e.BuildFile(ctx, abs)
		if err != nil {
			e.logger.Warn("rebuild failed", "path", abs, "error", err)
			fn(nil, nil, err)
			return
		}
		fn(g, Analyze(g), nil)
	}
	rebuild()

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(e.debounce)
			} else {
				timer.Reset(e.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			rebuild()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("watch error", "path", abs, "error", err)
		}
	}
}
