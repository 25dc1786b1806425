package callgraph

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// result is what a worker hands back to the committing goroutine.
type result struct {
	path     string
	compiled *compiled
	err      error
}

// indexFilesParallel indexes files in three phases:
//
//	Phase A (serial):   read, hash and skip unchanged files.
//	Phase B (parallel): parse, build and analyze on a bounded worker pool.
//	Phase C (serial):   commit snapshots to SQLite as results arrive.
func (e *Engine) indexFilesParallel(ctx context.Context, paths []string) error {
	var errs []error

	// ---- Phase A: Serial file preparation ----
	var sources []*source
	for _, path := range paths {
		if !IsPython(path) {
			continue
		}
		src, err := e.readSource(path)
		if err != nil {
			e.logger.Warn("index failed", "path", path, "error", err)
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
			continue
		}
		if src.existing != nil {
			continue // unchanged
		}
		sources = append(sources, src)
	}

	if len(sources) == 0 {
		return summarize(errs)
	}

	// ---- Phase B: Parallel build ----
	results := make(chan result, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workerCount(len(sources)))
	go func() {
		for _, src := range sources {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				c, err := compile(gctx, src)
				results <- result{path: src.path, compiled: c, err: err}
				return nil
			})
		}
		g.Wait()
		close(results)
	}()

	// ---- Phase C: Serial commit ----
	for res := range results {
		if res.err != nil {
			e.logger.Warn("index failed", "path", res.path, "error", res.err)
			errs = append(errs, fmt.Errorf("index %s: %w", res.path, res.err))
			continue
		}
		if err := e.commit(res.compiled); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", res.path, err))
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return summarize(errs)
}
