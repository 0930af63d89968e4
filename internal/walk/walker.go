package walk

import (
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gpufind/gpufind/glob"
)

// Options configures one walk.
type Options struct {
	// MinDepth and MaxDepth bound emission by depth below the root; the
	// root itself is depth 0. -1 means unbounded.
	MinDepth int
	MaxDepth int

	// Prune is a glob evaluated against directory basenames; matching
	// directories are neither emitted nor descended into.
	Prune *glob.Pattern

	// Preds is the conjunction of stat-based filters.
	Preds Predicates
}

// Walker walks root paths depth-first in directory iteration order and
// emits every entry passing the depth and stat filters.
//
// Error policy follows find: an error on a root path is reported and the
// walk continues with other roots; an error below a root is skipped
// silently. Either way the walker remembers that something failed so the
// process can exit nonzero at the end.
type Walker struct {
	opts   Options
	errw   io.Writer
	log    zerolog.Logger
	now    time.Time
	failed bool
}

// NewWalker creates a walker. Root-path errors are printed to errw.
func NewWalker(opts Options, errw io.Writer, log zerolog.Logger) *Walker {
	if opts.MinDepth < 0 {
		opts.MinDepth = 0
	}
	return &Walker{
		opts: opts,
		errw: errw,
		log:  log,
		now:  time.Now(),
	}
}

// Failed reports whether any I/O error occurred across all walks.
func (w *Walker) Failed() bool { return w.failed }

// Walk traverses one root and calls emit for every passing entry.
func (w *Walker) Walk(root string, emit func(path string)) {
	cleanRoot := filepath.Clean(root)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				w.failed = true
				fmt.Fprintf(w.errw, "gpufind: %s: %v\n", root, err)
				return nil
			}
			// Mid-walk errors are skipped silently but still fail the run.
			w.failed = true
			w.log.Debug().Str("path", path).Err(err).Msg("skipping unreadable entry")
			return nil
		}

		depth := w.depth(cleanRoot, path)

		if d.IsDir() {
			if w.opts.Prune != nil && path != root && w.opts.Prune.MatchString(filepath.Base(path)) {
				return fs.SkipDir
			}
			if w.opts.MaxDepth >= 0 && depth >= w.opts.MaxDepth {
				if w.include(depth, path, d) {
					emit(path)
				}
				return fs.SkipDir
			}
		}

		if w.include(depth, path, d) {
			emit(path)
		}
		return nil
	})
	if err != nil {
		w.failed = true
		fmt.Fprintf(w.errw, "gpufind: %s: %v\n", root, err)
	}
}

// include applies the depth bounds and stat predicates.
func (w *Walker) include(depth int, path string, d fs.DirEntry) bool {
	if depth < w.opts.MinDepth {
		return false
	}
	if w.opts.MaxDepth >= 0 && depth > w.opts.MaxDepth {
		return false
	}
	return w.opts.Preds.Match(path, d, w.now)
}

// depth counts path separators below the cleaned root.
func (w *Walker) depth(cleanRoot, path string) int {
	rel, err := filepath.Rel(cleanRoot, filepath.Clean(path))
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
