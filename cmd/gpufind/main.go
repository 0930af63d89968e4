// Command gpufind is a find-style file name search that batches candidate
// paths and classifies them on the fastest available backend: scalar CPU,
// SIMD CPU, Metal, or Vulkan.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/gpufind/gpufind/glob"
	"github.com/gpufind/gpufind/gpu"
	"github.com/gpufind/gpufind/internal/cli"
	"github.com/gpufind/gpufind/internal/conf"
	"github.com/gpufind/gpufind/internal/walk"
	"github.com/gpufind/gpufind/regex"
	"github.com/gpufind/gpufind/simd"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg := conf.Load()

	cmd, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gpufind: %v\n", err)
		return 1
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(zerolog.WarnLevel)
	if cmd.Verbose || cfg.Verbose {
		log = log.Level(zerolog.DebugLevel)
	}

	query, err := compileQuery(cmd, cfg)
	if err != nil {
		var ce *regex.CompileError
		if errors.As(err, &ce) {
			fmt.Fprintln(os.Stderr, "gpufind: invalid regex pattern")
		} else {
			fmt.Fprintf(os.Stderr, "gpufind: %v\n", err)
		}
		return 1
	}

	var prune *glob.Pattern
	if cmd.Prune != "" {
		prune, err = glob.Compile(cmd.Prune, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "gpufind: %v\n", err)
			return 1
		}
	}

	force := cmd.Force
	if force == gpu.ForceAuto {
		force = cfg.Force()
	}

	// Collect candidate paths: the walker for filesystem roots, stdin for
	// "-" ingestion. Emission order is preserved end to end.
	var paths []string
	failed := false

	if cmd.Stdin {
		stdinPaths, err := cli.ReadPaths(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "gpufind: %v\n", err)
			return 1
		}
		paths = filterStdinPaths(stdinPaths, cmd)
	}
	if len(cmd.Roots) > 0 {
		walker := walk.NewWalker(walk.Options{
			MinDepth: cmd.MinDepth,
			MaxDepth: cmd.MaxDepth,
			Prune:    prune,
			Preds:    predicates(cmd),
		}, os.Stderr, log)
		for _, root := range cmd.Roots {
			walker.Walk(root, func(path string) {
				paths = append(paths, path)
			})
		}
		failed = walker.Failed()
	}

	emitter := cli.NewEmitter(os.Stdout, cmd.Print0, cmd.Count)

	if query == nil {
		// No pattern predicate: every surviving path matches (or none,
		// negated).
		if !cmd.Not {
			for _, p := range paths {
				emitter.Emit(p)
			}
		}
		emitter.Close()
		if failed {
			return 1
		}
		return 0
	}

	orch := gpu.NewOrchestrator(log)
	defer orch.Close()
	orch.Probe(force, simd.Accelerated())

	matched, err := orch.Run(paths, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gpufind: %v\n", err)
		return 1
	}

	it := matched.Iterator()
	for it.HasNext() {
		emitter.Emit(paths[it.Next()])
	}
	emitter.Close()

	if failed {
		return 1
	}
	return 0
}

// compileQuery builds the match predicate from the parsed pattern specs.
func compileQuery(cmd *cli.Command, cfg conf.Config) (*gpu.Query, error) {
	if len(cmd.Patterns) == 0 {
		return nil, nil
	}

	q := &gpu.Query{Negate: cmd.Not}
	for _, spec := range cmd.Patterns {
		switch spec.Kind {
		case cli.KindRegex:
			prog, err := regex.Compile(spec.Expr, spec.Fold)
			if err != nil {
				return nil, err
			}
			q.Regex = prog
		default:
			var opts glob.Options
			if spec.Fold {
				opts |= glob.CaseInsensitive
			}
			if spec.Kind == cli.KindPath {
				opts |= glob.MatchPath
			}
			if cfg.Period {
				opts |= glob.Period
			}
			p, err := glob.Compile(spec.Expr, opts)
			if err != nil {
				return nil, err
			}
			q.Globs = append(q.Globs, p)
		}
	}
	return q, nil
}

// predicates maps parsed filter arguments onto the walker's predicate set.
func predicates(cmd *cli.Command) walk.Predicates {
	return walk.Predicates{
		Type:  cmd.Type,
		Size:  cmd.Size,
		MTime: cmd.MTime,
		ATime: cmd.ATime,
		CTime: cmd.CTime,
		Empty: cmd.Empty,
	}
}

// filterStdinPaths applies the stat-based filters to ingested paths. Paths
// that no longer exist are skipped; pattern-only queries take the paths as
// given without touching the filesystem.
func filterStdinPaths(paths []string, cmd *cli.Command) []string {
	preds := predicates(cmd)
	if cmd.Type == 0 && cmd.Size == nil && cmd.MTime == nil &&
		cmd.ATime == nil && cmd.CTime == nil && !cmd.Empty {
		return paths
	}

	out := paths[:0]
	now := time.Now()
	for _, p := range paths {
		info, err := os.Lstat(p)
		if err != nil {
			continue
		}
		if preds.Match(p, fs.FileInfoToDirEntry(info), now) {
			out = append(out, p)
		}
	}
	return out
}
