package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	callgraph "github.com/jward/callgraph"
)

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <file.py>",
	Short: "Rebuild and print the analysis whenever a Python file changes",
	Long: `Builds the file once, then rebuilds it after every write. Each completed
build is stored in the index and printed as one result; parse errors are
reported on stderr and watching continues. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", callgraph.DefaultDebounce, "quiet period before rebuilding")
}

func runWatch(cmd *cobra.Command, args []string) error {
	path, err := resolveFilePath(args[0])
	if err != nil {
		return err
	}

	engine, err := openEngine(resolveDBPath(findRepoRoot(filepath.Dir(path))), callgraph.WithDebounce(flagDebounce))
	if err != nil {
		return err
	}
	defer engine.Close()

	fmt.Fprintf(os.Stderr, "Watching %s\n", path)
	return engine.Watch(cmd.Context(), path, func(g *callgraph.Graph, a *callgraph.Analysis, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			return
		}
		if err := outputResult(CLIResult{
			Command: "watch",
			File:    path,
			Results: CLIWatchEvent{Graph: graphToCLI(g), Analysis: a},
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
	})
}
