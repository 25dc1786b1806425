package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	callgraph "github.com/jward/callgraph"
)

var flagConfig string

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "callgraph",
	Short: "Static call graphs for Python modules",
	Long: `callgraph parses Python source with tree-sitter and records, for every
top-level function and for module-level code, the names it calls. Graphs
and their structural analyses (weak components, strongly connected
components, inline candidates, leaves) can be printed directly or indexed
into a SQLite database for later queries.

Configuration is read from .callgraph.yaml in the repository root (or
--config) and from CALLGRAPH_* environment variables.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		return validateFormat(viper.GetString("format"))
	},
	// No Run; prints help by default.
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default: .callgraph.yaml in the repo root)")
	pf.String("db", "", "database path (default: .callgraph/index.db relative to repo root)")
	pf.String("format", "json", "output format: json|text|yaml")
	pf.BoolP("verbose", "v", false, "log indexing progress to stderr")
	pf.Int("workers", 0, "parallel indexing workers (default: number of CPUs)")
	pf.StringSlice("ignore", nil, "gitignore-style patterns to skip when indexing")
	for _, name := range []string{"db", "format", "verbose", "workers", "ignore"} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(dotCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(serveCmd)
}

// initConfig reads the config file and CALLGRAPH_* environment variables.
// A missing default config file is not an error; a missing --config is.
func initConfig() error {
	if flagConfig != "" {
		viper.SetConfigFile(flagConfig)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting cwd: %w", err)
		}
		viper.AddConfigPath(findRepoRoot(cwd))
		viper.SetConfigName(".callgraph")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("callgraph")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// newLogger returns a stderr text logger. Warnings are always shown;
// --verbose adds per-file debug lines.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// engineOptions builds Engine options from flags and config.
func engineOptions() []callgraph.Option {
	opts := []callgraph.Option{callgraph.WithLogger(newLogger())}
	if n := viper.GetInt("workers"); n > 0 {
		opts = append(opts, callgraph.WithWorkers(n))
	}
	if patterns := viper.GetStringSlice("ignore"); len(patterns) > 0 {
		opts = append(opts, callgraph.WithIgnore(patterns...))
	}
	return opts
}

// openEngine creates the database directory if needed and opens an Engine.
// extra options are applied after those from flags and config.
func openEngine(dbPath string, extra ...callgraph.Option) (*callgraph.Engine, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	e, err := callgraph.New(dbPath, append(engineOptions(), extra...)...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return e, nil
}

// openExistingEngine opens the Engine for the current repository and fails
// when nothing has been indexed yet.
func openExistingEngine() (*callgraph.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'callgraph index' first)", dbPath)
	}
	return openEngine(dbPath)
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from --db (or config) or the default.
func resolveDBPath(repoRoot string) string {
	if db := viper.GetString("db"); db != "" {
		if filepath.IsAbs(db) {
			return db
		}
		return filepath.Join(repoRoot, db)
	}
	return filepath.Join(repoRoot, ".callgraph", "index.db")
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}
