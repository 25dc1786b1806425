package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index every Python file under a directory",
	Long: `Discovers .py and .pyi files (git ls-files, falling back to a .gitignore
aware walk), builds each file's call graph and analyses, and stores them in
the SQLite database. Files whose content is unchanged are skipped; files no
longer present are removed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	dbPath := resolveDBPath(findRepoRoot(targetDir))

	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	engine, err := openEngine(dbPath)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.IndexDirectory(cmd.Context(), targetDir); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	sum, err := engine.Query().Summary()
	if err != nil {
		return fmt.Errorf("summarizing: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Indexed %s in %s (%d files, %d nodes, %d edges)\n",
		targetDir,
		time.Since(start).Round(time.Millisecond),
		sum.Files, sum.Nodes, sum.Edges,
	)
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	return nil
}
