package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/care-engine/care/internal/engine"
	"github.com/care-engine/care/internal/indexer"
	"github.com/care-engine/care/pkg/git"
)

var (
	indexExclude []string
	indexNoGit   bool
	indexWatch   bool
)

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Index a project's code and documentation into the vector store",
	Long: `care index walks the given project directory, embeds every surviving
code file and documentation file, and persists the result to the local
vector store, skipping files whose content hash has not changed since the
last run.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringSliceVar(&indexExclude, "exclude", nil, "additional ignore globs, combined with .gitignore")
	indexCmd.Flags().BoolVar(&indexNoGit, "no-gitignore", false, "do not consult .gitignore when walking the project")
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "keep running, re-indexing on filesystem changes")
}

func runIndex(cmd *cobra.Command, args []string) error {
	rootDir := args[0]

	cfg, logger, err := loadEngineConfig()
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("constructing engine: %w", err)
	}
	defer eng.Close()

	ctx := cmd.Context()

	if branch, berr := git.DetectBranch(rootDir); berr == nil {
		logger.Info(ctx, "indexing project", zap.String("path", rootDir), zap.String("branch", branch))
	} else {
		logger.Debug(ctx, "branch detection skipped", zap.String("path", rootDir), zap.Error(berr))
	}

	opts := indexer.Options{
		ExcludePatterns:  indexExclude,
		RespectGitignore: !indexNoGit,
	}

	if indexWatch || cfg.Indexer.Watch {
		logger.Info(ctx, "watch mode enabled, re-indexing on filesystem changes", zap.String("path", rootDir))
		return eng.Indexer.Watch(ctx, rootDir, opts, indexer.DefaultDebounce)
	}

	summary, err := eng.IndexProject(ctx, rootDir, nil, opts)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", rootDir, err)
	}

	fmt.Printf("processed: %d\n", len(summary.Processed))
	fmt.Printf("skipped (unchanged): %d\n", len(summary.Skipped))
	fmt.Printf("excluded: %d\n", len(summary.Excluded))
	if len(summary.Failed) > 0 {
		fmt.Printf("failed: %d\n", len(summary.Failed))
		for _, f := range summary.Failed {
			fmt.Printf("  - %s\n", f)
		}
	}
	return nil
}
