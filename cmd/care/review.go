package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/care-engine/care/internal/aggregator"
	"github.com/care-engine/care/internal/engine"
	"github.com/care-engine/care/internal/repository"
	"github.com/care-engine/care/internal/retriever"
)

var reviewProjectPath string

var reviewCmd = &cobra.Command{
	Use:   "review <path-or-file>",
	Short: "Assemble review context for a file or a whole project subtree",
	Long: `care review assembles a ContextBundle — code exemplars, re-ranked
documentation guidelines, and relevant PR comments — for the given file. If
given a directory, every surviving file under it is retrieved and merged
into one unified bundle, as a PR Context Aggregator run would.`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().StringVar(&reviewProjectPath, "project", "", "project root for isolation filtering (default: current directory)")
}

func runReview(cmd *cobra.Command, args []string) error {
	target := args[0]

	cfg, logger, err := loadEngineConfig()
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("constructing engine: %w", err)
	}
	defer eng.Close()

	projectPath := reviewProjectPath
	if projectPath == "" {
		if wd, werr := os.Getwd(); werr == nil {
			projectPath = wd
		}
	}
	opts := retriever.Options{ProjectPath: projectPath}

	ctx := cmd.Context()

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("stat %s: %w", target, err)
	}

	if !info.IsDir() {
		content, rerr := os.ReadFile(target)
		if rerr != nil {
			return fmt.Errorf("reading %s: %w", target, rerr)
		}
		bundle, gerr := eng.GetContext(ctx, target, string(content), opts)
		if gerr != nil {
			return fmt.Errorf("assembling context for %s: %w", target, gerr)
		}
		printBundle(bundle)
		return nil
	}

	candidates, werr := repository.Walk(ctx, target, repository.WalkOptions{RespectGitignore: true})
	if werr != nil {
		return fmt.Errorf("walking %s: %w", target, werr)
	}

	files := make([]aggregator.PRFile, 0, len(candidates))
	for _, c := range candidates {
		content, rerr := os.ReadFile(c.AbsPath)
		if rerr != nil {
			continue
		}
		files = append(files, aggregator.PRFile{Path: filepath.Join(target, c.RelPath), Content: string(content)})
	}

	unified, uerr := eng.GatherUnifiedContextForPR(ctx, files, opts)
	if uerr != nil {
		return fmt.Errorf("assembling unified context for %s: %w", target, uerr)
	}
	printUnified(unified)
	return nil
}

func printBundle(b retriever.ContextBundle) {
	fmt.Printf("code examples: %d\n", len(b.CodeExamples))
	for _, c := range b.CodeExamples {
		fmt.Printf("  - %s (similarity %.2f)\n", c.Path, c.Similarity)
	}
	fmt.Printf("guidelines: %d\n", len(b.Guidelines))
	for _, g := range b.Guidelines {
		fmt.Printf("  - %s (similarity %.2f)\n", g.Path, g.Similarity)
	}
	fmt.Printf("pr comments: %d\n", len(b.PRComments))
	for _, c := range b.PRComments {
		fmt.Printf("  - #%d by %s (relevance %.2f)\n", c.PRNumber, c.Author, c.RelevanceScore)
	}
}

func printUnified(u aggregator.UnifiedBundle) {
	fmt.Printf("code examples: %d\n", len(u.CodeExamples))
	fmt.Printf("guidelines: %d\n", len(u.Guidelines))
	fmt.Printf("pr comments: %d\n", len(u.PRComments))
}
