package commands

import (
	"fmt"

	"github.com/please-dev/please-gateway/internal/gateway"
	"github.com/please-dev/please-gateway/internal/output"
	"github.com/please-dev/please-gateway/internal/search"
	"github.com/spf13/cobra"
)

var (
	searchMode      string
	searchTopK      int
	searchThreshold float64
	searchIndexFlag string
	searchFormat    string
	searchProvider  string
	searchScopeFlag string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Rank indexed tools against a query",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	defaults := cliDefaults()
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&searchMode, "mode", firstNonEmpty(defaults.Mode, "bm25"), "search strategy: regex|bm25|embedding|hybrid")
	topK := 10
	if defaults.TopK > 0 {
		topK = defaults.TopK
	}
	searchCmd.Flags().IntVar(&searchTopK, "top-k", topK, "maximum number of results")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", defaults.Threshold, "minimum score to include a result")
	searchCmd.Flags().StringVar(&searchIndexFlag, "index", "", "override the index file path")
	searchCmd.Flags().StringVar(&searchFormat, "format", firstNonEmpty(defaults.Format, "table"), "output format: table|json|minimal")
	searchCmd.Flags().StringVar(&searchProvider, "provider", defaults.Provider, "embedding provider tag, used by embedding|hybrid modes")
	searchCmd.Flags().StringVar(&searchScopeFlag, "scope", firstNonEmpty(defaults.Scope, "project"), "index scope: project|user|all")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	r, err := resolver()
	if err != nil {
		return err
	}
	paths, err := indexPathsForServe(r, searchScopeFlag, searchIndexFlag)
	if err != nil {
		return err
	}

	merged, err := gateway.LoadMerged(paths...)
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	orch, err := buildOrchestrator(searchMode, searchTopK, merged.BM25, merged.HasEmbeddings, searchProvider, "")
	if err != nil {
		return err
	}
	if err := orch.Initialize(cmd.Context()); err != nil {
		return fmt.Errorf("initialize search strategies: %w", err)
	}

	resp, err := orch.Search(cmd.Context(), search.Request{
		Query: query, Mode: searchMode, TopK: searchTopK, Threshold: searchThreshold,
	}, merged.Tools)
	if err != nil {
		return err
	}

	formatter := output.New(output.Format(searchFormat), true)
	fmt.Println(formatter.FormatSearchResults(&gateway.SearchToolsResult{
		Tools:        resp.Tools,
		Total:        len(resp.Tools),
		SearchTimeMs: resp.SearchTimeMs,
	}))
	return nil
}
