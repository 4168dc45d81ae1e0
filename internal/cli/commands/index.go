package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/please-dev/please-gateway/internal/config"
	"github.com/please-dev/please-gateway/internal/discovery"
	"github.com/please-dev/please-gateway/internal/embedding"
	"github.com/please-dev/please-gateway/internal/index"
	"github.com/please-dev/please-gateway/internal/logger"
	"github.com/please-dev/please-gateway/internal/registry"
	"github.com/spf13/cobra"
)

var (
	indexOutput       string
	indexProvider     string
	indexModel        string
	indexDtype        string
	indexNoEmbeddings bool
	indexForce        bool
	indexTimeout      int
	indexExclude      string
	indexScopeFlag    string
)

var indexCmd = &cobra.Command{
	Use:   "index [sources...]",
	Short: "Discover upstream tools and (re)build the searchable index",
	Long: `index runs a fresh discovery pass over the configured upstream MCP
servers and persists the result as a searchable index. With no
positional arguments every configured upstream is discovered; naming one
or more sources restricts the pass to just those upstreams.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVar(&indexOutput, "output", "", "override the index output path")
	indexCmd.Flags().StringVar(&indexProvider, "provider", "", "embedding provider tag, e.g. local:general")
	indexCmd.Flags().StringVar(&indexModel, "model", "", "embedding model name, appended to --provider as \"<provider>:<model>\"")
	indexCmd.Flags().StringVar(&indexDtype, "dtype", "", "embedding quantization: fp32|fp16|q8|q4|q4f16")
	indexCmd.Flags().BoolVar(&indexNoEmbeddings, "no-embeddings", false, "skip embedding computation (regex/bm25 modes only)")
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "rebuild even if the Regeneration Detector finds no reason to")
	indexCmd.Flags().IntVar(&indexTimeout, "timeout", 30, "discovery time budget in seconds per upstream; the whole pass gets one deadline of this times (upstreams+1)")
	indexCmd.Flags().StringVar(&indexExclude, "exclude", "", "comma-separated upstream names to skip")
	indexCmd.Flags().StringVar(&indexScopeFlag, "scope", "project", "index scope: project|user")
}

func runIndex(cmd *cobra.Command, sources []string) error {
	scope, err := parseIndexScope(indexScopeFlag)
	if err != nil {
		return err
	}

	r, err := resolver()
	if err != nil {
		return err
	}

	path := indexOutput
	if path == "" {
		path = indexPath(r, scope)
	}

	opts := buildIndexOptions{
		Scope:        scope,
		Path:         path,
		Provider:     indexProvider,
		Model:        indexModel,
		Dtype:        indexDtype,
		NoEmbeddings: indexNoEmbeddings,
		Force:        indexForce,
		TimeoutSecs:  indexTimeout,
		ExcludeCSV:   indexExclude,
		Sources:      sources,
		LogProgress:  true,
	}

	persisted, rebuilt, err := buildIndex(cmd.Context(), r, opts)
	if err != nil {
		return err
	}
	if !rebuilt {
		fmt.Println("index up to date, nothing to rebuild")
		return nil
	}
	fmt.Printf("indexed %d tools -> %s\n", persisted.TotalTools, path)
	return nil
}

// buildIndexOptions is the union of every flag that shapes one
// discovery-and-build pass, shared between `index` (explicit) and
// `serve` (auto-rebuild via the Regeneration Detector).
type buildIndexOptions struct {
	Scope        config.Scope
	Path         string
	Provider     string
	Model        string
	Dtype        string
	NoEmbeddings bool
	Force        bool
	TimeoutSecs  int
	ExcludeCSV   string
	Sources      []string
	LogProgress  bool
}

// buildIndex runs the Regeneration Detector (unless Force) and, if a
// rebuild is warranted, a full discovery-plus-build-plus-save pass. The
// second return value reports whether a rebuild actually happened.
func buildIndex(ctx context.Context, r *config.Resolver, opts buildIndexOptions) (*index.PersistedIndex, bool, error) {
	scopes := config.ScopesFor(opts.Scope)
	configs, err := r.LoadAll()
	if err != nil {
		return nil, false, fmt.Errorf("load config: %w", err)
	}
	upstreams := config.Merge(configs, scopes)

	exclude := parseExclude(opts.ExcludeCSV)
	if len(opts.Sources) > 0 {
		wanted := make(map[string]bool, len(opts.Sources))
		for _, s := range opts.Sources {
			wanted[s] = true
		}
		for _, u := range upstreams {
			if !wanted[u.Name] {
				exclude[u.Name] = true
			}
		}
	}

	cliArgs := index.CLIArgs{
		Provider: opts.Provider,
		Dtype:    opts.Dtype,
		Exclude:  sortedKeys(exclude),
		Scope:    string(opts.Scope),
	}

	if !opts.Force {
		fingerprints, err := r.Fingerprints(scopes)
		if err != nil {
			return nil, false, err
		}
		scopeFilter := make([]string, 0, len(scopes))
		for _, s := range scopes {
			scopeFilter = append(scopeFilter, string(s))
		}
		verdict := index.ShouldRegenerate(index.RegenerationCheck{
			IndexPath:   opts.Path,
			CLIVersion:  Version,
			CLIArgs:     cliArgs,
			ScopeFilter: scopeFilter,
		}, fingerprints)
		if !verdict.ShouldRebuild {
			existing, err := index.NewStore(opts.Path).Load()
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		if opts.LogProgress {
			fmt.Println("rebuilding:", strings.Join(verdict.Reasons, "; "))
		}
	}

	timeoutSecs := opts.TimeoutSecs
	if timeoutSecs <= 0 {
		timeoutSecs = 30
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second*time.Duration(len(upstreams)+1))
	defer cancel()

	oauthStore := newOAuthStore()
	engine := discovery.NewEngine(oauthStore, openBrowser)

	results := engine.Run(ctx, upstreams, exclude, func(upstream string, phase discovery.Phase, err error) {
		if !opts.LogProgress {
			return
		}
		if err != nil {
			logger.Warn("discovery %s: %s: %v", upstream, phase, err)
			fmt.Printf("  %s: %s (%v)\n", upstream, phase, err)
			return
		}
		fmt.Printf("  %s: %s\n", upstream, phase)
	})

	toolDefs := collectTools(results)

	var provider embedding.Provider
	if !opts.NoEmbeddings {
		p, err := embeddingRegistry.New(embeddingTagFor(opts.Provider, opts.Model), embedding.Quantization(opts.Dtype))
		if err != nil {
			return nil, false, fmt.Errorf("resolve embedding provider: %w", err)
		}
		provider = p
	}

	onBatch := func(done, total int) {}
	if opts.LogProgress {
		onBatch = func(done, total int) { fmt.Printf("  embedded %d/%d\n", done, total) }
	}
	tools, stats, err := index.Build(ctx, toolDefs, index.BuildOptions{Provider: provider, OnBatchDone: onBatch})
	if err != nil {
		return nil, false, fmt.Errorf("build index: %w", err)
	}

	cfgFingerprints, err := r.Fingerprints(config.AllScopes)
	if err != nil {
		return nil, false, err
	}

	now := time.Now()
	persisted := &index.PersistedIndex{
		Version:       index.CurrentVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
		TotalTools:    len(tools),
		HasEmbeddings: provider != nil,
		BM25Stats:     stats,
		Tools:         tools,
		BuildMetadata: &index.BuildMetadata{
			CLIVersion:         Version,
			CLIArgs:            cliArgs,
			ConfigFingerprints: cfgFingerprints,
		},
	}
	if provider != nil {
		persisted.EmbeddingModel = provider.Tag()
		persisted.EmbeddingDimensions = provider.Dimension()
	}

	if err := index.NewStore(opts.Path).Save(persisted); err != nil {
		return nil, false, fmt.Errorf("save index: %w", err)
	}
	return persisted, true, nil
}

func embeddingTagFor(provider, model string) string {
	if model != "" {
		return provider + ":" + model
	}
	if provider != "" {
		return provider
	}
	return "local:general"
}

func parseExclude(csv string) map[string]bool {
	out := map[string]bool{}
	if csv == "" {
		return out
	}
	for _, name := range strings.Split(csv, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			out[name] = true
		}
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func collectTools(results []discovery.UpstreamResult) []registry.ToolDefinition {
	var out []registry.ToolDefinition
	for _, res := range results {
		out = append(out, res.Tools...)
	}
	return out
}
