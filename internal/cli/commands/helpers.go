package commands

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/please-dev/please-gateway/internal/cliconfig"
	"github.com/please-dev/please-gateway/internal/config"
	"github.com/please-dev/please-gateway/internal/embedding"
	"github.com/please-dev/please-gateway/internal/index"
	"github.com/please-dev/please-gateway/internal/logger"
	"github.com/please-dev/please-gateway/internal/oauthstore"
	"github.com/please-dev/please-gateway/internal/output"
	"github.com/please-dev/please-gateway/internal/search"
)

// Version is stamped into every index this CLI builds; it is what the
// Regeneration Detector compares against a stored index's build
// metadata. The gateway's initialize response reports its own literal
// version string and does not read this constant.
const Version = "0.1.0"

var embeddingRegistry = newEmbeddingRegistry()

// newEmbeddingRegistry builds the shared registry pre-populated with the
// four built-in providers, then reloads any scripted providers persisted
// by a previous `mcp provider add-script` invocation so their tags
// resolve in this process too.
func newEmbeddingRegistry() *embedding.Registry {
	r := embedding.NewRegistry()
	if err := embedding.LoadScriptedProviders(r, providersDir()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load persisted embedding providers: %v\n", err)
	}
	return r
}

// providersDir is where `mcp provider add-script` persists scripted
// embedding providers between invocations.
func providersDir() string {
	return filepath.Join(homeDir(), ".please", "providers")
}

// homeDir resolves $HOME, falling back to the OS default.
func homeDir() string {
	h, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return h
}

// cliDefaults loads ~/.please/cli.toml, tolerating its absence.
func cliDefaults() cliconfig.Defaults {
	d, err := cliconfig.Load(cliconfig.Path(homeDir()))
	if err != nil {
		output.Stderr(fmt.Sprintf("warning: %v", err))
		return cliconfig.Defaults{}
	}
	return d
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolver builds a config.Resolver rooted at the real home directory
// and current working directory.
func resolver() (*config.Resolver, error) {
	return config.NewResolver("", "")
}

// parseIndexScope accepts the two scopes an index can be built/loaded
// at. The "all" pseudo-scope search/serve accept is handled by
// indexPathsForServe before this is called and is rejected here.
func parseIndexScope(s string) (config.Scope, error) {
	switch config.Scope(s) {
	case config.ScopeUser, config.ScopeProject:
		return config.Scope(s), nil
	default:
		return "", fmt.Errorf("invalid --scope %q: expected user or project", s)
	}
}

// indexPath returns the on-disk path of the persisted index for scope:
// <cwd>/.please/mcp/index.json for project scope, $HOME/.please/mcp/
// index.json for user scope.
func indexPath(r *config.Resolver, scope config.Scope) string {
	dir := filepath.Dir(r.Path(scope))
	return filepath.Join(dir, "mcp", "index.json")
}

// indexPathsForServe resolves the one or two index paths a `search` or
// `serve` invocation should load, honoring the "all" scope.
func indexPathsForServe(r *config.Resolver, scopeFlag, indexOverride string) ([]string, error) {
	if indexOverride != "" {
		return []string{indexOverride}, nil
	}
	if scopeFlag == "all" {
		return []string{indexPath(r, config.ScopeUser), indexPath(r, config.ScopeProject)}, nil
	}
	scope, err := parseIndexScope(scopeFlag)
	if err != nil {
		return nil, err
	}
	return []string{indexPath(r, scope)}, nil
}

// newOAuthStore builds the OAuth session store rooted at $HOME/.please/oauth.
func newOAuthStore() *oauthstore.Store {
	return oauthstore.New(filepath.Join(homeDir(), ".please", "oauth"))
}

// buildOrchestrator wires the four search strategies against the given
// corpus statistics and, if hasEmbeddings, an embedding provider
// resolved from providerTag. Grounded on internal/search's constructor
// set: regex and bm25 are always available; embedding/hybrid only when
// the index actually carries vectors.
func buildOrchestrator(defaultMode string, defaultTopK int, stats index.BM25Stats, hasEmbeddings bool, providerTag string, quant embedding.Quantization) (*search.Orchestrator, error) {
	orch := search.NewOrchestrator(defaultMode, defaultTopK)
	bm25 := search.NewBM25StrategyWithStats(stats)
	orch.Register("regex", search.NewRegexStrategy())
	orch.Register("bm25", bm25)

	if hasEmbeddings {
		provider, err := resolveProvider(providerTag, quant)
		if err != nil {
			return nil, err
		}
		emb := search.NewEmbeddingStrategy(provider)
		orch.Register("embedding", emb)
		orch.Register("hybrid", search.NewHybridStrategy(bm25, emb))
	}
	return orch, nil
}

// resolveProvider picks a default provider tag when tag is empty and
// constructs it from the shared registry.
func resolveProvider(tag string, quant embedding.Quantization) (embedding.Provider, error) {
	if tag == "" {
		tag = "local:general"
	}
	if quant == "" {
		quant = embedding.QuantFP32
	}
	return embeddingRegistry.New(tag, quant)
}

// initLogger wires the ambient logger into $HOME/.please. Failures are
// non-fatal: a CLI invocation should not fail just because logging
// couldn't start.
func initLogger() {
	if err := logger.Init(filepath.Join(homeDir(), ".please")); err != nil {
		output.Stderr(fmt.Sprintf("warning: logger init failed: %v", err))
	}
}

// openBrowser launches the platform's default browser at url. No
// example repo imports a browser-launcher library, so this stays a
// thin per-OS exec.Command wrapper; the OAuth Manager falls back to
// printing the URL if this returns an error.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// fatalf prints a formatted error to stderr and exits 1.
func fatalf(format string, args ...interface{}) {
	output.Stderr(fmt.Sprintf(format, args...))
	os.Exit(1)
}
