package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/please-dev/please-gateway/internal/config"
	"github.com/please-dev/please-gateway/internal/embedding"
	"github.com/please-dev/please-gateway/internal/mcpcatalog"
	"github.com/please-dev/please-gateway/internal/oauthflow"
	"github.com/please-dev/please-gateway/internal/output"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Manage upstream MCP server configs and their OAuth sessions",
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- mcp add ---

var (
	mcpAddScope        string
	mcpAddCommand      string
	mcpAddArgs         string
	mcpAddEnv          string
	mcpAddURL          string
	mcpAddTransport    string
	mcpAddAuthType     string
	mcpAddToken        string
	mcpAddOAuthScopes  string
	mcpAddResource     string
	mcpAddAuthServer   string
	mcpAddFromRegistry string
)

var mcpAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or replace an upstream server config",
	Args:  cobra.ExactArgs(1),
	RunE:  runMCPAdd,
}

func init() {
	mcpCmd.AddCommand(mcpAddCmd)
	mcpAddCmd.Flags().StringVar(&mcpAddScope, "scope", "project", "config scope: local|project|user")
	mcpAddCmd.Flags().StringVar(&mcpAddCommand, "command", "", "stdio launch command")
	mcpAddCmd.Flags().StringVar(&mcpAddArgs, "args", "", "comma-separated stdio launch arguments")
	mcpAddCmd.Flags().StringVar(&mcpAddEnv, "env", "", "comma-separated KEY=VALUE stdio environment overlay")
	mcpAddCmd.Flags().StringVar(&mcpAddURL, "url", "", "http/sse endpoint URL")
	mcpAddCmd.Flags().StringVar(&mcpAddTransport, "transport", "", "stdio|http|sse; inferred from --url/--command if omitted")
	mcpAddCmd.Flags().StringVar(&mcpAddAuthType, "auth-type", "none", "none|bearer|oauth2")
	mcpAddCmd.Flags().StringVar(&mcpAddToken, "token", "", "bearer token, when --auth-type=bearer")
	mcpAddCmd.Flags().StringVar(&mcpAddOAuthScopes, "oauth-scopes", "", "comma-separated OAuth scopes, when --auth-type=oauth2")
	mcpAddCmd.Flags().StringVar(&mcpAddResource, "oauth-resource", "", "OAuth protected-resource identifier")
	mcpAddCmd.Flags().StringVar(&mcpAddAuthServer, "oauth-authorization-server", "", "OAuth authorization server issuer URL")
	mcpAddCmd.Flags().StringVar(&mcpAddFromRegistry, "from-registry", "", "populate command/args/url/authorization from a catalog entry instead of flags")
}

func runMCPAdd(cmd *cobra.Command, args []string) error {
	name := args[0]
	scope, err := parseConfigScope(mcpAddScope)
	if err != nil {
		return err
	}

	var up config.UpstreamConfig
	if mcpAddFromRegistry != "" {
		entry, err := catalog().Get(mcpAddFromRegistry)
		if err != nil {
			return err
		}
		up = mcpcatalog.ToUpstreamConfig(*entry)
	} else {
		up = config.UpstreamConfig{
			Command:   mcpAddCommand,
			Args:      splitCSV(mcpAddArgs),
			Env:       parseEnvCSV(mcpAddEnv),
			URL:       mcpAddURL,
			Transport: mcpAddTransport,
		}

		switch config.AuthType(mcpAddAuthType) {
		case config.AuthBearer:
			up.Authorization = config.Authorization{Type: config.AuthBearer, Token: mcpAddToken}
		case config.AuthOAuth2:
			up.Authorization = config.Authorization{Type: config.AuthOAuth2, OAuth: &config.OAuthConfig{
				Scopes:              splitCSV(mcpAddOAuthScopes),
				Resource:            mcpAddResource,
				AuthorizationServer: mcpAddAuthServer,
			}}
		default:
			up.Authorization = config.Authorization{Type: config.AuthNone}
		}
	}

	r, err := resolver()
	if err != nil {
		return err
	}
	if err := r.AddUpstream(scope, name, up); err != nil {
		return err
	}
	fmt.Printf("added %q to %s scope\n", name, scope)
	return nil
}

// --- mcp remove ---

var mcpRemoveScope string

var mcpRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an upstream server config",
	Args:  cobra.ExactArgs(1),
	RunE:  runMCPRemove,
}

func init() {
	mcpCmd.AddCommand(mcpRemoveCmd)
	mcpRemoveCmd.Flags().StringVar(&mcpRemoveScope, "scope", "project", "config scope: local|project|user")
}

func runMCPRemove(cmd *cobra.Command, args []string) error {
	name := args[0]
	scope, err := parseConfigScope(mcpRemoveScope)
	if err != nil {
		return err
	}
	r, err := resolver()
	if err != nil {
		return err
	}
	if err := r.RemoveUpstream(scope, name); err != nil {
		return err
	}
	fmt.Printf("removed %q from %s scope\n", name, scope)
	return nil
}

// --- mcp list ---

var (
	mcpListScope  string
	mcpListFormat string
)

var mcpListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured upstream servers",
	RunE:  runMCPList,
}

func init() {
	mcpCmd.AddCommand(mcpListCmd)
	mcpListCmd.Flags().StringVar(&mcpListScope, "scope", "", "config scope: local|project|user; omit to merge all three")
	mcpListCmd.Flags().StringVar(&mcpListFormat, "format", "table", "output format: table|json|minimal")
}

func runMCPList(cmd *cobra.Command, args []string) error {
	r, err := resolver()
	if err != nil {
		return err
	}

	var scopes []config.Scope
	if mcpListScope != "" {
		scope, err := parseConfigScope(mcpListScope)
		if err != nil {
			return err
		}
		scopes = []config.Scope{scope}
	} else {
		scopes = config.AllScopes
	}

	configs, err := r.LoadAll()
	if err != nil {
		return err
	}
	upstreams := config.Merge(configs, scopes)

	formatter := output.New(output.Format(mcpListFormat), true)
	fmt.Println(formatter.FormatUpstreams(upstreams))
	return nil
}

// --- mcp get ---

var mcpGetScope string

var mcpGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show one upstream server's config",
	Args:  cobra.ExactArgs(1),
	RunE:  runMCPGet,
}

func init() {
	mcpCmd.AddCommand(mcpGetCmd)
	mcpGetCmd.Flags().StringVar(&mcpGetScope, "scope", "project", "config scope: local|project|user")
}

func runMCPGet(cmd *cobra.Command, args []string) error {
	name := args[0]
	scope, err := parseConfigScope(mcpGetScope)
	if err != nil {
		return err
	}
	r, err := resolver()
	if err != nil {
		return err
	}
	cfg, err := r.Load(scope)
	if err != nil {
		return err
	}
	up, ok := cfg.MCPServers[name]
	if !ok {
		return fmt.Errorf("no upstream named %q in %s scope", name, scope)
	}
	formatter := output.New(output.FormatTable, true)
	fmt.Println(formatter.FormatUpstreams([]config.NamedUpstream{{Name: name, Scope: scope, Config: up}}))
	return nil
}

// --- mcp auth ---

var mcpAuthScope string

var mcpAuthCmd = &cobra.Command{
	Use:   "auth <name>",
	Short: "Establish or refresh an OAuth session for an upstream server",
	Args:  cobra.ExactArgs(1),
	RunE:  runMCPAuth,
}

func init() {
	mcpCmd.AddCommand(mcpAuthCmd)
	mcpAuthCmd.Flags().StringVar(&mcpAuthScope, "scope", "project", "config scope: local|project|user")
}

func runMCPAuth(cmd *cobra.Command, args []string) error {
	name := args[0]
	scope, err := parseConfigScope(mcpAuthScope)
	if err != nil {
		return err
	}
	r, err := resolver()
	if err != nil {
		return err
	}
	cfg, err := r.Load(scope)
	if err != nil {
		return err
	}
	up, ok := cfg.MCPServers[name]
	if !ok {
		return fmt.Errorf("no upstream named %q in %s scope", name, scope)
	}
	if up.Authorization.Type != config.AuthOAuth2 {
		return fmt.Errorf("%q is not configured for oauth2 (auth-type is %q)", name, up.Authorization.Type)
	}

	identity := up.URL
	var scopes []string
	if up.Authorization.OAuth != nil {
		if up.Authorization.OAuth.Resource != "" {
			identity = up.Authorization.OAuth.Resource
		}
		scopes = up.Authorization.OAuth.Scopes
	}

	mgr := oauthflow.NewManager(identity, scopes, newOAuthStore(), openBrowser)
	if _, err := mgr.GetAccessToken(cmd.Context()); err != nil {
		return fmt.Errorf("authorize %q: %w", name, err)
	}
	fmt.Printf("authorized %q\n", name)
	return nil
}

func parseConfigScope(s string) (config.Scope, error) {
	switch config.Scope(s) {
	case config.ScopeUser, config.ScopeProject, config.ScopeLocal:
		return config.Scope(s), nil
	default:
		return "", fmt.Errorf("invalid --scope %q: expected local, project, or user", s)
	}
}

func splitCSV(csv string) []string {
	if csv == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(csv, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseEnvCSV(csv string) map[string]string {
	if csv == "" {
		return nil
	}
	out := map[string]string{}
	for _, pair := range strings.Split(csv, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) == 2 {
			out[kv[0]] = kv[1]
		}
	}
	return out
}

// catalog returns the community registry catalog at ~/.please/registry.
// A missing directory is a valid, empty catalog.
func catalog() *mcpcatalog.Catalog {
	return mcpcatalog.New(filepath.Join(homeDir(), ".please", "registry"))
}

// --- mcp search-registry ---

var mcpSearchRegistryFormat string

var mcpSearchRegistryCmd = &cobra.Command{
	Use:   "search-registry [query]",
	Short: "List or search the local community registry catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMCPSearchRegistry,
}

func init() {
	mcpCmd.AddCommand(mcpSearchRegistryCmd)
	mcpSearchRegistryCmd.Flags().StringVar(&mcpSearchRegistryFormat, "format", "table", "output format: table|json|minimal")
}

func runMCPSearchRegistry(cmd *cobra.Command, args []string) error {
	entries, err := catalog().List()
	if err != nil {
		return err
	}

	var query string
	if len(args) == 1 {
		query = strings.ToLower(args[0])
	}

	upstreams := make([]config.NamedUpstream, 0, len(entries))
	for _, e := range entries {
		if query != "" && !strings.Contains(strings.ToLower(e.Name), query) &&
			!strings.Contains(strings.ToLower(e.Title), query) &&
			!strings.Contains(strings.ToLower(e.Description), query) {
			continue
		}
		upstreams = append(upstreams, config.NamedUpstream{Name: e.Name, Config: mcpcatalog.ToUpstreamConfig(e)})
	}

	formatter := output.New(output.Format(mcpSearchRegistryFormat), true)
	fmt.Println(formatter.FormatUpstreams(upstreams))
	return nil
}

// --- mcp provider add-script ---

var mcpProviderAddScriptDimension int

var mcpProviderAddScriptCmd = &cobra.Command{
	Use:   "provider",
	Short: "Manage embedding providers",
}

var mcpProviderAddScriptSubCmd = &cobra.Command{
	Use:   "add-script <tag> <file.js>",
	Short: "Register a custom embedding provider from a JS embed(text) function",
	Args:  cobra.ExactArgs(2),
	RunE:  runMCPProviderAddScript,
}

func init() {
	mcpCmd.AddCommand(mcpProviderAddScriptCmd)
	mcpProviderAddScriptCmd.AddCommand(mcpProviderAddScriptSubCmd)
	mcpProviderAddScriptSubCmd.Flags().IntVar(&mcpProviderAddScriptDimension, "dimension", 384, "output vector length the script's embed(text) must return")
}

func runMCPProviderAddScript(cmd *cobra.Command, args []string) error {
	tag, path := args[0], args[1]
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if _, err := embedding.NewScriptedProvider(tag, mcpProviderAddScriptDimension, string(source)); err != nil {
		return err
	}
	if err := embedding.SaveScriptedProvider(providersDir(), tag, mcpProviderAddScriptDimension, string(source)); err != nil {
		return fmt.Errorf("persist provider %q: %w", tag, err)
	}

	dimension, src := mcpProviderAddScriptDimension, string(source)
	embeddingRegistry.Register(tag, func(embedding.Quantization) embedding.Provider {
		p, _ := embedding.NewScriptedProvider(tag, dimension, src)
		return p
	})
	fmt.Printf("registered scripted provider %q from %s (persisted for future invocations)\n", tag, path)
	return nil
}
