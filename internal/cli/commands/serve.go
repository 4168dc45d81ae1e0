package commands

import (
	"fmt"
	"net/http"
	"os"

	"github.com/please-dev/please-gateway/internal/config"
	"github.com/please-dev/please-gateway/internal/embedding"
	"github.com/please-dev/please-gateway/internal/gateway"
	"github.com/please-dev/please-gateway/internal/logger"
	"github.com/spf13/cobra"
)

var (
	serveTransport string
	servePort      int
	serveIndex     string
	serveMode      string
	serveProvider  string
	serveDtype     string
	serveScope     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP gateway, serving the merged index over stdio or HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveTransport, "transport", "stdio", "wire transport: stdio|http")
	serveCmd.Flags().IntVar(&servePort, "port", 8787, "listen port when --transport=http")
	serveCmd.Flags().StringVar(&serveIndex, "index", "", "override the index file path")
	serveCmd.Flags().StringVar(&serveMode, "mode", "bm25", "default search mode when a request omits one")
	serveCmd.Flags().StringVar(&serveProvider, "provider", "", "embedding provider tag for embedding|hybrid modes")
	serveCmd.Flags().StringVar(&serveDtype, "dtype", "", "embedding quantization: fp32|fp16|q8|q4|q4f16")
	serveCmd.Flags().StringVar(&serveScope, "scope", "project", "index scope: project|user|all")
}

func runServe(cmd *cobra.Command, args []string) error {
	r, err := resolver()
	if err != nil {
		return err
	}

	paths, err := indexPathsForServe(r, serveScope, serveIndex)
	if err != nil {
		return err
	}

	if err := ensureIndexesFresh(cmd, r, paths); err != nil {
		return err
	}

	merged, err := gateway.LoadMerged(paths...)
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	orch, err := buildOrchestrator(serveMode, 10, merged.BM25, merged.HasEmbeddings, serveProvider, embedding.Quantization(serveDtype))
	if err != nil {
		return err
	}
	if err := orch.Initialize(cmd.Context()); err != nil {
		return fmt.Errorf("initialize search strategies: %w", err)
	}

	server := gateway.NewServer(orch, "@please/gateway", paths...)

	switch serveTransport {
	case "http":
		logger.Info("gateway listening on :%d over http", servePort)
		return http.ListenAndServe(fmt.Sprintf(":%d", servePort), gateway.NewHTTPHandler(server))
	default:
		logger.Info("gateway serving over stdio")
		return server.ServeStdio(cmd.Context(), os.Stdin, os.Stdout)
	}
}

// ensureIndexesFresh runs the Regeneration Detector against each path
// serve is about to load and rebuilds any that call for it before the
// gateway starts.
func ensureIndexesFresh(cmd *cobra.Command, r *config.Resolver, paths []string) error {
	for _, path := range paths {
		scope := config.ScopeProject
		if path == indexPath(r, config.ScopeUser) {
			scope = config.ScopeUser
		}
		_, rebuilt, err := buildIndex(cmd.Context(), r, buildIndexOptions{
			Scope:       scope,
			Path:        path,
			Provider:    serveProvider,
			Dtype:       serveDtype,
			LogProgress: false,
		})
		if err != nil {
			return fmt.Errorf("auto-rebuild %s: %w", path, err)
		}
		if rebuilt {
			logger.Info("auto-rebuilt index at %s", path)
		}
	}
	return nil
}

