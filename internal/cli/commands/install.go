package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/please-dev/please-gateway/internal/ideinstall"
	"github.com/spf13/cobra"
)

var installIDE string

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Write this gateway into an IDE or AI host's own MCP configuration",
	Long: fmt.Sprintf(`install writes a stdio-launched server entry for this gateway into the
named host's MCP config file, so it appears automatically the next time
that host starts. Supported --ide values: %s.`, strings.Join(ideinstall.IDs(), ", ")),
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
	installCmd.Flags().StringVar(&installIDE, "ide", "", "target IDE/host id, e.g. claude-desktop, vscode, cursor")
	installCmd.MarkFlagRequired("ide")
}

func runInstall(cmd *cobra.Command, args []string) error {
	binaryPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve own binary path: %w", err)
	}

	if err := ideinstall.Install(installIDE, binaryPath); err != nil {
		return err
	}
	fmt.Printf("installed into %s (%s)\n", installIDE, binaryPath)
	return nil
}
