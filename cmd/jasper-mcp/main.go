package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/jasper-mcp/cmd/jasper-mcp/commands"
	"github.com/teranos/jasper-mcp/logger"
)

var rootCmd = &cobra.Command{
	Use:   "jasper-mcp",
	Short: "jasper-mcp - MCP server for JasperReports",
	Long: `jasper-mcp exposes a JasperReports Server as MCP tools.

Reports can be run synchronously or asynchronously, validated, and
inspected; every execution is tracked with aggregated statistics.

Available commands:
  serve   - Start the MCP server on stdio
  config  - Inspect or initialize the configuration
  version - Show version information

Examples:
  jasper-mcp config init    # Write a starter config file
  jasper-mcp serve          # Start serving MCP tools
  jasper-mcp -vv serve      # Serve with debug logging (stderr)`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.Initialize(verbosity, false); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
