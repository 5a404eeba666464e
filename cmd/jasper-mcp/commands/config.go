package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/jasper-mcp/config"
	"github.com/teranos/jasper-mcp/errors"
)

// ConfigCmd groups configuration subcommands.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or initialize the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		fmt.Printf("jasper.url                 = %s\n", cfg.Jasper.URL)
		fmt.Printf("jasper.username            = %s\n", cfg.Jasper.Username)
		fmt.Printf("jasper.password            = %s\n", maskSecret(cfg.Jasper.Password))
		fmt.Printf("jasper.organization        = %s\n", cfg.Jasper.Organization)
		fmt.Printf("jasper.auth_method         = %s\n", cfg.Jasper.AuthMethod)
		fmt.Printf("jasper.timeout_seconds     = %d\n", cfg.Jasper.TimeoutSeconds)
		fmt.Printf("jasper.requests_per_minute = %d\n", cfg.Jasper.RequestsPerMinute)
		fmt.Printf("log.json                   = %t\n", cfg.Log.JSON)

		if err := cfg.Validate(); err != nil {
			return errors.Wrap(err, "configuration is invalid")
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if err := config.WriteStarter(path); err != nil {
			return err
		}
		fmt.Printf("Wrote starter config to %s\n", path)
		fmt.Println("Edit the credentials before starting the server.")
		return nil
	},
}

func init() {
	configInitCmd.Flags().String("path", "", "Where to write the config file (default: ~/.jasper-mcp/config.toml)")
	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configInitCmd)
}

// maskSecret keeps config output safe to paste into issues.
func maskSecret(s string) string {
	if s == "" {
		return "(unset)"
	}
	return "********"
}
