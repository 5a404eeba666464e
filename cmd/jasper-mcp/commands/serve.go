package commands

import (
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/jasper-mcp/config"
	"github.com/teranos/jasper-mcp/errors"
	"github.com/teranos/jasper-mcp/jasper"
	"github.com/teranos/jasper-mcp/logger"
	"github.com/teranos/jasper-mcp/report"
	"github.com/teranos/jasper-mcp/server"
	"github.com/teranos/jasper-mcp/version"
)

// ServeCmd starts the MCP server on stdio.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Start serving JasperReports MCP tools over the stdio transport.

The MCP protocol owns stdout; all logging and status output goes to
stderr. Configuration comes from the config file and JASPER_MCP_*
environment variables (see "jasper-mcp config show").`,
	RunE: runServe,
}

func init() {
	ServeCmd.Flags().String("config", "", "Path to config file (default: ~/.jasper-mcp/config.toml)")
	ServeCmd.Flags().Bool("watch-config", true, "Reload request-rate settings when the config file changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	verbosity, _ := cmd.Flags().GetCount("verbose")
	configPath, _ := cmd.Flags().GetString("config")
	watchConfig, _ := cmd.Flags().GetBool("watch-config")

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	// Re-initialize with the configured output mode now that config is known
	if err := logger.Initialize(verbosity, cfg.Log.JSON); err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}

	client, err := jasper.NewClient(jasper.Config{
		BaseURL:           cfg.Jasper.URL,
		Username:          cfg.Jasper.Username,
		Password:          cfg.Jasper.Password,
		Organization:      cfg.Jasper.Organization,
		AuthMethod:        cfg.Jasper.AuthMethod,
		Timeout:           time.Duration(cfg.Jasper.TimeoutSeconds) * time.Second,
		RequestsPerMinute: cfg.Jasper.RequestsPerMinute,
	}, logger.Logger)
	if err != nil {
		return errors.Wrap(err, "failed to create jasperserver client")
	}

	engine := report.NewEngine(client, logger.Logger)

	if watchConfig {
		if watcher := startConfigWatcher(configPath, client); watcher != nil {
			defer watcher.Stop()
		}
	}

	printServeInfo(cfg, verbosity)

	mcpServer := server.NewMCPServer(engine, logger.Logger)
	return mcpServer.Serve()
}

// loadConfig resolves the config from an explicit path or the defaults.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// startConfigWatcher wires config hot reload to the client's request rate.
// A missing config file (env-only setup) is fine; there is nothing to watch.
func startConfigWatcher(configPath string, client *jasper.Client) *config.Watcher {
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	if _, err := os.Stat(configPath); err != nil {
		return nil
	}

	watcher, err := config.NewWatcher(configPath)
	if err != nil {
		logger.Warnw("config watcher disabled", "error", err)
		return nil
	}
	watcher.OnReload(func(cfg *config.Config) error {
		client.SetRequestRate(cfg.Jasper.RequestsPerMinute)
		return nil
	})
	watcher.Start()
	logger.Infow("watching config file", "path", configPath)
	return watcher
}

// printServeInfo prints the startup summary to stderr; stdout belongs to
// the MCP protocol.
func printServeInfo(cfg *config.Config, verbosity int) {
	info := version.Get()

	out := pterm.DefaultBasicText.WithWriter(os.Stderr)
	out.Println(pterm.Cyan("jasper-mcp ") + info.Version + " (commit " + info.Short() + ")")
	out.Println("Server:    " + cfg.Jasper.URL)
	out.Println("User:      " + cfg.Jasper.Username + organizationSuffix(cfg.Jasper.Organization))
	out.Println("Auth:      " + cfg.Jasper.AuthMethod)
	out.Println("Verbosity: " + logger.LevelName(verbosity))
}

func organizationSuffix(org string) string {
	if org == "" {
		return ""
	}
	return " (org " + org + ")"
}
