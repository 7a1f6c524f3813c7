package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/harun/sessionkey/internal/config"
	"github.com/harun/sessionkey/internal/logger"
	"github.com/harun/sessionkey/internal/observability"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	cfgFile  string
	logLevel string

	appConfig *config.Config
	appLogger *logger.Logger
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessionkey",
		Short: "Sessionkey - session addressing for multi-channel agents",
		Long: `Sessionkey builds, parses and routes the session keys a multi-channel
agent runtime uses to address conversations. It resolves inbound messages
to an agent and tracks the runtime state attached to each session.`,
		Version:            version,
		SilenceUsage:       true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ranya/sessionkey.json)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)

	cmd.AddCommand(newKeyCmd(), newRouteCmd(), newReplayCmd(), newConfigCmd())
	return cmd
}

// Execute runs the root command. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}

	logCfg := logger.FromConfig(cfg.Logging)
	logCfg.Output = cmd.ErrOrStderr()
	l, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	observability.SetEnabled(cfg.Metrics.Enabled)
	if cfg.Metrics.Enabled {
		observability.EnsureRegistered()
	}

	appConfig = cfg
	appLogger = l
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if appLogger != nil {
		return appLogger.Close()
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// GetRootCmd returns a fresh root command for testing
func GetRootCmd() *cobra.Command {
	return newRootCmd()
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}
