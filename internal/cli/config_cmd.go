package cli

import (
	"fmt"

	"github.com/harun/sessionkey/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), appConfig.String())
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and report every problem",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			errs := config.NewValidator().ValidateConfig(appConfig)
			for _, err := range errs {
				fmt.Fprintf(cmd.OutOrStdout(), "error: %v\n", err)
			}
			if len(errs) > 0 {
				return fmt.Errorf("configuration has %d problem(s)", len(errs))
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
			return err
		},
	})

	return cmd
}
