package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/recipeops/config"
)

func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect recipeops configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			data, err := settings.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Load, resolve and validate the configuration",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadSettings(cmd.Context(), opts.configPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
			return nil
		},
	}

	env := &cobra.Command{
		Use:   "env",
		Short: "List the environment variables that override the config file",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.EnvNames() {
				state := "unset"
				if _, ok := os.LookupEnv(name); ok {
					state = "set"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-26s %s\n", name, state)
			}
		},
	}

	cmd.AddCommand(show, validate, env)
	return cmd
}
