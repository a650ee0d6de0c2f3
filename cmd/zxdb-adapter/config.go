package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/musher-dev/zxdb-adapter/internal/config"
	clierrors "github.com/musher-dev/zxdb-adapter/internal/errors"
	"github.com/musher-dev/zxdb-adapter/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View and modify zxdb-adapter configuration settings.`,
	}

	cmd.AddCommand(newConfigListCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		Long:  `Display every configuration setting with its effective value.`,
		Example: `  zxdb-adapter config list
  zxdb-adapter config list --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			cfg := config.Load()

			keys := config.KnownKeys()
			settings := make(map[string]any, len(keys))

			for _, key := range keys {
				settings[key] = cfg.Get(key)
			}

			if out.JSON {
				return out.PrintJSON(settings)
			}

			for _, key := range keys {
				out.Print("%s = %v\n", key, settings[key])
			}

			out.Println()
			out.Muted("Server address: %s (fixed)", config.ServerAddress())

			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <key>",
		Short:   "Get a configuration value",
		Long:    `Retrieve and display the current value of a single configuration key.`,
		Example: `  zxdb-adapter config get console.command`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			key := args[0]
			cfg := config.Load()
			value := cfg.Get(key)

			if out.JSON {
				return out.PrintJSON(map[string]any{key: value})
			}

			if value == nil || fmt.Sprint(value) == "" {
				out.Muted("%s is not set", key)
				return nil
			}

			out.Print("%s = %v\n", key, value)

			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration key to the given value. The value is persisted to the config file.

Known keys:
  console.command   Command typed into the console shell
  console.timeout   Readiness timeout in milliseconds
  console.shell     Shell that hosts the console
  debug             Verbose logging of protocol traffic`,
		Example: `  zxdb-adapter config set console.command "fx debug -- --enable-debug-adapter"
  zxdb-adapter config set console.timeout 60000`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			key, value := args[0], args[1]

			if !config.IsKnownKey(key) {
				return clierrors.UnknownConfigKey(key, config.KnownKeys())
			}

			cfg := config.Load()

			if err := cfg.Set(key, value); err != nil {
				return clierrors.ConfigFailed("set config", err)
			}

			out.Success("Set %s = %s", key, value)

			return nil
		},
	}
}
