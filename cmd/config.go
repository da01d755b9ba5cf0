package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vaultvoice/vaultvoice/pkg/settings"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
	}
	configCmd.AddCommand(newConfigShowCmd(opts), newConfigSetCmd(opts))
	return configCmd
}

func newConfigShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.settings()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "model:          %s\n", cfg.Model)
			fmt.Fprintf(out, "voice:          %s\n", cfg.Voice)
			fmt.Fprintf(out, "vault_path:     %s\n", cfg.VaultPath)
			fmt.Fprintf(out, "system_prompt:  %s\n", cfg.SystemPrompt)
			fmt.Fprintf(out, "custom_context: %s\n", cfg.CustomContext)
			if cfg.APIKey != "" {
				fmt.Fprintln(out, "api_key:        (set)")
			} else {
				fmt.Fprintln(out, "api_key:        (not set)")
			}
			return nil
		},
	}
}

func newConfigSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one configuration value and save it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.settings()
			if err != nil {
				return err
			}
			key, value := args[0], args[1]
			switch key {
			case "model":
				cfg.Model = value
			case "voice":
				cfg.Voice = value
			case "vault_path":
				cfg.VaultPath = value
			case "system_prompt":
				cfg.SystemPrompt = value
			case "custom_context":
				cfg.CustomContext = value
			default:
				return fmt.Errorf("unknown config key %q (model, voice, vault_path, system_prompt, custom_context)", key)
			}
			if err := settings.Save(cfg, opts.configFile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
			return nil
		},
	}
}
