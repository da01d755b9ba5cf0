// Package cmd wires the vaultvoice command line.
package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vaultvoice/vaultvoice/pkg/settings"
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

type rootOptions struct {
	configFile string
	vaultPath  string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "vaultvoice",
		Short:         "Voice assistant for a local note vault",
		Long:          "vaultvoice runs realtime voice conversations against a Gemini Live backend, with tool access to a local folder of notes: list, read, edit, move, search.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&opts.vaultPath, "vault", "", "vault directory (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newChatCmd(opts),
		newToolsCmd(opts),
		newConfigCmd(opts),
	)
	return rootCmd
}

func (o *rootOptions) logger() zerolog.Logger {
	level := zerolog.InfoLevel
	if o.debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func (o *rootOptions) settings() (*settings.Settings, error) {
	s, err := settings.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	if o.vaultPath != "" {
		s.VaultPath = o.vaultPath
	}
	return s, nil
}
