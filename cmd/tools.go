package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vaultvoice/vaultvoice/pkg/tools"
	"github.com/vaultvoice/vaultvoice/pkg/vault"
)

func newToolsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools exposed to the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.settings()
			if err != nil {
				return err
			}
			store, err := vault.New(cfg.VaultPath)
			if err != nil {
				return err
			}
			registry := tools.NewVaultRegistry(store, opts.logger())
			decls := registry.Declarations()
			sort.Slice(decls, func(i, j int) bool { return decls[i].Name < decls[j].Name })
			out := cmd.OutOrStdout()
			for _, d := range decls {
				fmt.Fprintf(out, "%-18s %s\n", d.Name, d.Description)
			}
			return nil
		},
	}
}
