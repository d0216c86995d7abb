package main

import (
	"sort"

	"verdict_backend/internal/app"
	"verdict_backend/internal/tiers"

	"github.com/spf13/cobra"
)

type tiersOutput struct {
	Tiers       []tiers.TierConfig `json:"tiers"`
	Legacy      map[string]string  `json:"legacy"`
	ExpertTiers []string           `json:"expert_pool_tiers"`
}

func newTiersCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tiers",
		Short: "Tier catalog tools",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the configured tier catalog and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(false)
			if err != nil {
				return err
			}
			catalog, err := app.BuildCatalog(cfg)
			if err != nil {
				return err
			}

			out := tiersOutput{
				Tiers:       catalog.Tiers(),
				Legacy:      catalog.LegacyMapping(),
				ExpertTiers: catalog.ExpertPoolTiers(),
			}
			sort.Slice(out.Tiers, func(i, j int) bool {
				return out.Tiers[i].CreditsRequired < out.Tiers[j].CreditsRequired
			})
			return writeJSON(cmd.OutOrStdout(), out)
		},
	})
	return cmd
}
