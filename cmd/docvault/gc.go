package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docvault/internal/config"
)

func newGCCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Reclaim chunks of deleted documents and abandoned uploads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return fmt.Errorf("--older-than must not be negative")
			}
			if !cmd.Flags().Changed("older-than") {
				olderThan = cfg.Storage.SweepAfter
			}

			return withVault(cmd, cfg, func(ctx context.Context, v *vault) error {
				result, err := v.blobs.Sweep(ctx, olderThan)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if f := out.formatter(); f != nil {
					return f.Write(w, result)
				}
				return writePlain(w, "purged %d documents (%d chunks), discarded %d pending uploads, skipped %d in use, expired %d read leases\n",
					result.PurgedDocuments, result.PurgedChunks, result.DiscardedPending, result.SkippedLeased, result.ExpiredLeases)
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", config.DefaultSweepAfter, "discard pending uploads older than this")
	return cmd
}
