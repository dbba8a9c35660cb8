package main

import (
	"context"

	"github.com/spf13/cobra"

	"docvault/internal/config"
)

func newRmCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>...",
		Short: "Delete documents",
		Args:  documentIDArgs(false),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withVault(cmd, cfg, func(ctx context.Context, v *vault) error {
				deleted := make([]string, 0, len(args))
				for _, id := range args {
					if err := v.blobs.Delete(ctx, id); err != nil {
						return err
					}
					deleted = append(deleted, id)
				}

				w := cmd.OutOrStdout()
				if f := out.formatter(); f != nil {
					return f.Write(w, map[string]any{"deleted": deleted})
				}
				for _, id := range deleted {
					if err := writePlain(w, "deleted %s\n", id); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
