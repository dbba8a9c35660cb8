package main

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"docvault/internal/config"
	"docvault/internal/models"
)

type listOutput struct {
	Documents  []models.Document `json:"documents" yaml:"documents"`
	Count      int               `json:"count" yaml:"count"`
	TotalBytes int64             `json:"total_bytes" yaml:"total_bytes"`
}

func newLsCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List stored documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withVault(cmd, cfg, func(ctx context.Context, v *vault) error {
				docs := []models.Document{}
				for doc, err := range v.catalog.List(ctx) {
					if err != nil {
						return err
					}
					docs = append(docs, doc)
				}
				stats, err := v.catalog.Stats(ctx)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if f := out.formatter(); f != nil {
					return f.Write(w, listOutput{Documents: docs, Count: stats.Count, TotalBytes: stats.TotalBytes})
				}
				if err := writeDocumentList(w, docs, time.Now()); err != nil {
					return err
				}
				return writePlain(w, "%d documents, %s\n", stats.Count, humanize.IBytes(uint64(stats.TotalBytes)))
			})
		},
	}
}
