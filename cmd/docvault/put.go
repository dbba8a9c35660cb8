package main

import (
	"context"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"docvault/internal/config"
)

type putOutput struct {
	ID          string `json:"id" yaml:"id"`
	Filename    string `json:"filename" yaml:"filename"`
	ContentType string `json:"content_type" yaml:"content_type"`
}

func newPutCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "put <path>",
		Short: "Upload a local file",
		Args:  namedArgs("path"),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return err
			}

			base := filepath.Base(path)
			if strings.TrimSpace(title) == "" {
				title = strings.TrimSuffix(base, filepath.Ext(base))
			}

			return withVault(cmd, cfg, func(ctx context.Context, v *vault) error {
				upload, err := v.catalog.ValidateUpload(title, base, mime.TypeByExtension(filepath.Ext(base)), info.Size())
				if err != nil {
					return err
				}
				id, err := v.catalog.Store(ctx, upload, f)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if fm := out.formatter(); fm != nil {
					return fm.Write(w, putOutput{ID: id, Filename: upload.Filename, ContentType: upload.ContentType})
				}
				return writePlain(w, "%s\n", id)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "document title (defaults to the file name)")
	return cmd
}
