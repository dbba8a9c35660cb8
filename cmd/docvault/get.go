package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"docvault/internal/config"
)

func newGetCmd(cfg *config.Config) *cobra.Command {
	var output string
	var force bool

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Download a document to a file or stdout",
		Args:  documentIDArgs(true),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withVault(cmd, cfg, func(ctx context.Context, v *vault) error {
				doc, content, err := v.blobs.Get(ctx, args[0])
				if err != nil {
					return err
				}
				defer content.Close()

				if output == "" || output == "-" {
					_, err := io.Copy(cmd.OutOrStdout(), content)
					return err
				}
				if output == "." {
					output = doc.Filename
				}
				return writeDocumentFile(output, force, content)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this path instead of stdout (\".\" uses the stored filename)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing output file")
	return cmd
}

// writeDocumentFile copies content to path. A failed copy removes the
// partial file.
func writeDocumentFile(path string, force bool, content io.Reader) (err error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	_, err = io.Copy(f, content)
	return err
}
