package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docvault/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var out outputOptions
	var logLevel string

	cmd := &cobra.Command{
		Use:           "docvault",
		Short:         "Docvault stores documents behind a shared password",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if out.JSON && out.YAML {
				return fmt.Errorf("--json and --yaml cannot be combined")
			}
			logger, err := commandLogger(cmd.ErrOrStderr(), logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), logger))
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&out.JSON, "json", false, "output JSON")
	cmd.PersistentFlags().BoolVar(&out.YAML, "yaml", false, "output YAML")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newLsCmd(cfg, &out),
		newPutCmd(cfg, &out),
		newGetCmd(cfg),
		newRmCmd(cfg, &out),
		newGCCmd(cfg, &out),
		newMigrateCmd(cfg, &out),
		newConfigCmd(cfg, &out),
		newPasswdHashCmd(),
	)

	return cmd
}
