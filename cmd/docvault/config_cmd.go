package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docvault/internal/config"
)

func newConfigCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change docvault settings",
	}
	cmd.AddCommand(newConfigGetCmd(cfg, out), newConfigSetCmd())
	return cmd
}

// configEntry is one effective setting. Secrets are redacted by Config.Get.
type configEntry struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

func effectiveSettings(cfg *config.Config, keys []string) ([]configEntry, error) {
	entries := make([]configEntry, 0, len(keys))
	for _, key := range keys {
		if !config.IsAllowedKey(key) {
			return nil, fmt.Errorf("unknown key %q; run 'docvault config get' to list keys", key)
		}
		value, err := cfg.Get(key)
		if err != nil {
			return nil, err
		}
		entries = append(entries, configEntry{Key: key, Value: value})
	}
	return entries, nil
}

func newConfigGetCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Print one effective setting, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := args
			if len(keys) == 0 {
				keys = config.AllowedKeys()
			}
			entries, err := effectiveSettings(cfg, keys)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if f := out.formatter(); f != nil {
				return f.Write(w, entries)
			}
			if len(args) == 1 {
				return writePlain(w, "%s\n", entries[0].Value)
			}
			for _, e := range entries {
				if err := writePlain(w, "%s = %s\n", e.Key, e.Value); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a setting to the project or global config file",
		Args:  namedArgs("key", "value"),
		RunE: func(cmd *cobra.Command, args []string) error {
			pathFor := config.ProjectPath
			if global {
				pathFor = config.GlobalPath
			}
			path, err := pathFor()
			if err != nil {
				return err
			}
			if err := config.SetKey(path, args[0], args[1]); err != nil {
				return err
			}
			return writePlain(cmd.OutOrStdout(), "%s written to %s\n", args[0], path)
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "write to the global config file instead of ./"+config.ConfigFileName)
	return cmd
}
