package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docvault/internal/blobstore"
	"docvault/internal/store"
)

// namedArgs requires exactly one argument per name and reports the first
// missing one by name.
func namedArgs(names ...string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		switch {
		case len(args) < len(names):
			return fmt.Errorf("missing <%s> argument", names[len(args)])
		case len(args) > len(names):
			return fmt.Errorf("unexpected argument %q", args[len(names)])
		}
		return nil
	}
}

// documentIDArgs requires at least one document identifier, and at most
// one when single is set. Identifiers that cannot name a document fail as
// not found before any database is opened.
func documentIDArgs(single bool) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("missing <id> argument")
		}
		if single && len(args) > 1 {
			return fmt.Errorf("expected one document id, got %d", len(args))
		}
		for _, id := range args {
			if !store.ValidDocumentID(id) {
				return fmt.Errorf("%s: %w", id, blobstore.ErrNotFound)
			}
		}
		return nil
	}
}
