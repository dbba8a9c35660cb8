package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"docvault/internal/blobstore"
	"docvault/internal/catalog"
	"docvault/internal/config"
	"docvault/internal/store"
)

// vault bundles the storage stack a command works against.
type vault struct {
	store   *store.Store
	blobs   *blobstore.ChunkedStore
	catalog *catalog.Service
	cfg     *config.Config
}

func openVault(cfg *config.Config, logger *slog.Logger) (*vault, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path is required")
	}

	logger.Debug("opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", cfg.DBPath, blobstore.ErrStoreUnavailable, err)
	}

	blobs := blobstore.NewChunkedStore(st, blobstore.Options{
		ChunkSize: cfg.Storage.ChunkSizeBytes,
		Logger:    logger,
	})
	cat := catalog.New(blobs, catalog.Policy{
		AllowedExtensions: cfg.Storage.AllowedExtensions,
		MaxUploadBytes:    cfg.Storage.MaxUploadBytes,
	}, logger)

	return &vault{store: st, blobs: blobs, catalog: cat, cfg: cfg}, nil
}

func (v *vault) Close() error {
	return v.store.Close()
}

// opContext bounds one storage operation by the configured timeout.
func (v *vault) opContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, v.cfg.Storage.OpTimeout)
}

func withVault(cmd *cobra.Command, cfg *config.Config, fn func(ctx context.Context, v *vault) error) error {
	v, err := openVault(cfg, loggerFrom(cmd.Context()))
	if err != nil {
		return err
	}
	defer v.Close()

	ctx, cancel := v.opContext(cmd.Context())
	defer cancel()
	return fn(ctx, v)
}
