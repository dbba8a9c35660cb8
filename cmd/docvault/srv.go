package main

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docvault/internal/config"
	"docvault/internal/server"
)

var errPasswordHashRequired = errors.New("auth.password_hash is not configured")

func newSrvCmd(cfg *config.Config) *cobra.Command {
	var noAuth bool

	cmd := &cobra.Command{
		Use:   "srv",
		Short: "Run the docvault web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return errors.New("config not initialized")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, noAuth)
		},
	}

	cmd.Flags().BoolVar(&noAuth, "no-auth", false, "serve without the shared password gate")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, noAuth bool) error {
	base := loggerFrom(ctx)
	logger := base.With("component", "server")

	addr, err := server.ListenAddr(cfg.Listen)
	if err != nil {
		return err
	}
	if !noAuth && strings.TrimSpace(cfg.Auth.PasswordHash) == "" {
		return errPasswordHashRequired
	}

	v, err := openVault(cfg, base)
	if err != nil {
		return err
	}
	defer v.Close()

	secret := []byte(cfg.Auth.SecretKey)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return err
		}
		logger.Warn("auth.secret_key is not set; sessions end when the server stops")
	}

	var sessions *server.SessionService
	if noAuth {
		logger.Warn("serving without the password gate")
	} else {
		sessions, err = server.NewSessionService(v.store, cfg.Auth.PasswordHash, deriveKey(secret, "session"), cfg.Auth.SessionTTL)
		if err != nil {
			return err
		}
	}

	startupHousekeeping(ctx, v, sessions, logger)

	srv, err := server.New(addr, v.catalog, v.blobs, server.Options{
		Sessions:           sessions,
		Ping:               v.blobs.Ping,
		NoticeKey:          deriveKey(secret, "notice"),
		OpTimeout:          cfg.Storage.OpTimeout,
		MultipartMaxMemory: cfg.Storage.MultipartMaxMemory,
		Version:            version,
		Logger:             logger,
	})
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx)
}

// startupHousekeeping reclaims what a previous process left behind. Failures
// are logged; the server still starts.
func startupHousekeeping(ctx context.Context, v *vault, sessions *server.SessionService, logger *slog.Logger) {
	opCtx, cancel := v.opContext(ctx)
	defer cancel()

	if _, err := v.blobs.Sweep(opCtx, v.cfg.Storage.SweepAfter); err != nil {
		logger.Warn("startup sweep failed", "error", err)
	}
	if sessions == nil {
		return
	}
	removed, err := sessions.Prune(opCtx, time.Now().UTC())
	if err != nil {
		logger.Warn("prune sessions failed", "error", err)
		return
	}
	if removed > 0 {
		logger.Info("pruned expired sessions", "count", removed)
	}
}

// deriveKey gives each use of the server secret its own key.
func deriveKey(secret []byte, label string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte("docvault/" + label))
	return mac.Sum(nil)
}
