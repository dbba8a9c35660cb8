package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"docvault/internal/config"
)

const logLevelEnvKey = "DOCVAULT_LOG_LEVEL"

// levelSetting is a raw log level together with where it was read from, in
// the form a user would type it.
type levelSetting struct {
	raw    string
	origin string
}

// resolveLogLevel picks the first level that is set: the --log-level flag,
// then DOCVAULT_LOG_LEVEL, then log_level from the config files.
func resolveLogLevel(flagLevel, configLevel string) levelSetting {
	for _, setting := range []levelSetting{
		{raw: flagLevel, origin: "--log-level"},
		{raw: os.Getenv(logLevelEnvKey), origin: logLevelEnvKey},
		{raw: configLevel, origin: "log_level"},
	} {
		if strings.TrimSpace(setting.raw) != "" {
			return setting
		}
	}
	return levelSetting{raw: config.DefaultLogLevel, origin: "default"}
}

// commandLogger builds the logger for one invocation. Log lines go to w so
// they never mix with document bytes on stdout. A bad flag value is an
// error; a bad env or config value falls back to the default level and
// warns on w.
func commandLogger(w io.Writer, flagLevel, configLevel string) (*slog.Logger, error) {
	setting := resolveLogLevel(flagLevel, configLevel)
	level, err := parseLogLevel(setting.raw)
	if err != nil {
		if setting.origin == "--log-level" {
			return nil, fmt.Errorf("invalid --log-level %q (use debug, info, warn or error)", setting.raw)
		}
		fmt.Fprintf(w, "warning: invalid %s=%q; defaulting to %s\n", setting.origin, setting.raw, config.DefaultLogLevel)
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "warning" {
		value = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

type loggerKey struct{}

func withLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// loggerFrom returns the invocation logger stored by the root command.
func loggerFrom(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return logger
		}
	}
	return slog.Default()
}
