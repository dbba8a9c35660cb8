package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultListen     = "127.0.0.1:5000"
	DefaultDBFileName = "docvault.db"
	DefaultLogLevel   = "info"

	DefaultMaxUploadBytes     int64 = 5 * 1024 * 1024
	DefaultMultipartMaxMemory int64 = 1024 * 1024
	DefaultChunkSizeBytes           = 255 * 1024
	DefaultOpTimeout                = 30 * time.Second
	DefaultSweepAfter               = time.Hour
	DefaultSessionTTL               = 12 * time.Hour

	ConfigFileName = ".docvault.toml"

	configDirEnvKey          = "DOCVAULT_CONFIG_DIR"
	trustProjectConfigEnvKey = "DOCVAULT_TRUST_PROJECT_CONFIG"

	dbEnvKey                = "DOCVAULT_DB"
	listenEnvKey            = "DOCVAULT_LISTEN"
	logLevelEnvKey          = "DOCVAULT_LOG_LEVEL"
	secretKeyEnvKey         = "DOCVAULT_SECRET_KEY"
	passwordHashEnvKey      = "DOCVAULT_PASSWORD_HASH"
	maxUploadBytesEnvKey    = "DOCVAULT_MAX_UPLOAD_BYTES"
	allowedExtensionsEnvKey = "DOCVAULT_ALLOWED_EXTENSIONS"
	opTimeoutEnvKey         = "DOCVAULT_OP_TIMEOUT"
)

// DefaultAllowedExtensions is the upload allow-list used when none is configured.
var DefaultAllowedExtensions = []string{"pdf", "png", "jpg", "jpeg"}

// StorageConfig defines document storage limits.
type StorageConfig struct {
	MaxUploadBytes     int64         `toml:"max_upload_bytes"`
	MultipartMaxMemory int64         `toml:"multipart_max_memory"`
	AllowedExtensions  []string      `toml:"allowed_extensions"`
	ChunkSizeBytes     int           `toml:"chunk_size_bytes"`
	OpTimeout          time.Duration `toml:"op_timeout"`
	SweepAfter         time.Duration `toml:"sweep_after"`
}

// AuthConfig defines the shared password gate.
type AuthConfig struct {
	PasswordHash string        `toml:"password_hash"`
	SecretKey    string        `toml:"secret_key"`
	SessionTTL   time.Duration `toml:"session_ttl"`
}

// Config defines runtime configuration for docvault.
type Config struct {
	Listen                   string        `toml:"listen"`
	DBPath                   string        `toml:"db_path"`
	LogLevel                 string        `toml:"log_level"`
	Storage                  StorageConfig `toml:"storage"`
	Auth                     AuthConfig    `toml:"auth"`
	TrustedProjectConfigPath string        `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		Listen:   DefaultListen,
		DBPath:   "",
		LogLevel: DefaultLogLevel,
		Storage: StorageConfig{
			MaxUploadBytes:     DefaultMaxUploadBytes,
			MultipartMaxMemory: DefaultMultipartMaxMemory,
			AllowedExtensions:  append([]string(nil), DefaultAllowedExtensions...),
			ChunkSizeBytes:     DefaultChunkSizeBytes,
			OpTimeout:          DefaultOpTimeout,
			SweepAfter:         DefaultSweepAfter,
		},
		Auth: AuthConfig{
			SessionTTL: DefaultSessionTTL,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, ConfigFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"listen",
	"db_path",
	"log_level",
	"storage.max_upload_bytes",
	"storage.multipart_max_memory",
	"storage.allowed_extensions",
	"storage.chunk_size_bytes",
	"storage.op_timeout",
	"storage.sweep_after",
	"auth.password_hash",
	"auth.secret_key",
	"auth.session_ttl",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "listen":
		return c.Listen, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "storage.max_upload_bytes":
		return strconv.FormatInt(c.Storage.MaxUploadBytes, 10), nil
	case "storage.multipart_max_memory":
		return strconv.FormatInt(c.Storage.MultipartMaxMemory, 10), nil
	case "storage.allowed_extensions":
		return strings.Join(c.Storage.AllowedExtensions, ","), nil
	case "storage.chunk_size_bytes":
		return strconv.Itoa(c.Storage.ChunkSizeBytes), nil
	case "storage.op_timeout":
		return c.Storage.OpTimeout.String(), nil
	case "storage.sweep_after":
		return c.Storage.SweepAfter.String(), nil
	case "auth.password_hash":
		return c.Auth.PasswordHash, nil
	case "auth.secret_key":
		if c.Auth.SecretKey == "" {
			return "", nil
		}
		return "<redacted>", nil
	case "auth.session_ttl":
		return c.Auth.SessionTTL.String(), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, ConfigFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	// The file may hold the session secret.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, ConfigFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, ConfigFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalizeDefaults()

	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if value := strings.TrimSpace(os.Getenv(dbEnvKey)); value != "" {
		c.DBPath = value
	}
	if value := strings.TrimSpace(os.Getenv(listenEnvKey)); value != "" {
		c.Listen = value
	}
	if value := strings.TrimSpace(os.Getenv(logLevelEnvKey)); value != "" {
		c.LogLevel = value
	}
	if value := os.Getenv(secretKeyEnvKey); value != "" {
		c.Auth.SecretKey = value
	}
	if value := strings.TrimSpace(os.Getenv(passwordHashEnvKey)); value != "" {
		c.Auth.PasswordHash = value
	}
	if raw := strings.TrimSpace(os.Getenv(maxUploadBytesEnvKey)); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("invalid %s=%q: must be a positive integer", maxUploadBytesEnvKey, raw)
		}
		c.Storage.MaxUploadBytes = parsed
	}
	if raw := strings.TrimSpace(os.Getenv(allowedExtensionsEnvKey)); raw != "" {
		c.Storage.AllowedExtensions = splitCSV(raw)
	}
	if raw := strings.TrimSpace(os.Getenv(opTimeoutEnvKey)); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("invalid %s=%q: must be a positive duration", opTimeoutEnvKey, raw)
		}
		c.Storage.OpTimeout = parsed
	}
	return nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "storage.max_upload_bytes", "storage.multipart_max_memory":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "storage.chunk_size_bytes":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "storage.op_timeout", "storage.sweep_after", "auth.session_ttl":
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive duration such as 30s or 1h", key)
		}
		return parsed.String(), nil
	case "storage.allowed_extensions":
		return splitCSV(value), nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (c *Config) normalizeDefaults() {
	if strings.TrimSpace(c.Listen) == "" {
		c.Listen = DefaultListen
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Storage.MaxUploadBytes <= 0 {
		c.Storage.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Storage.MultipartMaxMemory <= 0 {
		c.Storage.MultipartMaxMemory = DefaultMultipartMaxMemory
	}
	if c.Storage.ChunkSizeBytes <= 0 {
		c.Storage.ChunkSizeBytes = DefaultChunkSizeBytes
	}
	if c.Storage.OpTimeout <= 0 {
		c.Storage.OpTimeout = DefaultOpTimeout
	}
	if c.Storage.SweepAfter <= 0 {
		c.Storage.SweepAfter = DefaultSweepAfter
	}
	if c.Auth.SessionTTL <= 0 {
		c.Auth.SessionTTL = DefaultSessionTTL
	}
	c.Storage.AllowedExtensions = normalizeExtensions(c.Storage.AllowedExtensions)
	if len(c.Storage.AllowedExtensions) == 0 {
		c.Storage.AllowedExtensions = append([]string(nil), DefaultAllowedExtensions...)
	}
}

func normalizeExtensions(rawValues []string) []string {
	out := make([]string, 0, len(rawValues))
	seen := map[string]struct{}{}
	for _, raw := range rawValues {
		normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "."))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
