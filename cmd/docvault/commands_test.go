package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	internalauth "docvault/internal/auth"
	"docvault/internal/blobstore"
	"docvault/internal/catalog"
	"docvault/internal/config"
	"docvault/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv(logLevelEnvKey, "")
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "cli.db")
	cfg.LogLevel = "error"
	cfg.Storage.ChunkSizeBytes = 8
	return &cfg
}

func runCLI(t *testing.T, cfg *config.Config, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(cfg)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestPutListGetRemove(t *testing.T) {
	cfg := testConfig(t)
	content := []byte("%PDF-1.4\n1 0 obj\n")
	src := writeTempFile(t, "scan.pdf", content)

	out, err := runCLI(t, cfg, "", "put", src, "--title", "cert")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	id := strings.TrimSpace(out)
	if !store.ValidDocumentID(id) {
		t.Fatalf("expected document id, got %q", out)
	}

	out, err = runCLI(t, cfg, "", "ls")
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	if !strings.Contains(out, id) || !strings.Contains(out, "cert.pdf") {
		t.Fatalf("expected listing with %s, got %q", id, out)
	}
	if !strings.Contains(out, "1 documents, 17 B") {
		t.Fatalf("expected summary line, got %q", out)
	}

	out, err = runCLI(t, cfg, "", "ls", "--json")
	if err != nil {
		t.Fatalf("ls --json: %v", err)
	}
	var listed listOutput
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode ls output: %v", err)
	}
	if listed.Count != 1 || listed.TotalBytes != 17 || len(listed.Documents) != 1 {
		t.Fatalf("unexpected listing: %+v", listed)
	}
	if listed.Documents[0].ContentType != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", listed.Documents[0].ContentType)
	}

	out, err = runCLI(t, cfg, "", "get", id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out != string(content) {
		t.Fatalf("expected original bytes on stdout, got %q", out)
	}

	dst := filepath.Join(t.TempDir(), "copy.pdf")
	if _, err := runCLI(t, cfg, "", "get", id, "-o", dst); err != nil {
		t.Fatalf("get -o: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("expected original bytes in file, got %q", got)
	}
	if _, err := runCLI(t, cfg, "", "get", id, "-o", dst); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected existing file to be kept, got %v", err)
	}
	if _, err := runCLI(t, cfg, "", "get", id, "-o", dst, "--force"); err != nil {
		t.Fatalf("get --force: %v", err)
	}

	out, err = runCLI(t, cfg, "", "rm", id)
	if err != nil {
		t.Fatalf("rm: %v", err)
	}
	if strings.TrimSpace(out) != "deleted "+id {
		t.Fatalf("unexpected rm output %q", out)
	}

	if _, err := runCLI(t, cfg, "", "get", id); !errors.Is(err, blobstore.ErrNotFound) {
		t.Fatalf("expected not found after rm, got %v", err)
	}
	if _, err := runCLI(t, cfg, "", "rm", id); !errors.Is(err, blobstore.ErrNotFound) {
		t.Fatalf("expected not found on second rm, got %v", err)
	}
}

func TestPutDefaultsTitleToFileName(t *testing.T) {
	cfg := testConfig(t)
	src := writeTempFile(t, "my report.PDF", []byte("%PDF-1.4"))

	out, err := runCLI(t, cfg, "", "put", src, "--yaml")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.Contains(out, "filename: my_report.pdf") {
		t.Fatalf("expected sanitized filename, got %q", out)
	}
}

func TestPutRejections(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.MaxUploadBytes = 4

	exe := writeTempFile(t, "tool.exe", []byte("MZ"))
	if _, err := runCLI(t, cfg, "", "put", exe); !errors.Is(err, catalog.ErrInvalidUpload) {
		t.Fatalf("expected invalid upload, got %v", err)
	}

	big := writeTempFile(t, "big.pdf", []byte("0123456789"))
	if _, err := runCLI(t, cfg, "", "put", big); !errors.Is(err, blobstore.ErrPayloadTooLarge) {
		t.Fatalf("expected payload too large, got %v", err)
	}

	out, err := runCLI(t, cfg, "", "ls", "--json")
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	var listed listOutput
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode ls output: %v", err)
	}
	if listed.Count != 0 {
		t.Fatalf("expected nothing stored, got %+v", listed)
	}
}

func TestGCReportsSweep(t *testing.T) {
	cfg := testConfig(t)

	out, err := runCLI(t, cfg, "", "gc", "--json", "--older-than", "0s")
	if err != nil {
		t.Fatalf("gc: %v", err)
	}
	var result blobstore.SweepResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode gc output: %v", err)
	}
	if result != (blobstore.SweepResult{}) {
		t.Fatalf("expected empty sweep on fresh store, got %+v", result)
	}

	if _, err := runCLI(t, cfg, "", "gc", "--older-than=-1s"); err == nil {
		t.Fatal("expected negative duration to be rejected")
	}
}

func TestMigrateCommand(t *testing.T) {
	cfg := testConfig(t)

	out, err := runCLI(t, cfg, "", "migrate", "--dry-run")
	if err != nil {
		t.Fatalf("migrate --dry-run: %v", err)
	}
	if !strings.Contains(out, "Current version: 0") || !strings.Contains(out, "Pending migrations:") {
		t.Fatalf("unexpected dry-run output %q", out)
	}

	out, err = runCLI(t, cfg, "", "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, "Migrations applied successfully.") {
		t.Fatalf("unexpected migrate output %q", out)
	}

	out, err = runCLI(t, cfg, "", "migrate", "--inspect", "--json")
	if err != nil {
		t.Fatalf("migrate --inspect: %v", err)
	}
	var plan store.MigrationStatus
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if len(plan.Pending) != 0 || plan.CurrentVersion != plan.AvailableVersion {
		t.Fatalf("expected fully migrated database, got %+v", plan)
	}
}

func TestPasswdHash(t *testing.T) {
	cfg := testConfig(t)

	out, err := runCLI(t, cfg, "correct-horse\n", "passwd-hash", "--password-stdin")
	if err != nil {
		t.Fatalf("passwd-hash: %v", err)
	}
	hash := strings.TrimSpace(out)
	if !internalauth.VerifyPassword(hash, "correct-horse") {
		t.Fatalf("expected hash of the given password, got %q", hash)
	}

	if _, err := runCLI(t, cfg, "correct-horse\n", "passwd-hash"); err == nil {
		t.Fatal("expected --password-stdin to be required")
	}
	if _, err := runCLI(t, cfg, "short\n", "passwd-hash", "--password-stdin"); err == nil {
		t.Fatal("expected short password to be rejected")
	}
}

func TestSrvRequiresPasswordHash(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.PasswordHash = ""

	if _, err := runCLI(t, cfg, "", "srv"); !errors.Is(err, errPasswordHashRequired) {
		t.Fatalf("expected password hash error, got %v", err)
	}
}

func TestOutputFlagsAreExclusive(t *testing.T) {
	cfg := testConfig(t)
	if _, err := runCLI(t, cfg, "", "ls", "--json", "--yaml"); err == nil {
		t.Fatal("expected --json and --yaml to conflict")
	}
}

func TestConfigGet(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.SecretKey = "s3cret"

	out, err := runCLI(t, cfg, "", "config", "get", "auth.secret_key")
	if err != nil {
		t.Fatalf("config get: %v", err)
	}
	if strings.TrimSpace(out) != "<redacted>" {
		t.Fatalf("expected redacted secret, got %q", out)
	}
	if _, err := runCLI(t, cfg, "", "config", "get", "nope"); err == nil {
		t.Fatal("expected unknown key error")
	}
}

func TestRunPrintsErrorsWithHints(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOCVAULT_CONFIG_DIR", dir)
	t.Setenv("DOCVAULT_DB", filepath.Join(dir, "run.db"))
	t.Setenv(logLevelEnvKey, "error")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"rm", "not-a-document"}, strings.NewReader(""), &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected nothing on stdout, got %q", stdout.String())
	}
	for _, want := range []string{"not-a-document: document not found", "hint: list stored documents with: docvault ls"} {
		if !strings.Contains(stderr.String(), want) {
			t.Fatalf("expected %q on stderr, got %q", want, stderr.String())
		}
	}

	stderr.Reset()
	if code := run([]string{"config", "set", "--global", "storage.sweep_after", "2h"}, strings.NewReader(""), &stdout, &stderr); code != 0 {
		t.Fatalf("config set failed: %s", stderr.String())
	}
	written := filepath.Join(dir, config.ConfigFileName)
	if !strings.Contains(stdout.String(), "storage.sweep_after written to "+written) {
		t.Fatalf("expected written path, got %q", stdout.String())
	}

	stdout.Reset()
	if code := run([]string{"config", "get", "storage.sweep_after"}, strings.NewReader(""), &stdout, &stderr); code != 0 {
		t.Fatalf("config get failed: %s", stderr.String())
	}
	if strings.TrimSpace(stdout.String()) != "2h0m0s" {
		t.Fatalf("expected value from the written file, got %q", stdout.String())
	}
}

func TestConfigGetListsEverySetting(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.SecretKey = "s3cret"

	out, err := runCLI(t, cfg, "", "config", "get")
	if err != nil {
		t.Fatalf("config get: %v", err)
	}
	for _, want := range []string{"storage.op_timeout = 30s\n", "auth.secret_key = <redacted>\n", "log_level = error\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, "s3cret") {
		t.Fatalf("secret leaked into listing: %q", out)
	}

	out, err = runCLI(t, cfg, "", "config", "get", "--json")
	if err != nil {
		t.Fatalf("config get --json: %v", err)
	}
	var entries []configEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != len(config.AllowedKeys()) {
		t.Fatalf("expected %d settings, got %d", len(config.AllowedKeys()), len(entries))
	}
}

func TestArgumentValidation(t *testing.T) {
	cfg := testConfig(t)

	tests := []struct {
		args []string
		want string
	}{
		{args: []string{"get"}, want: "missing <id> argument"},
		{args: []string{"get", "a", "b"}, want: "expected one document id, got 2"},
		{args: []string{"rm"}, want: "missing <id> argument"},
		{args: []string{"put"}, want: "missing <path> argument"},
		{args: []string{"config", "set", "log_level"}, want: "missing <value> argument"},
		{args: []string{"config", "set", "log_level", "info", "extra"}, want: `unexpected argument "extra"`},
	}
	for _, tt := range tests {
		_, err := runCLI(t, cfg, "", tt.args...)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("%v: expected %q, got %v", tt.args, tt.want, err)
		}
	}

	_, err := runCLI(t, cfg, "", "rm", "../etc/passwd")
	if !errors.Is(err, blobstore.ErrNotFound) {
		t.Fatalf("expected malformed id to be not found, got %v", err)
	}
	if _, statErr := os.Stat(cfg.DBPath); !os.IsNotExist(statErr) {
		t.Fatalf("expected no database to be created for a malformed id, stat err %v", statErr)
	}
}
