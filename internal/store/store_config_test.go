package store

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSQLiteDSN(t *testing.T) {
	if _, err := sqliteDSN(" "); err == nil {
		t.Fatal("expected error for empty path")
	}

	dsn, err := sqliteDSN("file:/tmp/docvault.db")
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("parse dsn %s: %v", dsn, err)
	}
	if u.Scheme != "file" || u.Path != "/tmp/docvault.db" {
		t.Fatalf("expected file:///tmp/docvault.db, got %s", dsn)
	}
	query := u.Query()
	pragmas := strings.Join(query["_pragma"], ",")
	for _, want := range []string{"journal_mode(WAL)", "synchronous(NORMAL)", "foreign_keys(1)", "busy_timeout(5000)"} {
		if !strings.Contains(pragmas, want) {
			t.Fatalf("expected pragma %s, got %v", want, query["_pragma"])
		}
	}
	if query.Get("_txlock") != "immediate" {
		t.Fatalf("expected immediate transactions, got %q", query.Get("_txlock"))
	}
}

func TestSQLiteDSNResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	dsn, err := sqliteDSN("vault.db")
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	want, err := filepath.Abs("vault.db")
	if err != nil {
		t.Fatalf("abs: %v", err)
	}
	if u.Path != want {
		t.Fatalf("expected %s, got %s", want, u.Path)
	}
}

func TestOpenAppliesConnectionSettings(t *testing.T) {
	t.Setenv(maxOpenConnsEnvKey, "2")
	t.Setenv(connMaxLifetimeEnvKey, "90s")

	st := testStore(t)
	if got := st.DB().Stats().MaxOpenConnections; got != 2 {
		t.Fatalf("expected 2 open connections from env, got %d", got)
	}

	// Every pooled connection must carry the pragmas, not just the first.
	for i := 0; i < 2; i++ {
		conn, err := st.DB().Conn(t.Context())
		if err != nil {
			t.Fatalf("conn %d: %v", i, err)
		}
		defer conn.Close()

		var journal string
		var foreignKeys, busy int
		if err := conn.QueryRowContext(t.Context(), "PRAGMA journal_mode").Scan(&journal); err != nil {
			t.Fatalf("journal_mode: %v", err)
		}
		if err := conn.QueryRowContext(t.Context(), "PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
			t.Fatalf("foreign_keys: %v", err)
		}
		if err := conn.QueryRowContext(t.Context(), "PRAGMA busy_timeout").Scan(&busy); err != nil {
			t.Fatalf("busy_timeout: %v", err)
		}
		if !strings.EqualFold(journal, "wal") || foreignKeys != 1 || busy != busyTimeoutMS {
			t.Fatalf("conn %d: journal=%s foreign_keys=%d busy_timeout=%d", i, journal, foreignKeys, busy)
		}
	}
}

func TestPoolSettingsFallBackOnBadEnv(t *testing.T) {
	tests := []struct {
		maxOpen, lifetime string
		wantOpen          int
		wantLifetime      time.Duration
	}{
		{maxOpen: "", lifetime: "", wantOpen: defaultMaxOpenConns, wantLifetime: defaultConnMaxLifetime},
		{maxOpen: "8", lifetime: "2m", wantOpen: 8, wantLifetime: 2 * time.Minute},
		{maxOpen: "0", lifetime: "-5", wantOpen: defaultMaxOpenConns, wantLifetime: defaultConnMaxLifetime},
		{maxOpen: "many", lifetime: "soon", wantOpen: defaultMaxOpenConns, wantLifetime: defaultConnMaxLifetime},
		{maxOpen: " 3 ", lifetime: "45", wantOpen: 3, wantLifetime: 45 * time.Second},
	}
	for _, tt := range tests {
		t.Setenv(maxOpenConnsEnvKey, tt.maxOpen)
		t.Setenv(connMaxLifetimeEnvKey, tt.lifetime)
		if got := intFromEnv(maxOpenConnsEnvKey, defaultMaxOpenConns); got != tt.wantOpen {
			t.Fatalf("max open %q: expected %d, got %d", tt.maxOpen, tt.wantOpen, got)
		}
		if got := durationFromEnv(connMaxLifetimeEnvKey, defaultConnMaxLifetime); got != tt.wantLifetime {
			t.Fatalf("lifetime %q: expected %v, got %v", tt.lifetime, tt.wantLifetime, got)
		}
	}
}

func TestOpenFailsForUnwritableLocation(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	if _, err := Open(filepath.Join(blocker, "vault.db")); err == nil {
		t.Fatal("expected open under a regular file to fail")
	}
}
