package main

import (
	"path/filepath"
	"testing"
)

func TestParseSteps(t *testing.T) {
	t.Parallel()

	if got, err := parseSteps(nil); err != nil || got != 1 {
		t.Fatalf("parseSteps(nil)=%d,%v want 1,nil", got, err)
	}
	if got, err := parseSteps([]string{" 3 "}); err != nil || got != 3 {
		t.Fatalf("parseSteps(3)=%d,%v want 3,nil", got, err)
	}
	for _, bad := range []string{"0", "-2", "x"} {
		if _, err := parseSteps([]string{bad}); err == nil {
			t.Fatalf("parseSteps(%q) expected error", bad)
		}
	}
}

func TestParseVersionAndTarget(t *testing.T) {
	t.Parallel()

	if got, err := parseVersion("-1"); err != nil || got != -1 {
		t.Fatalf("parseVersion(-1)=%d,%v", got, err)
	}
	if _, err := parseVersion("-5"); err == nil {
		t.Fatalf("expected error for version below -1")
	}
	if got, err := parseTarget("1"); err != nil || got != 1 {
		t.Fatalf("parseTarget(1)=%d,%v", got, err)
	}
	if _, err := parseTarget("-1"); err == nil {
		t.Fatalf("expected error for negative target")
	}
}

func TestRun_UsageErrors(t *testing.T) {
	t.Setenv("APP_ENV", "dev")

	if got := run(nil); got != 2 {
		t.Fatalf("run() without command=%d want 2", got)
	}
	if got := run([]string{"sideways"}); got != 2 {
		t.Fatalf("run(sideways)=%d want 2", got)
	}
}

func TestRun_UpThenCheck(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("APP_LOG_LEVEL", "error")
	dbPath := filepath.Join(t.TempDir(), "cricket_matches.db")

	if got := run([]string{"-db", dbPath, "up"}); got != 0 {
		t.Fatalf("up=%d want 0", got)
	}
	if got := run([]string{"-db", dbPath, "up"}); got != 0 {
		t.Fatalf("second up must be a no-op, got %d", got)
	}
	if got := run([]string{"-db", dbPath, "check"}); got != 0 {
		t.Fatalf("check=%d want 0", got)
	}
	if got := run([]string{"-db", dbPath, "force", "x"}); got != 1 {
		t.Fatalf("force x=%d want 1", got)
	}
}
