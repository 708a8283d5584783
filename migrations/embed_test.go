package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(FS, ".")
	if err != nil {
		t.Fatalf("read embedded dir: %v", err)
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	if len(ups) == 0 {
		t.Fatal("expected at least one migration")
	}
	for base := range ups {
		if !downs[base] {
			t.Errorf("migration %s has no down file", base)
		}
	}
}

func TestCallsTableMatchesStatuses(t *testing.T) {
	raw, err := fs.ReadFile(FS, "000001_create_calls.up.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	for _, status := range []string{"queued", "ringing", "in_progress", "completed", "failed"} {
		if !strings.Contains(string(raw), "'"+status+"'") {
			t.Errorf("status %q missing from check constraint", status)
		}
	}
}
