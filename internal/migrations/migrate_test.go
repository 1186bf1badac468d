package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

// Every up migration must have a matching down migration so a failed deploy
// can roll back cleanly.
func TestMigrationFilesArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "sql")
	if err != nil {
		t.Fatalf("reading embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("no embedded migration files found")
	}

	ups := make(map[string]bool)
	downs := make(map[string]bool)

	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("migration %q is neither .up.sql nor .down.sql", name)
		}
	}

	for base := range ups {
		if !downs[base] {
			t.Errorf("migration %q has no down migration", base)
		}
	}
	for base := range downs {
		if !ups[base] {
			t.Errorf("migration %q has no up migration", base)
		}
	}
}

// Handle and email uniqueness is checked case-insensitively in the user
// repository; the unique indexes must be expression indexes on LOWER() so
// concurrent registrations differing only in case cannot both commit.
func TestUserUniqueIndexesAreCaseInsensitive(t *testing.T) {
	data, err := fs.ReadFile(migrationFiles, "sql/0001_create_users.up.sql")
	if err != nil {
		t.Fatalf("reading users migration: %v", err)
	}

	ddl := string(data)
	for _, expr := range []string{"LOWER(handle)", "LOWER(email)"} {
		if !strings.Contains(ddl, expr) {
			t.Errorf("users migration does not index %s", expr)
		}
	}
}

func TestMigrationFilesAreNotEmpty(t *testing.T) {
	err := fs.WalkDir(migrationFiles, "sql", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(migrationFiles, path)
		if err != nil {
			return err
		}
		if len(strings.TrimSpace(string(data))) == 0 {
			t.Errorf("migration %q is empty", path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walking embedded migrations: %v", err)
	}
}
