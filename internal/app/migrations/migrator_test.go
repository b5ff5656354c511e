package migrations

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestMigrationVersion(t *testing.T) {
	if got := MigrationVersion("000002_credentials.sql"); got != "000002" {
		t.Fatalf("MigrationVersion = %q", got)
	}
	if got := MigrationVersion("/abs/path/000010_x_y.sql"); got != "000010" {
		t.Fatalf("MigrationVersion with path = %q", got)
	}
}

func TestSortedMigrationFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"000002_b.sql", "000001_a.sql", "README.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "000003_dir.sql"), 0o700); err != nil {
		t.Fatal(err)
	}

	got, err := SortedMigrationFiles(dir)
	if err != nil {
		t.Fatalf("SortedMigrationFiles: %v", err)
	}
	want := []string{"000001_a.sql", "000002_b.sql"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
