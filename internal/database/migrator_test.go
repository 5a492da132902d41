package database

import (
	"reflect"
	"testing"
	"testing/fstest"

	"textile-backend/migrations"
)

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_dispatches.sql": {Data: []byte("SELECT 2;")},
		"001_lots.sql":       {Data: []byte("SELECT 1;")},
		"003_reset_all.sql":  {Data: []byte("DROP TABLE lots;")},
		"README.md":          {Data: []byte("notes")},
		"old/004_x.sql":      {Data: []byte("SELECT 4;")},
	}

	got, err := PendingMigrations(fsys, ".", nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"001_lots.sql", "002_dispatches.sql"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	got, err = PendingMigrations(fsys, ".", map[string]bool{"001_lots.sql": true})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"002_dispatches.sql"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := PendingMigrations(migrations.FS, ".", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) < 2 || got[0] != "001_lots.sql" {
		t.Fatalf("unexpected embedded migrations %v", got)
	}
}
