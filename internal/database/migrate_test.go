package database

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadMigrations_Embedded(t *testing.T) {
	migs, err := LoadMigrations(migrationFS)
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migs) == 0 || migs[0].Version != 1 {
		t.Fatalf("expected V1 first, got %+v", migs)
	}
	for _, table := range []string{"users", "user_skills", "reviews", "time_transactions"} {
		if !strings.Contains(migs[0].SQL, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("initial migration does not create %s", table)
		}
	}
}

func TestLoadMigrations_OrderingAndValidation(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/V10__later.sql": {Data: []byte("SELECT 10;")},
		"migrations/V2__second.sql": {Data: []byte("SELECT 2;")},
		"migrations/README.md":      {Data: []byte("ignored")},
		"migrations/V1__first.sql":  {Data: []byte("SELECT 1;")},
	}
	migs, err := LoadMigrations(fsys)
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migs) != 3 || migs[0].Version != 1 || migs[1].Version != 2 || migs[2].Version != 10 {
		t.Fatalf("unexpected order %+v", migs)
	}
	if migs[0].Checksum == migs[1].Checksum {
		t.Error("different files must have different checksums")
	}

	dup := fstest.MapFS{
		"migrations/V1__a.sql": {Data: []byte("SELECT 1;")},
		"migrations/V1__b.sql": {Data: []byte("SELECT 2;")},
	}
	if _, err := LoadMigrations(dup); err == nil {
		t.Error("expected duplicate version error")
	}

	empty := fstest.MapFS{"migrations/V1__empty.sql": {Data: []byte("  \n")}}
	if _, err := LoadMigrations(empty); err == nil {
		t.Error("expected empty migration error")
	}
}
