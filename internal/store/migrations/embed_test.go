package migrations

import (
	"testing"
	"testing/fstest"
)

func TestValidate_EmbeddedMigrationsAreWellFormed(t *testing.T) {
	if err := Validate(FS()); err != nil {
		t.Fatalf("Validate(FS()) = %v, want nil", err)
	}
}

func TestValidate_RejectsMissingDownFile(t *testing.T) {
	fsys := fstest.MapFS{
		"001_create_things.up.sql": &fstest.MapFile{Data: []byte("CREATE TABLE things();")},
	}

	if err := Validate(fsys); err == nil {
		t.Fatal("Validate() = nil, want an error for a missing down file")
	}
}

func TestValidate_RejectsSequenceGap(t *testing.T) {
	fsys := fstest.MapFS{
		"001_create_things.up.sql":   &fstest.MapFile{Data: []byte("CREATE TABLE things();")},
		"001_create_things.down.sql": &fstest.MapFile{Data: []byte("DROP TABLE things;")},
		"003_add_column.up.sql":      &fstest.MapFile{Data: []byte("ALTER TABLE things ADD x int;")},
		"003_add_column.down.sql":    &fstest.MapFile{Data: []byte("ALTER TABLE things DROP x;")},
	}

	if err := Validate(fsys); err == nil {
		t.Fatal("Validate() = nil, want an error for a gap between 001 and 003")
	}
}

func TestValidate_RejectsMalformedFilename(t *testing.T) {
	fsys := fstest.MapFS{
		"create_things.sql": &fstest.MapFile{Data: []byte("CREATE TABLE things();")},
	}

	if err := Validate(fsys); err == nil {
		t.Fatal("Validate() = nil, want an error for a filename without a sequence/direction")
	}
}

func TestValidate_RejectsSequenceNotStartingAtOne(t *testing.T) {
	fsys := fstest.MapFS{
		"002_create_things.up.sql":   &fstest.MapFile{Data: []byte("CREATE TABLE things();")},
		"002_create_things.down.sql": &fstest.MapFile{Data: []byte("DROP TABLE things;")},
	}

	if err := Validate(fsys); err == nil {
		t.Fatal("Validate() = nil, want an error when the sequence doesn't start at 001")
	}
}
