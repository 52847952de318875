// Package migrations embeds the processed_events schema migrations and
// validates them before they are ever handed to golang-migrate.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
)

//go:embed *.sql
var embeddedMigrations embed.FS

// FS exposes the embedded migration files for golang-migrate's iofs source.
func FS() embed.FS {
	return embeddedMigrations
}

var filenamePattern = regexp.MustCompile(`^(\d{3})_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)

// step is one half of an up/down migration pair.
type step struct {
	sequence int
	name     string
}

// Validate checks that filesystem contains a well-formed set of embedded
// migrations: every file matches the `NNN_name.(up|down).sql` naming
// convention, every sequence number has both an up and a down file, and
// sequence numbers run 1..N with no gaps. It is called once at startup, via
// NewRunner, so a malformed migration set fails fast before golang-migrate
// ever touches the database.
func Validate(filesystem fs.FS) error {
	entries, err := fs.ReadDir(filesystem, ".")
	if err != nil {
		return fmt.Errorf("migrations: reading embedded directory: %w", err)
	}

	ups := make(map[int]step)
	downs := make(map[int]step)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		s, direction, err := parseFilename(entry.Name())
		if err != nil {
			return err
		}

		if direction == "up" {
			ups[s.sequence] = s
		} else {
			downs[s.sequence] = s
		}
	}

	if len(ups) == 0 {
		return fmt.Errorf("migrations: no embedded migration files found")
	}

	if err := validatePairs(ups, downs); err != nil {
		return err
	}

	return validateSequence(ups)
}

func parseFilename(filename string) (step, string, error) {
	matches := filenamePattern.FindStringSubmatch(filename)
	if len(matches) != 4 {
		return step{}, "", fmt.Errorf(
			"migrations: invalid filename %q (expected NNN_name.up.sql or NNN_name.down.sql)", filename)
	}

	sequence, err := strconv.Atoi(matches[1])
	if err != nil {
		return step{}, "", fmt.Errorf("migrations: invalid sequence number in %q: %w", filename, err)
	}

	return step{sequence: sequence, name: matches[2]}, matches[3], nil
}

func validatePairs(ups, downs map[int]step) error {
	for sequence, s := range ups {
		if _, ok := downs[sequence]; !ok {
			return fmt.Errorf("migrations: %03d_%s has an up file but no matching down file", sequence, s.name)
		}
	}

	for sequence, s := range downs {
		if _, ok := ups[sequence]; !ok {
			return fmt.Errorf("migrations: %03d_%s has a down file but no matching up file", sequence, s.name)
		}
	}

	return nil
}

func validateSequence(ups map[int]step) error {
	sequences := make([]int, 0, len(ups))
	for sequence := range ups {
		sequences = append(sequences, sequence)
	}

	sort.Ints(sequences)

	if sequences[0] != 1 {
		return fmt.Errorf("migrations: sequence must start at 001, found %03d", sequences[0])
	}

	for i := 1; i < len(sequences); i++ {
		if sequences[i] != sequences[i-1]+1 {
			return fmt.Errorf("migrations: gap in sequence between %03d and %03d", sequences[i-1], sequences[i])
		}
	}

	return nil
}
