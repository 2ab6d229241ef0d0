package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fortio.org/safecast"
)

// ErrNotFound is returned when a build id is not in the history.
var ErrNotFound = errors.New("build not found")

const buildColumns = `id, seq, program, arch, package, fingerprint, catalogue_hash, ir_version, builder_version, decl_count, snapshot`

// Builds returns the recorded builds, oldest first. An empty program returns the
// builds of every program. Declaration catalogues are not loaded; use Build.
//
// Returns an empty slice (not nil) if nothing has been recorded.
func (s *Store) Builds(ctx context.Context, program string) ([]Build, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+buildColumns+`
		FROM builds
		WHERE ? = '' OR program = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, program, program)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	builds := []Build{}
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builds: %w", err)
	}
	return builds, nil
}

// Build retrieves one build with its declaration catalogue.
// Returns an error wrapping ErrNotFound if the id is unknown.
func (s *Store) Build(ctx context.Context, id string) (Build, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+buildColumns+` FROM builds WHERE id = ?`, id)
	b, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Build{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Build{}, err
	}

	b.Decls, err = s.readDecls(ctx, id)
	if err != nil {
		return Build{}, err
	}
	return b, nil
}

// Latest returns the most recent build of program. ok is false when the program
// has never been recorded.
func (s *Store) Latest(ctx context.Context, program string) (b Build, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+buildColumns+`
		FROM builds
		WHERE program = ?
		ORDER BY seq DESC
		LIMIT 1
	`, program)
	b, err = scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Build{}, false, nil
	}
	if err != nil {
		return Build{}, false, err
	}
	return b, true, nil
}

// BuildsWithFingerprint returns the ids of every build whose resolved package
// hashed to fp, oldest first.
func (s *Store) BuildsWithFingerprint(ctx context.Context, fp string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM builds
		WHERE fingerprint = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, fp)
	if err != nil {
		return nil, fmt.Errorf("query fingerprint: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fingerprint: %w", err)
	}
	return ids, nil
}

func (s *Store) readDecls(ctx context.Context, id string) ([]DeclEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, kind FROM declarations
		WHERE build_id = ?
		ORDER BY ord ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query declarations: %w", err)
	}
	defer rows.Close()

	decls := []DeclEntry{}
	for rows.Next() {
		var d DeclEntry
		if err := rows.Scan(&d.Name, &d.Kind); err != nil {
			return nil, fmt.Errorf("scan declaration: %w", err)
		}
		decls = append(decls, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate declarations: %w", err)
	}
	return decls, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(row scanner) (Build, error) {
	var (
		b         Build
		declCount int64
	)
	err := row.Scan(
		&b.ID,
		&b.Seq,
		&b.Program,
		&b.Arch,
		&b.Package,
		&b.Fingerprint,
		&b.CatalogueHash,
		&b.IRVersion,
		&b.BuilderVersion,
		&declCount,
		&b.Snapshot,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Build{}, err
	}
	if err != nil {
		return Build{}, fmt.Errorf("scan build: %w", err)
	}
	b.DeclCount, err = safecast.Conv[int](declCount)
	if err != nil {
		return Build{}, fmt.Errorf("scan build %s: decl_count: %w", b.ID, err)
	}
	return b, nil
}
