package store

import (
	"context"
	"fmt"
)

// RecordBuild appends b to the history and returns it with ID and Seq set.
//
// The build row and its declaration catalogue are written in one transaction.
// Seq is one past the highest recorded seq, so history order survives clock
// changes and identical fingerprints.
func (s *Store) RecordBuild(ctx context.Context, b Build) (Build, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return Build{}, fmt.Errorf("record build: id: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Build{}, fmt.Errorf("record build: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM builds`).Scan(&seq); err != nil {
		return Build{}, fmt.Errorf("record build: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO builds
		(id, seq, program, arch, package, fingerprint, catalogue_hash, ir_version, builder_version, decl_count, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		seq,
		b.Program,
		b.Arch,
		b.Package,
		b.Fingerprint,
		b.CatalogueHash,
		b.IRVersion,
		b.BuilderVersion,
		b.DeclCount,
		b.Snapshot,
	)
	if err != nil {
		return Build{}, fmt.Errorf("record build: insert: %w", err)
	}

	for i, d := range b.Decls {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO declarations (build_id, ord, name, kind)
			VALUES (?, ?, ?, ?)
		`, id, i, d.Name, d.Kind)
		if err != nil {
			return Build{}, fmt.Errorf("record build: declaration %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Build{}, fmt.Errorf("record build: commit: %w", err)
	}

	b.ID = id
	b.Seq = seq
	return b, nil
}
