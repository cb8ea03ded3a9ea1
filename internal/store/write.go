package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/spaghetti/internal/ir"
)

// SavePackage stores a package document and returns its content address.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - saving the same
// document twice keeps the first row and its seq.
func (s *Store) SavePackage(ctx context.Context, doc ir.PackageDoc) (string, error) {
	id, err := ir.PackageID(doc)
	if err != nil {
		return "", fmt.Errorf("save package: %w", err)
	}
	docJSON, err := marshalDoc(doc)
	if err != nil {
		return "", fmt.Errorf("save package: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO packages (id, type, name, doc, seq)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM packages))
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		doc.Type,
		doc.Meta.Name,
		docJSON,
	)
	if err != nil {
		return "", fmt.Errorf("save package: %w", err)
	}
	return id, nil
}

// CreateRun inserts an empty run of a stored package.
// The package referenced by packageID must exist (foreign key constraint).
func (s *Store) CreateRun(ctx context.Context, id, packageID string) (Run, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, package_id, seq, engine_version, ir_version)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?)
	`,
		id,
		packageID,
		ir.EngineVersion,
		ir.IRVersion,
	)
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	return s.ReadRun(ctx, id)
}

// WriteSamples appends samples to a run in one transaction and advances
// the run's tick count to the highest tick written.
// Uses ON CONFLICT DO NOTHING - a sample already recorded for the same
// (tick, direction, socket) is silently ignored.
func (s *Store) WriteSamples(ctx context.Context, runID string, samples []ir.Sample) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write samples: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (run_id, tick, direction, socket, label, kind, value)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write samples: prepare: %w", err)
	}
	defer stmt.Close()

	for _, smp := range samples {
		valueJSON, err := marshalValue(smp.Value)
		if err != nil {
			return fmt.Errorf("write samples: tick %d %s[%d]: %w", smp.Tick, smp.Direction, smp.Socket, err)
		}
		_, err = stmt.ExecContext(ctx,
			runID,
			smp.Tick,
			string(smp.Direction),
			smp.Socket,
			smp.Label,
			smp.Value.Kind().String(),
			valueJSON,
		)
		if err != nil {
			return fmt.Errorf("write samples: tick %d: %w", smp.Tick, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE runs
		SET ticks = (SELECT COALESCE(MAX(tick), 0) FROM samples WHERE run_id = ?)
		WHERE id = ?
	`, runID, runID)
	if err != nil {
		return fmt.Errorf("write samples: update ticks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write samples: commit: %w", err)
	}
	return nil
}

// FinishRun records the trace hash of a completed run.
// Returns sql.ErrNoRows if the run does not exist.
func (s *Store) FinishRun(ctx context.Context, runID, traceHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET trace_hash = ? WHERE id = ?`, traceHash, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %q: %w", runID, sql.ErrNoRows)
	}
	return nil
}

// RecordRun stores doc, a run named runID and its samples, then seals
// the run with the samples' trace hash.
func (s *Store) RecordRun(ctx context.Context, runID string, doc ir.PackageDoc, samples []ir.Sample) (Run, error) {
	pkgID, err := s.SavePackage(ctx, doc)
	if err != nil {
		return Run{}, err
	}
	if _, err := s.CreateRun(ctx, runID, pkgID); err != nil {
		return Run{}, err
	}
	if err := s.WriteSamples(ctx, runID, samples); err != nil {
		return Run{}, err
	}
	hash, err := ir.TraceHash(samples)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	if err := s.FinishRun(ctx, runID, hash); err != nil {
		return Run{}, err
	}
	return s.ReadRun(ctx, runID)
}
