package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/spaghetti/internal/ir"
	"github.com/roach88/spaghetti/internal/queryir"
	"github.com/roach88/spaghetti/internal/querysql"
)

// PackageRecord is a stored package snapshot.
type PackageRecord struct {
	ID   string        `json:"id"`
	Type string        `json:"type"`
	Name string        `json:"name,omitempty"`
	Seq  int64         `json:"seq"`
	Doc  ir.PackageDoc `json:"doc"`
}

// Run is one recorded engine run. TraceHash is empty until FinishRun.
type Run struct {
	ID            string `json:"id"`
	PackageID     string `json:"package_id"`
	Seq           int64  `json:"seq"`
	Ticks         int64  `json:"ticks"`
	TraceHash     string `json:"trace_hash"`
	EngineVersion string `json:"engine_version"`
	IRVersion     string `json:"ir_version"`
}

const runColumns = `id, package_id, seq, ticks, trace_hash, engine_version, ir_version`

// ReadPackage returns a stored package snapshot by content address.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadPackage(ctx context.Context, id string) (PackageRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, name, seq, doc FROM packages WHERE id = ?
	`, id)
	rec, err := scanPackage(row)
	if err != nil {
		return PackageRecord{}, fmt.Errorf("read package %q: %w", id, err)
	}
	return rec, nil
}

// ListPackages returns every stored package ordered by seq ASC, id ASC.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListPackages(ctx context.Context) ([]PackageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, name, seq, doc FROM packages
		ORDER BY seq ASC, id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("query packages: %w", err)
	}
	defer rows.Close()

	packages := []PackageRecord{}
	for rows.Next() {
		rec, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		packages = append(packages, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate packages: %w", err)
	}
	return packages, nil
}

// ReadRun returns a run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("read run %q: %w", id, err)
	}
	return run, nil
}

// LatestRun returns the most recently created run.
// Returns sql.ErrNoRows if no run has been recorded.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+` FROM runs
		ORDER BY seq DESC, id DESC COLLATE BINARY
		LIMIT 1
	`)
	run, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns every run ordered by seq ASC, id ASC.
//
// Returns an empty slice (not nil) if no run has been recorded.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM runs
		ORDER BY seq ASC, id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadSamples returns every sample of a run ordered by tick, direction
// ("in" before "out") and socket.
func (s *Store) ReadSamples(ctx context.Context, runID string) ([]ir.Sample, error) {
	return s.QuerySamples(ctx, SampleFilter{RunID: runID}.Predicate())
}

// QuerySamples returns the samples matching filter. The filter is
// compiled through querysql, so only catalog columns reach the SQL text
// and every literal is a bound parameter. A nil filter matches every
// sample of every run.
func (s *Store) QuerySamples(ctx context.Context, filter queryir.Predicate) ([]ir.Sample, error) {
	query, params, err := querysql.NewSQLCompiler().Compile(queryir.Select{From: "samples", Filter: filter})
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	samples := []ir.Sample{}
	for rows.Next() {
		var (
			runID, direction, label, kind, value string
			smp                                  ir.Sample
		)
		if err := rows.Scan(&runID, &smp.Tick, &direction, &smp.Socket, &label, &kind, &value); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		smp.Direction = ir.Direction(direction)
		smp.Label = label
		smp.Value, err = unmarshalValue(kind, value)
		if err != nil {
			return nil, fmt.Errorf("sample %s tick %d: %w", runID, smp.Tick, err)
		}
		samples = append(samples, smp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return samples, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPackage(row rowScanner) (PackageRecord, error) {
	var (
		rec     PackageRecord
		docJSON string
	)
	if err := row.Scan(&rec.ID, &rec.Type, &rec.Name, &rec.Seq, &docJSON); err != nil {
		if err == sql.ErrNoRows {
			return PackageRecord{}, err
		}
		return PackageRecord{}, fmt.Errorf("scan package: %w", err)
	}
	doc, err := unmarshalDoc(docJSON)
	if err != nil {
		return PackageRecord{}, err
	}
	rec.Doc = doc
	return rec, nil
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	err := row.Scan(&run.ID, &run.PackageID, &run.Seq, &run.Ticks, &run.TraceHash, &run.EngineVersion, &run.IRVersion)
	if err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}
