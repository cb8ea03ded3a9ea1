package store

import (
	"context"
	"fmt"

	"github.com/roach88/spaghetti/internal/ir"
)

// Recording is everything needed to re-execute a run: the run row, the
// package it ran and its samples.
type Recording struct {
	Run     Run           `json:"run"`
	Doc     ir.PackageDoc `json:"doc"`
	Samples []ir.Sample   `json:"samples"`
}

// LoadRecording reads a run, its package snapshot and its samples.
// An empty runID selects the latest run.
func (s *Store) LoadRecording(ctx context.Context, runID string) (Recording, error) {
	var (
		run Run
		err error
	)
	if runID == "" {
		run, err = s.LatestRun(ctx)
	} else {
		run, err = s.ReadRun(ctx, runID)
	}
	if err != nil {
		return Recording{}, fmt.Errorf("load recording: %w", err)
	}

	pkg, err := s.ReadPackage(ctx, run.PackageID)
	if err != nil {
		return Recording{}, fmt.Errorf("load recording: %w", err)
	}

	samples, err := s.ReadSamples(ctx, run.ID)
	if err != nil {
		return Recording{}, fmt.Errorf("load recording: %w", err)
	}

	return Recording{Run: run, Doc: pkg.Doc, Samples: samples}, nil
}

// Verify recomputes the trace hash of a recording's samples and compares
// it with the hash sealed by FinishRun.
func (r Recording) Verify() error {
	hash, err := ir.TraceHash(r.Samples)
	if err != nil {
		return fmt.Errorf("verify recording: %w", err)
	}
	if r.Run.TraceHash != hash {
		return fmt.Errorf("verify recording %s: stored trace hash %s, samples hash to %s", r.Run.ID, r.Run.TraceHash, hash)
	}
	return nil
}
