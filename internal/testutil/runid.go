package testutil

// FixedRunIDGenerator generates the same run ID every time.
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with the same FixedRunIDGenerator records byte-identical runs.
//
// Unlike engine.FixedGenerator which returns IDs in sequence, this generator
// always returns the same ID. Each scenario records exactly one run into its
// own store, so one ID is enough.
//
// Thread-safety: FixedRunIDGenerator is stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

// DefaultRunID is used when a scenario does not name its run.
const DefaultRunID = "test-run-default"

// NewFixedRunIDGenerator creates a new fixed run ID generator.
//
// The ID is typically set in the scenario YAML:
//
//	run_id: "test-run-00000000-0000-0000-0000-000000000001"
//
// If id is empty, Generate() returns DefaultRunID.
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = DefaultRunID
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run ID.
//
// Implements engine.RunIDGenerator interface.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
