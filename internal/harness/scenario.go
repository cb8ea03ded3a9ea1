package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a tick scenario for one package type.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists directories of .cue and .hcl definitions to load.
	// Paths are relative to the scenario file location.
	Specs []string `yaml:"specs"`

	// Type is the package type to instantiate, e.g. "demo/edge".
	Type string `yaml:"type"`

	// Ticks is the number of ticks to run.
	Ticks int64 `yaml:"ticks"`

	// Inputs maps an external input label to its value per tick, starting
	// at tick 1. The last value holds for the remaining ticks.
	Inputs map[string][]any `yaml:"inputs,omitempty"`

	// Expect maps an external output label to its expected value per
	// tick, starting at tick 1. Ticks past the end of the list are not
	// checked.
	Expect map[string][]any `yaml:"expect,omitempty"`

	// Assertions validate the recorded run.
	// Supported types: output_at, count_true, stable_after, sample_count
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// RunID is an optional fixed run ID for the recording.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// Assertion validates the outputs or the recorded samples of a run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "output_at": Output has Value at Tick
	// - "count_true": Bool output is true on exactly Count ticks
	// - "stable_after": Output never changes from Tick on (and equals
	//   Value when given)
	// - "sample_count": Exactly Count samples match Where
	Type string `yaml:"type"`

	// Output is the external output label (output_at, count_true,
	// stable_after).
	Output string `yaml:"output,omitempty"`

	// Tick is a 1-based tick number (output_at, stable_after).
	Tick int64 `yaml:"tick,omitempty"`

	// Value is the expected value, coerced to the output's kind.
	Value any `yaml:"value,omitempty"`

	// Count is the expected number of ticks or samples.
	Count int `yaml:"count,omitempty"`

	// Where filters samples by column (sample_count). Keys are sample
	// columns: label, direction, socket, tick, value.
	Where map[string]any `yaml:"where,omitempty"`
}

// Assertion type constants.
const (
	AssertOutputAt    = "output_at"
	AssertCountTrue   = "count_true"
	AssertStableAfter = "stable_after"
	AssertSampleCount = "sample_count"
)

// LoadScenario reads and parses a scenario YAML file, resolving spec
// paths relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving spec paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve spec paths relative to base path BEFORE validation
	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML without resolving or checking
// spec paths.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}

	if s.Type == "" {
		return fmt.Errorf("type is required")
	}

	if s.Ticks <= 0 {
		return fmt.Errorf("ticks must be positive, got %d", s.Ticks)
	}

	if len(s.Expect) == 0 && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}

	// Validate spec paths exist
	for _, specPath := range s.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return fmt.Errorf("spec directory not found: %s", specPath)
		}
	}

	for label, values := range s.Inputs {
		if len(values) == 0 {
			return fmt.Errorf("inputs.%s: at least one value is required", label)
		}
		if int64(len(values)) > s.Ticks {
			return fmt.Errorf("inputs.%s: %d values for %d ticks", label, len(values), s.Ticks)
		}
	}

	for label, values := range s.Expect {
		if int64(len(values)) > s.Ticks {
			return fmt.Errorf("expect.%s: %d values for %d ticks", label, len(values), s.Ticks)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, s.Ticks); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, ticks int64) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOutputAt, AssertStableAfter:
		if a.Output == "" {
			return fmt.Errorf("assertions[%d]: output is required for %s", index, a.Type)
		}
		if a.Tick < 1 || a.Tick > ticks {
			return fmt.Errorf("assertions[%d]: tick %d outside 1..%d", index, a.Tick, ticks)
		}
		if a.Type == AssertOutputAt && a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for output_at", index)
		}
	case AssertCountTrue:
		if a.Output == "" {
			return fmt.Errorf("assertions[%d]: output is required for count_true", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for count_true", index)
		}
	case AssertSampleCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for sample_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
