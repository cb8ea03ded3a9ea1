// Package harness runs tick scenarios against package definitions.
//
// A scenario loads CUE and HCL definitions, instantiates one package type,
// drives its external inputs for a fixed number of ticks, and checks the
// outputs against per-tick expectations and assertions. Every run is
// recorded into an in-memory store, so assertions can query the samples
// the same way `spaghetti trace` does.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: falling_edge
//	description: "Falling edge fires one tick after the input drops"
//	specs:
//	  - ../specs
//	type: demo/edge
//	ticks: 6
//	inputs:
//	  in: [false, true, true, false, false, true]
//	expect:
//	  pulse: [false, false, false, true, false, false]
//	assertions:
//	  - type: output_at
//	    output: pulse
//	    tick: 4
//	    value: true
//	  - type: count_true
//	    output: pulse
//	    count: 1
//	  - type: sample_count
//	    where: { label: pulse, value: true }
//	    count: 1
//
// Spec paths are directories relative to the scenario file. An input
// list shorter than ticks holds its last value.
//
// # Assertion Types
//
//   - output_at: An output has a value at a given tick
//   - count_true: A bool output is true on exactly N ticks
//   - stable_after: An output never changes from a given tick on
//   - sample_count: Exactly N recorded samples match a where filter
//
// # Deterministic Testing
//
// Ticks are numbered from 1 by the engine clock and the run ID is fixed
// per scenario (scenario.run_id, default "test-run-default"), so the
// same scenario always produces the same samples and trace hash. Golden
// files hold the canonical JSON of the samples.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/falling_edge.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness
