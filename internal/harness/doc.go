// Package harness runs conformance scenarios against the engine.
//
// A scenario is a YAML file holding a plan, inline or by path, and the
// expected outcome:
//
//	name: unknown-step
//	description: An unregistered step type fails at load.
//	plan:
//	  - name: ZeroTensor
//	    out: {Result: Z}
//	  - name: DoesNotExist
//	expect:
//	  error: {kind: UnknownStepType, phase: load, step: 2}
//
// Each scenario runs on a fresh value store with a fixed run id, so its
// report is reproducible. RunWithGolden additionally compares the report
// against testdata/golden/<name>.golden.
package harness
