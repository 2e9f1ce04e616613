// Package engine runs plans.
//
// A run goes through four phases, each over the whole plan before the
// next starts:
//
//	Load      resolve every step type in the registry
//	Validate  bind arguments, construct steps, check that every store
//	          reference is produced by an earlier step
//	Dry       run each step's DryRun on a scratch store, which declares
//	          output types and shapes without computing anything
//	Real      construct fresh step instances and Run them on the
//	          caller's store
//
// Any error before the real phase aborts the run before any computation.
// In the real phase a failing step aborts the remaining steps unless the
// plan marks it fallible, in which case the failure is logged and
// recorded and the run continues. A step returning step.ErrStop ends the
// current phase successfully.
//
// Steps run strictly in plan order on the calling goroutine. An Engine
// holds no per-run state and may run several plans one after another;
// concurrent runs must use separate value stores.
//
// Every run produces a Report. When a journal is configured each step
// outcome and the final store content are written to it, and when a
// tracer is configured each phase and step gets a span.
package engine
