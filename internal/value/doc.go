// Package value provides the name-keyed registry of typed values shared by
// the steps of one pipeline run.
//
// A Store maps names to Values. Every Value moves through lifecycle stages:
//
//	Mentioned -> Declared -> Allocated -> Freed
//
// Mentioned values are names without a type. Declared values carry the type
// and shape a dry run promised to produce, without any payload. Allocated
// values own a real payload. Freed values keep their name and metadata but
// their payload has been released.
//
// Key constraints:
//   - Addressing is always by name, never by insertion order or id
//   - A payload is never reinterpreted as another type: Get with the wrong
//     type fails with ErrTypeMismatch
//   - Ids are process-unique and strictly increasing, used only for
//     debugging and deduplication
//
// A Store is owned by a single run. It is not safe for concurrent mutation;
// the engine only touches it between steps.
package value
