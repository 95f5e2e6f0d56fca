// Package exitcode defines the orchestrator's exit-code contract (§4.7,
// §6 "Exit code vocabulary").
package exitcode

const (
	// Results means hits were emitted.
	Results = 0
	// NoMatches means the query produced no hits, including a
	// known-miss cache outcome.
	NoMatches = 1
	// ArgError means argument validation failed. Owned by the external
	// arg parser (cobra); the orchestrator itself never returns this
	// from its own logic, but the CLI layer maps flag errors to it.
	ArgError = 2
	// PermissionReserved is reserved for a future permission-denied
	// classification; no current path returns it.
	PermissionReserved = 3
	// Internal means an unexpected invariant violation was caught at
	// the orchestrator boundary (recovered panic or internal error).
	Internal = 4
)
