// Package bridge adapts the external formatting engine's asynchronous,
// promise-style runtime into plain synchronous calls.
package bridge

import "context"

// Operation names for the five calls the external engine understands.
const (
	OperationInit            = "initExternalFormatter"
	OperationFormatEmbedded  = "formatEmbedded"
	OperationFormatFile      = "formatFile"
	OperationCreateWorkspace = "createWorkspace"
	OperationDeleteWorkspace = "deleteWorkspace"
)

// Call names one operation crossing the runtime boundary together with its
// positional arguments.
type Call struct {
	Operation string
	Arguments []any
}

// Outcome carries the settled value of a dispatched call: exactly one of
// Value or Err is meaningful.
type Outcome struct {
	Value any
	Err   error
}

// Runtime is the seam to the foreign scheduler that owns the external engine.
// Dispatch enqueues a call and returns a channel that receives exactly one
// outcome. InSchedulerContext reports whether the supplied context is
// executing on one of the scheduler's own workers; callers in that position
// must wait inside BlockingSection, which releases the worker slot for the
// duration of wait so the scheduler can keep running the very call being
// awaited.
type Runtime interface {
	Dispatch(call Call) (<-chan Outcome, error)
	InSchedulerContext(ctx context.Context) bool
	BlockingSection(wait func())
}
