package bridge

import (
	"context"
	"encoding/json"
	"fmt"
)

// WorkspaceHandle identifies one external-engine session scoped to a project
// root. The value is opaque; only the engine interprets it.
type WorkspaceHandle uint32

// ExternalFormatter exposes the external engine's five operations as blocking
// result-or-error calls. Implementations never retry; a failed init is a
// permanent "engine unavailable" signal for the owning orchestrator.
type ExternalFormatter interface {
	Init(ctx context.Context, threadCount int) ([]string, error)
	CreateWorkspace(ctx context.Context, directory string) (WorkspaceHandle, error)
	DeleteWorkspace(ctx context.Context, handle WorkspaceHandle) error
	FormatFile(ctx context.Context, handle WorkspaceHandle, options json.RawMessage, engineName, fileName, code string) (string, error)
	FormatEmbedded(ctx context.Context, options json.RawMessage, tagName, code string) (string, error)
}

// Bridge turns a Runtime's promise-style dispatch into synchronous calls.
type Bridge struct {
	runtime Runtime
}

// New wraps the supplied runtime.
func New(runtime Runtime) *Bridge {
	return &Bridge{runtime: runtime}
}

var _ ExternalFormatter = (*Bridge)(nil)

// await dispatches one call and blocks until it settles. When the caller is
// already executing inside the runtime's scheduler, waiting directly would
// starve the scheduler the awaited call depends on, so the wait happens
// inside a blocking section instead.
func (bridge *Bridge) await(ctx context.Context, call Call) (any, error) {
	done, dispatchErr := bridge.runtime.Dispatch(call)
	if dispatchErr != nil {
		return nil, fmt.Errorf("dispatch %s to external engine: %w", call.Operation, dispatchErr)
	}

	var outcome Outcome
	if bridge.runtime.InSchedulerContext(ctx) {
		bridge.runtime.BlockingSection(func() { outcome = <-done })
	} else {
		outcome = <-done
	}
	return outcome.Value, outcome.Err
}

// Init starts the external engine with the given worker count and returns the
// language identifiers it supports.
func (bridge *Bridge) Init(ctx context.Context, threadCount int) ([]string, error) {
	value, callErr := bridge.await(ctx, Call{Operation: OperationInit, Arguments: []any{threadCount}})
	if callErr != nil {
		return nil, fmt.Errorf("external engine %s failed: %w", OperationInit, callErr)
	}
	languages, convertible := value.([]string)
	if !convertible {
		return nil, fmt.Errorf("external engine %s returned unexpected value of type %T", OperationInit, value)
	}
	return languages, nil
}

// CreateWorkspace opens an engine session for the given project directory.
func (bridge *Bridge) CreateWorkspace(ctx context.Context, directory string) (WorkspaceHandle, error) {
	value, callErr := bridge.await(ctx, Call{Operation: OperationCreateWorkspace, Arguments: []any{directory}})
	if callErr != nil {
		return 0, fmt.Errorf("external engine %s failed for directory %q: %w", OperationCreateWorkspace, directory, callErr)
	}
	handle, convertible := value.(WorkspaceHandle)
	if !convertible {
		return 0, fmt.Errorf("external engine %s returned unexpected value of type %T", OperationCreateWorkspace, value)
	}
	return handle, nil
}

// DeleteWorkspace closes a previously created engine session.
func (bridge *Bridge) DeleteWorkspace(ctx context.Context, handle WorkspaceHandle) error {
	_, callErr := bridge.await(ctx, Call{Operation: OperationDeleteWorkspace, Arguments: []any{handle}})
	if callErr != nil {
		return fmt.Errorf("external engine %s failed for workspace %d: %w", OperationDeleteWorkspace, handle, callErr)
	}
	return nil
}

// FormatFile formats one file inside an engine workspace.
func (bridge *Bridge) FormatFile(ctx context.Context, handle WorkspaceHandle, options json.RawMessage, engineName, fileName, code string) (string, error) {
	value, callErr := bridge.await(ctx, Call{
		Operation: OperationFormatFile,
		Arguments: []any{handle, options, engineName, fileName, code},
	})
	if callErr != nil {
		return "", fmt.Errorf("external engine %s failed for file %q, engine %q: %w", OperationFormatFile, fileName, engineName, callErr)
	}
	formatted, convertible := value.(string)
	if !convertible {
		return "", fmt.Errorf("external engine %s returned unexpected value of type %T", OperationFormatFile, value)
	}
	return formatted, nil
}

// FormatEmbedded formats an embedded code fragment identified by its tag.
func (bridge *Bridge) FormatEmbedded(ctx context.Context, options json.RawMessage, tagName, code string) (string, error) {
	value, callErr := bridge.await(ctx, Call{
		Operation: OperationFormatEmbedded,
		Arguments: []any{options, tagName, code},
	})
	if callErr != nil {
		return "", fmt.Errorf("external engine %s failed for tag %q: %w", OperationFormatEmbedded, tagName, callErr)
	}
	formatted, convertible := value.(string)
	if !convertible {
		return "", fmt.Errorf("external engine %s returned unexpected value of type %T", OperationFormatEmbedded, value)
	}
	return formatted, nil
}

// EmbeddedFormatterFunc formats an embedded fragment by tag name.
type EmbeddedFormatterFunc func(tagName, code string) (string, error)

// EmbeddedFormatter captures the resolved options so the native engine can
// format embedded fragments without knowing about the bridge.
func EmbeddedFormatter(ctx context.Context, formatter ExternalFormatter, options json.RawMessage) EmbeddedFormatterFunc {
	return func(tagName, code string) (string, error) {
		return formatter.FormatEmbedded(ctx, options, tagName, code)
	}
}
