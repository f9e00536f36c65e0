package bridge

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotConfigured is reported by the no-op formatter's workspace and format
// operations.
var ErrNotConfigured = errors.New("external formatting engine not configured")

// Noop is an ExternalFormatter for deployments without an external engine:
// init and teardown succeed, everything else reports the engine as missing.
type Noop struct{}

var _ ExternalFormatter = Noop{}

// Init reports an empty language set.
func (Noop) Init(context.Context, int) ([]string, error) {
	return nil, nil
}

// CreateWorkspace always fails, keeping the external path disabled.
func (Noop) CreateWorkspace(context.Context, string) (WorkspaceHandle, error) {
	return 0, ErrNotConfigured
}

// DeleteWorkspace succeeds so teardown never fails.
func (Noop) DeleteWorkspace(context.Context, WorkspaceHandle) error {
	return nil
}

// FormatFile always fails.
func (Noop) FormatFile(context.Context, WorkspaceHandle, json.RawMessage, string, string, string) (string, error) {
	return "", ErrNotConfigured
}

// FormatEmbedded always fails.
func (Noop) FormatEmbedded(context.Context, json.RawMessage, string, string) (string, error) {
	return "", ErrNotConfigured
}
