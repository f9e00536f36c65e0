// Package workspace manages the external engine session held for one project
// root.
package workspace

import (
	"context"

	"go.uber.org/zap"

	"github.com/temirov/fmtd/internal/bridge"
)

// State tracks the registry lifecycle.
type State int

const (
	// StateUninitialized is the zero state before engine init runs.
	StateUninitialized State = iota
	// StateActive means a live workspace handle is held.
	StateActive
	// StateDisabled means init or workspace creation failed; the external
	// path stays unavailable for the registry's lifetime, with no retry.
	StateDisabled
	// StateTornDown means the workspace has been deleted.
	StateTornDown
)

// Registry owns the single workspace handle created for a project root. It is
// the only component permitted to delete the handle.
type Registry struct {
	engine       bridge.ExternalFormatter
	logger       *zap.Logger
	currentState State
	handle       bridge.WorkspaceHandle
	languages    []string
}

// NewRegistry initializes the external engine and creates the project
// workspace. Any init or creation failure permanently disables the external
// path for this registry.
func NewRegistry(ctx context.Context, engine bridge.ExternalFormatter, rootDirectory string, threadCount int, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := &Registry{engine: engine, logger: logger, currentState: StateUninitialized}
	if engine == nil {
		registry.currentState = StateDisabled
		return registry
	}

	languages, initErr := engine.Init(ctx, threadCount)
	if initErr != nil {
		logger.Debug("external engine initialization failed, external path disabled",
			zap.Error(initErr))
		registry.currentState = StateDisabled
		return registry
	}

	handle, createErr := engine.CreateWorkspace(ctx, rootDirectory)
	if createErr != nil {
		logger.Debug("external engine workspace creation failed, external path disabled",
			zap.String("directory", rootDirectory), zap.Error(createErr))
		registry.currentState = StateDisabled
		return registry
	}

	registry.languages = languages
	registry.handle = handle
	registry.currentState = StateActive
	return registry
}

// State reports the current lifecycle state.
func (registry *Registry) State() State {
	return registry.currentState
}

// Active reports whether the external path is available.
func (registry *Registry) Active() bool {
	return registry.currentState == StateActive
}

// Handle returns the live workspace handle. The second value is false unless
// the registry is active.
func (registry *Registry) Handle() (bridge.WorkspaceHandle, bool) {
	if registry.currentState != StateActive {
		return 0, false
	}
	return registry.handle, true
}

// Languages returns the engine names reported by init.
func (registry *Registry) Languages() []string {
	return registry.languages
}

// Close deletes the workspace when one is held. Deletion failures are logged,
// never returned: teardown must always complete.
func (registry *Registry) Close(ctx context.Context) {
	if registry.currentState != StateActive {
		return
	}
	if deleteErr := registry.engine.DeleteWorkspace(ctx, registry.handle); deleteErr != nil {
		registry.logger.Debug("external engine workspace deletion failed",
			zap.Uint32("workspace", uint32(registry.handle)), zap.Error(deleteErr))
	}
	registry.currentState = StateTornDown
}
