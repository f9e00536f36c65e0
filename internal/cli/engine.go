package cli

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/temirov/fmtd/internal/bridge"
	"github.com/temirov/fmtd/internal/strategy"
)

const passthroughLoopSlotCount = 4

var errMalformedEngineCall = errors.New("malformed engine call")

// newPassthroughEngine wires an in-process engine over the bridge event loop.
// It claims every recognized engine name but returns code unchanged, so the
// one-shot command still performs manifest sorting and final-newline policy
// without an external formatting engine attached.
func newPassthroughEngine() (bridge.ExternalFormatter, func()) {
	var handleCounter atomic.Uint32

	handlers := map[string]bridge.Handler{
		bridge.OperationInit: func(context.Context, []any) (any, error) {
			var engineNames []string
			for engineName := range strategy.DefaultEngineSet() {
				engineNames = append(engineNames, engineName)
			}
			return engineNames, nil
		},
		bridge.OperationCreateWorkspace: func(context.Context, []any) (any, error) {
			return bridge.WorkspaceHandle(handleCounter.Add(1)), nil
		},
		bridge.OperationDeleteWorkspace: func(context.Context, []any) (any, error) {
			return nil, nil
		},
		bridge.OperationFormatFile: func(_ context.Context, arguments []any) (any, error) {
			if len(arguments) != 5 {
				return nil, errMalformedEngineCall
			}
			code, convertible := arguments[4].(string)
			if !convertible {
				return nil, errMalformedEngineCall
			}
			return code, nil
		},
		bridge.OperationFormatEmbedded: func(_ context.Context, arguments []any) (any, error) {
			if len(arguments) != 3 {
				return nil, errMalformedEngineCall
			}
			code, convertible := arguments[2].(string)
			if !convertible {
				return nil, errMalformedEngineCall
			}
			return code, nil
		},
	}

	loop := bridge.NewEventLoop(passthroughLoopSlotCount, handlers)
	return bridge.New(loop), loop.Close
}
