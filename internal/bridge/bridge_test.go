package bridge_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/temirov/fmtd/internal/bridge"
)

func uppercaseEngineHandlers() map[string]bridge.Handler {
	return map[string]bridge.Handler{
		bridge.OperationInit: func(ctx context.Context, arguments []any) (any, error) {
			return []string{"json", "css"}, nil
		},
		bridge.OperationCreateWorkspace: func(ctx context.Context, arguments []any) (any, error) {
			return bridge.WorkspaceHandle(7), nil
		},
		bridge.OperationDeleteWorkspace: func(ctx context.Context, arguments []any) (any, error) {
			return nil, nil
		},
		bridge.OperationFormatFile: func(ctx context.Context, arguments []any) (any, error) {
			code := arguments[4].(string)
			return strings.ToUpper(code), nil
		},
		bridge.OperationFormatEmbedded: func(ctx context.Context, arguments []any) (any, error) {
			code := arguments[2].(string)
			return strings.ToUpper(code), nil
		},
	}
}

func TestBridgeRoundTrip(t *testing.T) {
	loop := bridge.NewEventLoop(2, uppercaseEngineHandlers())
	defer loop.Close()
	engine := bridge.New(loop)
	ctx := context.Background()

	languages, initErr := engine.Init(ctx, 1)
	if initErr != nil {
		t.Fatalf("init: %v", initErr)
	}
	if len(languages) != 2 || languages[0] != "json" {
		t.Fatalf("unexpected languages: %v", languages)
	}

	handle, createErr := engine.CreateWorkspace(ctx, "/project")
	if createErr != nil {
		t.Fatalf("create workspace: %v", createErr)
	}
	if handle != 7 {
		t.Fatalf("unexpected handle: %d", handle)
	}

	formatted, formatErr := engine.FormatFile(ctx, handle, json.RawMessage(`{}`), "css", "site.css", "body{}")
	if formatErr != nil {
		t.Fatalf("format file: %v", formatErr)
	}
	if formatted != "BODY{}" {
		t.Fatalf("unexpected formatted output: %q", formatted)
	}

	if deleteErr := engine.DeleteWorkspace(ctx, handle); deleteErr != nil {
		t.Fatalf("delete workspace: %v", deleteErr)
	}
}

func TestEmbeddedFormatterBindsEngineAndOptions(t *testing.T) {
	var receivedOptions json.RawMessage
	var receivedTag string
	handlers := map[string]bridge.Handler{
		bridge.OperationFormatEmbedded: func(ctx context.Context, arguments []any) (any, error) {
			receivedOptions = arguments[0].(json.RawMessage)
			receivedTag = arguments[1].(string)
			code := arguments[2].(string)
			return strings.ToUpper(code), nil
		},
	}
	loop := bridge.NewEventLoop(1, handlers)
	defer loop.Close()
	engine := bridge.New(loop)

	options := json.RawMessage(`{"tabWidth":2}`)
	embedded := bridge.EmbeddedFormatter(context.Background(), engine, options)

	formatted, formatErr := embedded("css", "body{}")
	if formatErr != nil {
		t.Fatalf("embedded format: %v", formatErr)
	}
	if formatted != "BODY{}" {
		t.Fatalf("unexpected embedded output: %q", formatted)
	}
	if string(receivedOptions) != `{"tabWidth":2}` || receivedTag != "css" {
		t.Fatalf("closure did not forward options and tag: %s %q", receivedOptions, receivedTag)
	}
}

func TestBridgeErrorsNameOperationAndIdentifiers(t *testing.T) {
	rejection := errors.New("engine exploded")
	handlers := map[string]bridge.Handler{
		bridge.OperationFormatFile: func(ctx context.Context, arguments []any) (any, error) {
			return nil, rejection
		},
	}
	loop := bridge.NewEventLoop(1, handlers)
	defer loop.Close()
	engine := bridge.New(loop)

	_, formatErr := engine.FormatFile(context.Background(), 3, nil, "yaml", "deploy.yml", "a: 1")
	if formatErr == nil {
		t.Fatalf("expected an error")
	}
	message := formatErr.Error()
	for _, fragment := range []string{bridge.OperationFormatFile, `"deploy.yml"`, `"yaml"`, "engine exploded"} {
		if !strings.Contains(message, fragment) {
			t.Fatalf("error %q missing fragment %q", message, fragment)
		}
	}
	if !errors.Is(formatErr, rejection) {
		t.Fatalf("rejection cause not preserved")
	}
}

func TestBridgeDispatchFailureForUnknownOperation(t *testing.T) {
	loop := bridge.NewEventLoop(1, map[string]bridge.Handler{})
	defer loop.Close()
	engine := bridge.New(loop)

	_, initErr := engine.Init(context.Background(), 1)
	if initErr == nil || !strings.Contains(initErr.Error(), "dispatch") {
		t.Fatalf("expected a dispatch error, got %v", initErr)
	}
}

func TestEventLoopRejectsDispatchAfterClose(t *testing.T) {
	loop := bridge.NewEventLoop(1, uppercaseEngineHandlers())
	loop.Close()

	_, dispatchErr := loop.Dispatch(bridge.Call{Operation: bridge.OperationInit})
	if !errors.Is(dispatchErr, bridge.ErrLoopClosed) {
		t.Fatalf("expected ErrLoopClosed, got %v", dispatchErr)
	}
}

// A handler that awaits another bridge call from inside the loop must not
// starve the single worker slot it occupies.
func TestReentrantBridgeCallDoesNotDeadlock(t *testing.T) {
	var loop *bridge.EventLoop
	var engine *bridge.Bridge

	handlers := map[string]bridge.Handler{
		bridge.OperationFormatEmbedded: func(ctx context.Context, arguments []any) (any, error) {
			code := arguments[2].(string)
			return strings.ToUpper(code), nil
		},
		bridge.OperationFormatFile: func(ctx context.Context, arguments []any) (any, error) {
			// Re-enter the bridge with the handler context so the await
			// yields its slot before blocking.
			return engine.FormatEmbedded(ctx, nil, "script", arguments[4].(string))
		},
	}
	loop = bridge.NewEventLoop(1, handlers)
	defer loop.Close()
	engine = bridge.New(loop)

	type result struct {
		code string
		err  error
	}
	resultChannel := make(chan result, 1)
	go func() {
		code, formatErr := engine.FormatFile(context.Background(), 1, nil, "html", "index.html", "inner")
		resultChannel <- result{code: code, err: formatErr}
	}()

	select {
	case formatted := <-resultChannel:
		if formatted.err != nil {
			t.Fatalf("re-entrant format failed: %v", formatted.err)
		}
		if formatted.code != "INNER" {
			t.Fatalf("unexpected re-entrant result: %q", formatted.code)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("re-entrant bridge call deadlocked")
	}
}

func TestInSchedulerContextDistinguishesLoops(t *testing.T) {
	loop := bridge.NewEventLoop(1, map[string]bridge.Handler{
		bridge.OperationInit: func(ctx context.Context, arguments []any) (any, error) {
			return []string(nil), nil
		},
	})
	defer loop.Close()

	if loop.InSchedulerContext(context.Background()) {
		t.Fatalf("plain context must not count as scheduler context")
	}

	markerChannel := make(chan bool, 1)
	otherLoop := bridge.NewEventLoop(1, map[string]bridge.Handler{
		bridge.OperationInit: func(ctx context.Context, arguments []any) (any, error) {
			markerChannel <- loop.InSchedulerContext(ctx)
			return []string(nil), nil
		},
	})
	defer otherLoop.Close()

	done, dispatchErr := otherLoop.Dispatch(bridge.Call{Operation: bridge.OperationInit})
	if dispatchErr != nil {
		t.Fatalf("dispatch: %v", dispatchErr)
	}
	<-done
	if <-markerChannel {
		t.Fatalf("context from another loop must not count as this loop's scheduler context")
	}
}

func TestNoopFormatter(t *testing.T) {
	var engine bridge.ExternalFormatter = bridge.Noop{}
	ctx := context.Background()

	if _, initErr := engine.Init(ctx, 1); initErr != nil {
		t.Fatalf("noop init must succeed: %v", initErr)
	}
	if _, createErr := engine.CreateWorkspace(ctx, "/project"); !errors.Is(createErr, bridge.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", createErr)
	}
	if deleteErr := engine.DeleteWorkspace(ctx, 1); deleteErr != nil {
		t.Fatalf("noop delete must succeed: %v", deleteErr)
	}
	if _, formatErr := engine.FormatFile(ctx, 1, nil, "json", "a.json", "{}"); !errors.Is(formatErr, bridge.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", formatErr)
	}
}
