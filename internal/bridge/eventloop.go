package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Handler executes one operation on behalf of the external engine. The
// supplied context marks the handler as running inside the loop's scheduler,
// which re-entrant bridge calls rely on.
type Handler func(ctx context.Context, arguments []any) (any, error)

// ErrLoopClosed is returned by Dispatch after Close.
var ErrLoopClosed = errors.New("bridge: event loop closed")

type loopMarkerKey struct{}

// EventLoop is a bounded cooperative scheduler running operation handlers on
// a fixed number of worker slots. It implements Runtime: handlers that need
// to await further loop calls must do so through Bridge, which releases their
// slot via BlockingSection so the loop cannot starve itself.
type EventLoop struct {
	handlers map[string]Handler
	slots    *semaphore.Weighted
	closed   atomic.Bool
}

var _ Runtime = (*EventLoop)(nil)

// NewEventLoop creates a loop with the given number of worker slots and an
// operation handler table. Slot counts below one are raised to one.
func NewEventLoop(slotCount int64, handlers map[string]Handler) *EventLoop {
	if slotCount < 1 {
		slotCount = 1
	}
	handlerTable := make(map[string]Handler, len(handlers))
	for operation, handler := range handlers {
		handlerTable[operation] = handler
	}
	return &EventLoop{
		handlers: handlerTable,
		slots:    semaphore.NewWeighted(slotCount),
	}
}

// Dispatch enqueues a call and returns a buffered channel that receives its
// outcome once a worker slot has run the handler.
func (loop *EventLoop) Dispatch(call Call) (<-chan Outcome, error) {
	if loop.closed.Load() {
		return nil, ErrLoopClosed
	}
	handler, registered := loop.handlers[call.Operation]
	if !registered {
		return nil, fmt.Errorf("no handler registered for operation %s", call.Operation)
	}

	done := make(chan Outcome, 1)
	go func() {
		if acquireErr := loop.slots.Acquire(context.Background(), 1); acquireErr != nil {
			done <- Outcome{Err: acquireErr}
			return
		}
		defer loop.slots.Release(1)
		handlerCtx := context.WithValue(context.Background(), loopMarkerKey{}, loop)
		value, handlerErr := handler(handlerCtx, call.Arguments)
		done <- Outcome{Value: value, Err: handlerErr}
	}()
	return done, nil
}

// InSchedulerContext reports whether the context was produced by this loop
// for one of its handlers.
func (loop *EventLoop) InSchedulerContext(ctx context.Context) bool {
	marker, _ := ctx.Value(loopMarkerKey{}).(*EventLoop)
	return marker == loop
}

// BlockingSection releases the caller's worker slot while wait runs, then
// reacquires it. Without the release, a handler awaiting another loop call
// would hold the slot that call needs.
func (loop *EventLoop) BlockingSection(wait func()) {
	loop.slots.Release(1)
	defer func() {
		_ = loop.slots.Acquire(context.Background(), 1)
	}()
	wait()
}

// Close rejects further dispatches. In-flight handlers run to completion.
func (loop *EventLoop) Close() {
	loop.closed.Store(true)
}
