package handler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrWorkerStopped the worker behind a handle has exited
var ErrWorkerStopped = errors.New("worker stopped")

// Handle the send side of a worker's inbox plus a view of its lifecycle.
//
// The server keeps the handle in the mapping entry of the directory. Sending
// requires holding the handle, the worker itself never sees the mapping.
type Handle struct {
	inbox chan Message
	done  chan struct{}
	once  sync.Once
	state atomic.Int32
}

// NewHandle a handle with an inbox of the given capacity
func NewHandle(capacity int) *Handle {
	return &Handle{
		inbox: make(chan Message, capacity),
		done:  make(chan struct{}),
	}
}

// Send delivers msg to the worker.
//
// It blocks while the inbox is full, until the worker drains it, exits, or ctx
// is done.
func (h *Handle) Send(ctx context.Context, msg Message) error {
	select {
	case <-h.done:
		return ErrWorkerStopped
	default:
	}
	select {
	case h.inbox <- msg:
		return nil
	case <-h.done:
		return ErrWorkerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop asks the worker to exit without waiting for it to do so.
//
// A stop is never dropped. When ctx ends while the inbox is full, delivery
// carries on in the background until the worker takes the message or exits.
func (h *Handle) Stop(ctx context.Context) error {
	err := h.Send(ctx, StopMessage{})
	if err == nil || errors.Is(err, ErrWorkerStopped) {
		return err
	}
	go func() {
		_ = h.Send(context.Background(), StopMessage{})
	}()
	return nil
}

// Trace subscribes to the worker's outcomes. The returned channel is closed
// when ctx is done or the worker exits.
func (h *Handle) Trace(ctx context.Context) (<-chan TraceRecord, error) {
	sink := NewTraceSink(ctx)
	if err := h.Send(ctx, TraceMessage{Sink: sink}); err != nil {
		return nil, err
	}

	out := make(chan TraceRecord)
	go func() {
		defer close(out)
		for {
			select {
			case record, ok := <-sink.Records():
				if !ok {
					return
				}
				select {
				case out <- record:
				case <-ctx.Done():
					return
				}
			case <-h.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Alive the worker has not exited yet
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Done closed once the worker has exited
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the worker exits or ctx is done
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State the current lifecycle state of the worker
func (h *Handle) State() State {
	return State(h.state.Load())
}

func (h *Handle) setState(s State) {
	h.state.Store(int32(s))
}

func (h *Handle) finish() {
	h.once.Do(func() {
		h.setState(Terminated)
		close(h.done)
	})
}
