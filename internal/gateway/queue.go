package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// commandQueue is a bounded FIFO with context-aware operations. Safe for
// concurrent producers; the owner loop is its only consumer.
type commandQueue struct {
	ch      chan Command
	closeMu sync.Mutex
	closed  bool
}

func newCommandQueue(capacity int) *commandQueue {
	return &commandQueue{
		ch: make(chan Command, capacity),
	}
}

// Enqueue pushes a command or returns if the context ends first.
func (q *commandQueue) Enqueue(ctx context.Context, cmd Command) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- cmd:
		return nil
	}
}

// Dequeue pops the next command, respecting context cancellation.
func (q *commandQueue) Dequeue(ctx context.Context) (Command, error) {
	select {
	case <-ctx.Done():
		return Command{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case cmd, ok := <-q.ch:
		if !ok {
			return Command{}, errors.New("queue closed")
		}
		return cmd, nil
	}
}

// Close closes the underlying channel for shutdown.
func (q *commandQueue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
