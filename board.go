package whiteboard

import (
	"context"
	"errors"
)

var ErrBoardStopped = errors.New("whiteboard: board loop stopped")

// Board owns the graph, the interaction controller and the session history,
// and serialises every access to them through a single loop goroutine.
// Handlers run to completion before the next one is dispatched, so
// mutations are linearizable without locks.
type Board struct {
	Graph      *Graph
	Controller *Controller
	History    *History

	ops     chan func()
	stopped chan struct{}
}

// NewBoard returns an empty board for a canvas of the given screen size.
// Call Run before Do or Post.
func NewBoard(canvas Size) *Board {
	g := NewGraph()
	return &Board{
		Graph:      g,
		Controller: NewController(g, canvas),
		History:    NewHistory(),
		ops:        make(chan func()),
		stopped:    make(chan struct{}),
	}
}

// Run dispatches queued handlers until ctx is cancelled.
func (b *Board) Run(ctx context.Context) error {
	defer close(b.stopped)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-b.ops:
			fn()
		}
	}
}

// Do runs fn on the loop and waits for it to finish.
func (b *Board) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	op := func() {
		defer close(done)
		fn()
	}
	select {
	case b.ops <- op:
	case <-ctx.Done():
		return ctx.Err()
	case <-b.stopped:
		return ErrBoardStopped
	}
	<-done
	return nil
}

// Post queues fn on the loop without waiting for it to run. It is how
// finished background work re-enters the loop. Posts after shutdown are
// dropped.
func (b *Board) Post(fn func()) {
	select {
	case b.ops <- fn:
	case <-b.stopped:
	}
}

// Snapshot copies the full board state. Call it from the loop.
func (b *Board) Snapshot() Snapshot {
	return Snapshot{
		Nodes:       b.Graph.Nodes(),
		Connections: b.Graph.Connections(),
		Viewport:    b.Controller.Viewport(),
		State:       b.Controller.State(),
		History:     b.History.Items(),
	}
}
