package engine

import (
	"sync"

	"github.com/roach88/spaghetti/internal/circuit"
)

// Command is a graph mutation submitted from outside the tick loop, e.g.
// an editor adding an element while the simulation runs. Commands are
// applied in FIFO order at the start of the next tick, never mid-tick.
type Command struct {
	// Name identifies the command in logs and errors.
	Name string

	// Apply performs the mutation. A returned error is reported in the
	// TickResult and does not stop the tick.
	Apply func(p *circuit.Package) error
}

// commandQueue is a thread-safe FIFO of pending commands.
//
// The queue is unbounded so editors never block on a slow host loop.
// The signal channel closes when the queue closes, which lets Run select
// on it next to its ticker.
type commandQueue struct {
	mu       sync.Mutex
	commands []Command
	closed   bool
	signal   chan struct{}
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		commands: make([]Command, 0, 16),
		signal:   make(chan struct{}),
	}
}

// Enqueue appends a command. Returns false once the queue is closed.
func (q *commandQueue) Enqueue(c Command) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.commands = append(q.commands, c)
	return true
}

// Drain removes and returns every pending command in order.
func (q *commandQueue) Drain() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.commands) == 0 {
		return nil
	}
	out := q.commands
	// Fresh backing array so drained commands (and the packages their
	// closures capture) can be collected.
	q.commands = make([]Command, 0, cap(out))
	return out
}

// Len returns the number of pending commands.
func (q *commandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.commands)
}

// Done returns a channel that is closed when the queue closes.
func (q *commandQueue) Done() <-chan struct{} {
	return q.signal
}

// Close stops accepting commands. Pending commands are still drained by
// the next tick. Closing twice is a no-op.
func (q *commandQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
