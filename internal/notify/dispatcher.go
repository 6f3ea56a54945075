package notify

import (
	"sync"
	"sync/atomic"
)

const defaultBuffer = 256

type envelope struct {
	userID string
	n      Notification
}

// Dispatcher fans notifications out to sinks from a single worker.
type Dispatcher struct {
	queue  chan envelope
	sinks  []Sink
	logger Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	dropped   atomic.Uint64
	delivered atomic.Uint64
}

// NewDispatcher starts a dispatcher with room for buffer pending
// notifications. A nil logger discards log output.
func NewDispatcher(buffer int, logger Logger, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = noopLogger{}
	}
	d := &Dispatcher{
		queue:  make(chan envelope, buffer),
		sinks:  sinks,
		logger: logger,
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// Notify queues n for userID. It never blocks: a full queue or a closed
// dispatcher drops the notification.
func (d *Dispatcher) Notify(userID string, n Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return
	}

	select {
	case d.queue <- envelope{userID: userID, n: n}:
	default:
		d.dropped.Add(1)
		d.logger.Warn("notification queue full, dropping",
			"user_id", userID, "kind", n.Kind, "title", n.Title)
	}
}

// Close stops accepting notifications, delivers what is queued, and waits
// for the worker to exit. It is safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}

// Dropped returns how many notifications were discarded.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }

// Delivered returns how many notifications reached every sink.
func (d *Dispatcher) Delivered() uint64 { return d.delivered.Load() }

func (d *Dispatcher) run() {
	defer close(d.done)
	for env := range d.queue {
		for _, s := range d.sinks {
			d.deliver(s, env)
		}
		d.delivered.Add(1)
	}
}

func (d *Dispatcher) deliver(s Sink, env envelope) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification sink panic recovered",
				"user_id", env.userID, "panic", r)
		}
	}()
	s.Notify(env.userID, env.n)
}
