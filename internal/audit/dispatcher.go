package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking the emitter when the buffer is full.
	DropIfFull bool
	// Retain lists event types that are never dropped. With DropIfFull they wait for
	// buffer space like in blocking mode, bounded by the emitter's context.
	Retain []string
}

// envelope is either an event or a flush marker.
type envelope struct {
	event   Event
	flushed chan struct{}
}

// Dispatcher asynchronously forwards audit events to a sink.
//
// Events are delivered in emission order by a single goroutine. A panicking sink loses
// only the event it panicked on.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	retain     map[string]struct{}

	queue   chan envelope
	stop    chan struct{}
	stopped chan struct{}

	dropped   atomic.Uint64
	failed    atomic.Uint64
	delivered atomic.Uint64
	closing   atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts the delivery goroutine. It returns nil when cfg is disabled; a
// nil *Dispatcher accepts every call and does nothing.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		retain:     make(map[string]struct{}, len(cfg.Retain)),
		queue:      make(chan envelope, cfg.BufferSize),
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	for _, t := range cfg.Retain {
		d.retain[t] = struct{}{}
	}

	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.stopped)

	for {
		select {
		case env := <-d.queue:
			d.handle(env)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

// drain delivers whatever is buffered at shutdown.
func (d *Dispatcher) drain() {
	for {
		select {
		case env := <-d.queue:
			d.handle(env)
		default:
			return
		}
	}
}

func (d *Dispatcher) handle(env envelope) {
	if env.flushed != nil {
		close(env.flushed)
		return
	}
	d.deliver(env.event)
}

func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if recover() != nil {
			d.failed.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), event)
	d.delivered.Add(1)
}

// Emit queues event. It never blocks in drop mode unless event.EventType is retained;
// otherwise it waits for buffer space until ctx is done or the dispatcher closes.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closing.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	env := envelope{event: event}
	if d.dropIfFull && !d.retained(event.EventType) {
		select {
		case d.queue <- env:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- env:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
	}
}

func (d *Dispatcher) retained(eventType string) bool {
	_, ok := d.retain[eventType]
	return ok
}

// Flush waits until every event queued before the call has reached the sink.
func (d *Dispatcher) Flush(ctx context.Context) error {
	if d == nil {
		return nil
	}
	marker := envelope{flushed: make(chan struct{})}
	select {
	case d.queue <- marker:
	case <-d.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-marker.flushed:
		return nil
	case <-d.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events and waits for the buffer to drain.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closing.Store(true)
		close(d.stop)
	})
	<-d.stopped
}

// Dropped counts events lost to a full buffer or an expired emitter context.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Failed counts events whose sink panicked.
func (d *Dispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}

// Delivered counts events the sink accepted.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
