package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled bool
	// BufferSize is the number of events held between Emit and the sink.
	BufferSize int
	// DropIfFull makes Emit non-blocking; overflow is counted in Stats.Dropped.
	DropIfFull bool
}

// Stats counts dispatcher outcomes since construction.
type Stats struct {
	Delivered uint64
	Dropped   uint64
	// Panicked counts events whose sink call panicked.
	Panicked uint64
}

// Dispatcher forwards events to a Sink on a single background goroutine so
// that security paths never wait on audit I/O. A nil *Dispatcher is valid and
// discards everything.
type Dispatcher struct {
	cfg    Config
	sink   Sink
	ch     chan Event
	stop   chan struct{}
	// sealed closes once no Emit can still send on ch.
	sealed chan struct{}
	done   chan struct{}

	// emitMu is held shared by Emit across its closed check and send.
	emitMu    sync.RWMutex
	delivered atomic.Uint64
	dropped   atomic.Uint64
	panicked  atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher, or returns nil when cfg.Enabled is false.
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
		cfg:  cfg,
		sink: sink,
		ch:   make(chan Event, cfg.BufferSize),
		stop:   make(chan struct{}),
		sealed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for {
		select {
		case ev := <-d.ch:
			d.deliver(ev)
		case <-d.sealed:
			for {
				select {
				case ev := <-d.ch:
					d.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	defer func() {
		if recover() != nil {
			d.panicked.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), ev)
	d.delivered.Add(1)
}

// Emit queues ev. With DropIfFull it never blocks; otherwise it waits for
// buffer space until ctx is done. Events emitted after Close are dropped.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil {
		return
	}
	d.emitMu.RLock()
	defer d.emitMu.RUnlock()
	if d.closed.Load() {
		d.dropped.Add(1)
		return
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- ev:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.ch <- ev:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
		d.dropped.Add(1)
	}
}

// Close stops accepting events, drains the buffer into the sink and waits for
// the drain to finish or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	if d == nil {
		return nil
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		// Wait out in-flight Emits. Blocked senders leave via stop.
		d.emitMu.Lock()
		close(d.sealed)
		d.emitMu.Unlock()
	})
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns the current counters.
func (d *Dispatcher) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	return Stats{
		Delivered: d.delivered.Load(),
		Dropped:   d.dropped.Load(),
		Panicked:  d.panicked.Load(),
	}
}
