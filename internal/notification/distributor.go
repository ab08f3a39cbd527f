package notification

import (
	"context"
	"sync"
	"time"
)

// Distributor defaults.
const (
	// DefaultPollInterval matches the original gateway's 5-second resend tick.
	DefaultPollInterval = 5 * time.Second

	// DefaultBufferSize is the per-subscription snapshot buffer.
	DefaultBufferSize = 8
)

// Distributor serves each subscriber a continuous feed of the
// notification collection.
//
// Wire contract (kept for client compatibility): every tick each
// subscriber receives the FULL current collection in store order, not a
// delta. Internally each session reads a cheap in-memory snapshot
// rather than re-reading the persisted document.
//
// Sessions are fully independent: each has its own goroutine and a
// bounded snapshot buffer, so a slow or stalled client drops ticks
// instead of blocking the store or other subscribers.
type Distributor struct {
	store    *Store
	interval time.Duration
	buffer   int
	logger   Logger

	mu       sync.Mutex
	sessions map[*Subscription]struct{}
}

// Subscription is one live feed session. It stays open until the
// subscriber's context is cancelled (client disconnect) or the
// distributor shuts down.
type Subscription struct {
	snapshots chan []Record
	done      chan struct{}
	closeOnce sync.Once
}

// NewDistributor creates a distributor over the given store.
// interval or buffer values <= 0 fall back to the defaults.
func NewDistributor(store *Store, interval time.Duration, buffer int) *Distributor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	return &Distributor{
		store:    store,
		interval: interval,
		buffer:   buffer,
		logger:   noopLogger{},
		sessions: make(map[*Subscription]struct{}),
	}
}

// SetLogger sets the logger for the distributor.
func (d *Distributor) SetLogger(logger Logger) {
	d.logger = logger
}

// Subscribe opens a new independent feed session.
//
// The first snapshot is emitted immediately (a subscriber arriving when
// N records exist sees all N on its first event), then one snapshot per
// tick. Cancelling ctx ends the session within one tick and the
// snapshot channel is closed; no goroutine outlives its subscriber.
func (d *Distributor) Subscribe(ctx context.Context) *Subscription {
	sub := &Subscription{
		snapshots: make(chan []Record, d.buffer),
		done:      make(chan struct{}),
	}

	d.mu.Lock()
	d.sessions[sub] = struct{}{}
	d.mu.Unlock()

	go d.run(ctx, sub)
	return sub
}

// run is the per-session poll loop.
func (d *Distributor) run(ctx context.Context, sub *Subscription) {
	defer func() {
		d.mu.Lock()
		delete(d.sessions, sub)
		d.mu.Unlock()
		sub.close()
	}()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	// Immediate first snapshot, then one per tick.
	d.emit(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case <-ticker.C:
			d.emit(sub)
		}
	}
}

// emit sends the current full collection to the subscriber, dropping the
// tick if its buffer is full.
func (d *Distributor) emit(sub *Subscription) {
	snapshot := d.store.ReadAll()
	select {
	case sub.snapshots <- snapshot:
	default:
		// Subscriber is not draining; skip this tick rather than block.
		d.logger.Debug("slow subscriber, snapshot dropped", "records", len(snapshot))
	}
}

// SessionCount returns the number of open sessions.
func (d *Distributor) SessionCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

// Snapshots returns the channel of full-collection snapshots.
// The channel is closed when the session ends.
func (s *Subscription) Snapshots() <-chan []Record {
	return s.snapshots
}

// Close ends the session early. Safe to call multiple times and
// concurrently with the session loop.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// close releases the snapshot channel. Called only from the session
// goroutine after it has stopped emitting.
func (s *Subscription) close() {
	s.Close()
	close(s.snapshots)
}
