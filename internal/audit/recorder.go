package audit

import (
	"context"
	"sync"
	"time"
)

// Recorder defaults.
const (
	// DefaultFlushInterval matches the hourly archival cadence the
	// deployment runs on. Overridable in config for testing.
	DefaultFlushInterval = time.Hour

	// maxBuffered forces a flush when the buffer grows past this size,
	// so a busy hour cannot hold an unbounded backlog in memory.
	maxBuffered = 500

	// flushTimeout bounds a single flush against a stuck database.
	flushTimeout = 10 * time.Second
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder buffers audit entries in memory and flushes them to the
// repository on an interval and at shutdown.
//
// Record never blocks on the database, so audit writes stay off the
// request path. The cost is a durability window: entries buffered since
// the last flush are lost on a crash. Failed flushes keep their entries
// for the next attempt.
type Recorder struct {
	repo     Repository
	interval time.Duration
	logger   Logger

	mu      sync.Mutex
	pending []Entry

	flushNow chan struct{}
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  bool
}

// NewRecorder creates a recorder flushing to repo.
// An interval <= 0 falls back to the default.
func NewRecorder(repo Repository, interval time.Duration) *Recorder {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Recorder{
		repo:     repo,
		interval: interval,
		logger:   noopLogger{},
		flushNow: make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Start launches the background flush loop.
func (r *Recorder) Start(ctx context.Context) {
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()
	go r.loop(ctx)
}

// Record buffers one audit entry. Generated fields are stamped at
// record time, not flush time, so timestamps reflect the event.
func (r *Recorder) Record(entry Entry) {
	fillEntry(&entry)

	r.mu.Lock()
	r.pending = append(r.pending, entry)
	overflow := len(r.pending) >= maxBuffered
	r.mu.Unlock()

	if overflow {
		select {
		case r.flushNow <- struct{}{}:
		default:
		}
	}
}

// Info records an info-level entry for the given user and action.
func (r *Recorder) Info(userID, action string) {
	r.Record(Entry{Level: LevelInfo, UserID: userID, Action: action})
}

// Warning records a warning-level entry for the given user and action.
func (r *Recorder) Warning(userID, action string) {
	r.Record(Entry{Level: LevelWarning, UserID: userID, Action: action})
}

// Pending returns the number of buffered entries awaiting flush.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Flush writes all buffered entries to the repository.
// On failure the entries are requeued ahead of anything recorded since.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := r.repo.CreateBatch(ctx, batch); err != nil {
		r.mu.Lock()
		r.pending = append(batch, r.pending...)
		r.mu.Unlock()
		r.logger.Error("audit flush failed, entries retained", "count", len(batch), "error", err)
		return err
	}

	r.logger.Debug("audit entries flushed", "count", len(batch))
	return nil
}

// loop flushes on the interval, on overflow signals, and once more on
// shutdown.
func (r *Recorder) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.finalFlush()
			return
		case <-r.stop:
			r.finalFlush()
			return
		case <-ticker.C:
			r.Flush(ctx) //nolint:errcheck // logged inside, entries retained
		case <-r.flushNow:
			r.Flush(ctx) //nolint:errcheck // logged inside, entries retained
		}
	}
}

// finalFlush drains the buffer with a fresh context; the loop context
// is usually already cancelled at shutdown.
func (r *Recorder) finalFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	r.Flush(ctx) //nolint:errcheck // logged inside, best effort at shutdown
}

// Close stops the flush loop after a final drain. Safe to call whether
// or not Start ran.
func (r *Recorder) Close() error {
	r.stopOnce.Do(func() {
		close(r.stop)
	})

	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if started {
		<-r.done
	} else {
		r.finalFlush()
	}
	return nil
}
