package patch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/protoreview/internal/metrics"
)

var (
	ErrQueueFull = errors.New("edit queue is full")
	ErrStopped   = errors.New("dispatcher stopped")
)

// DispatcherConfig sizes the worker pool and retry schedule.
type DispatcherConfig struct {
	Workers         int
	QueueSize       int
	RetryBase       time.Duration
	RetryMax        time.Duration
	CleanupInterval time.Duration
}

type job struct {
	id      string
	session string
	intent  Intent
	done    func(Notification)
}

// Dispatcher applies edits asynchronously. Submit returns at once; a worker
// applies the edit, retrying retryable failures, and reports the outcome as
// a notification and through the submitter's callback. Edits are not ordered
// relative to each other.
type Dispatcher struct {
	svc   *Service
	notes *Notifications
	cfg   DispatcherConfig
	log   *slog.Logger

	mu     sync.Mutex
	queue  chan *job
	closed bool

	cancel  context.CancelFunc
	workers sync.WaitGroup
	janitor sync.WaitGroup
}

func NewDispatcher(svc *Service, notes *Notifications, cfg DispatcherConfig, log *slog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 30 * time.Second
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	return &Dispatcher{
		svc:   svc,
		notes: notes,
		cfg:   cfg,
		log:   log,
		queue: make(chan *job, cfg.QueueSize),
	}
}

// Start launches worker goroutines.
func (d *Dispatcher) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	for range d.cfg.Workers {
		d.workers.Add(1)
		go func() {
			defer d.workers.Done()
			for j := range d.queue {
				metrics.EditQueueDepth.Set(float64(len(d.queue)))
				d.process(workerCtx, j)
			}
		}()
	}

	d.janitor.Add(1)
	go func() {
		defer d.janitor.Done()
		ticker := time.NewTicker(d.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				if n := d.notes.Cleanup(); n > 0 {
					d.log.Debug("expired notifications", "count", n)
				}
			}
		}
	}()
}

// Stop refuses new edits, lets workers drain the queue and then shuts down.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.workers.Wait()
	if d.cancel != nil {
		d.cancel()
	}
	d.janitor.Wait()
}

// Submit queues an edit for session and returns its ID. done, when non-nil,
// is called once from a worker goroutine with the final notification. A
// rejected edit gets neither an ID nor a callback.
func (d *Dispatcher) Submit(session string, in Intent, done func(Notification)) (string, error) {
	j := &job{id: uuid.NewString(), session: session, intent: in, done: done}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return "", ErrStopped
	}
	d.notes.put(Notification{
		ID:      j.id,
		Session: session,
		StudyID: in.StudyID,
		Path:    in.Path.String(),
		Status:  StatusQueued,
	})
	select {
	case d.queue <- j:
		metrics.EditQueueDepth.Set(float64(len(d.queue)))
		return j.id, nil
	default:
		d.notes.Dismiss(session, j.id)
		metrics.EditsTotal.WithLabelValues("rejected").Inc()
		return "", fmt.Errorf("%w (%d)", ErrQueueFull, d.cfg.QueueSize)
	}
}

// QueueDepth returns current queue depth.
func (d *Dispatcher) QueueDepth() int {
	return len(d.queue)
}

// Notifications returns the outcome store.
func (d *Dispatcher) Notifications() *Notifications {
	return d.notes
}

func (d *Dispatcher) process(ctx context.Context, j *job) {
	d.notes.update(j.id, func(n *Notification) { n.Status = StatusApplying })

	var err error
	attempts := 0
retry:
	for attempt := 0; ; attempt++ {
		attempts++
		err = d.svc.Apply(ctx, j.intent)
		if err == nil || !IsRetryable(err) || attempt >= MaxRetries {
			break
		}
		metrics.EditsTotal.WithLabelValues("retried").Inc()
		wait := Backoff(attempt, d.cfg.RetryBase, d.cfg.RetryMax)
		d.log.Info("retrying field update", "edit_id", j.id, "path", j.intent.Path.String(), "attempt", attempts, "wait", wait)
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break retry
		case <-time.After(wait):
		}
	}
	d.finish(j, attempts, err)
}

func (d *Dispatcher) finish(j *job, attempts int, err error) {
	set := func(n *Notification) {
		n.Attempts = attempts
		if err == nil {
			n.Status = StatusApplied
			n.Message = ""
			return
		}
		n.Status = StatusFailed
		n.Message = err.Error()
		var pe *PatchError
		if errors.As(err, &pe) {
			n.StatusCode = pe.StatusCode
			n.Message = pe.Message
		}
	}
	n, ok := d.notes.update(j.id, set)
	if !ok {
		n = Notification{ID: j.id, Session: j.session, StudyID: j.intent.StudyID, Path: j.intent.Path.String()}
		set(&n)
	}
	if err == nil {
		metrics.EditsTotal.WithLabelValues("applied").Inc()
	} else {
		metrics.EditsTotal.WithLabelValues("failed").Inc()
		d.log.Error("edit failed", "edit_id", j.id, "study_id", j.intent.StudyID, "path", n.Path, "attempts", attempts, "error", err)
	}
	if j.done != nil {
		j.done(n)
	}
}
