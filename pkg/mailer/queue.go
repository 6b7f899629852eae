package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pragmatic.dev/pkg/pragmatic/pkg/spool"
)

const (
	defaultQueueSize    = 100
	defaultQueueWorkers = 1
	refillInterval      = 50 * time.Millisecond
)

// QueueConfig configures a Queue.
type QueueConfig struct {
	// Size is the in-memory capacity. Defaults to 100.
	Size int
	// Workers is the number of delivery goroutines. Defaults to 1.
	Workers int
	// Spill moves mails that do not fit into memory to a spool file in
	// SpoolDir instead of rejecting them with ErrQueueFull.
	Spill    bool
	SpoolDir string
	Metrics  *Metrics
}

// Queue is an in-process Dispatcher. Workers deliver mails through a Sender
// in the order they were dispatched. Failed deliveries are logged and
// counted, never retried.
type Queue struct {
	sender  Sender
	jobs    chan *Email
	spill   spool.FileSpill[Email]
	workers int
	metrics *Metrics

	mu      sync.Mutex
	closed  bool
	started bool
	done    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewQueue creates a Queue delivering through sender. Call Start to run the
// workers and Close to stop them.
func NewQueue(sender Sender, cfg QueueConfig) (*Queue, error) {
	size := cfg.Size
	if size <= 0 {
		size = defaultQueueSize
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultQueueWorkers
	}

	var spill spool.FileSpill[Email]

	if cfg.Spill {
		var err error

		spill, err = spool.NewFileSpill[Email](cfg.SpoolDir)
		if err != nil {
			slog.Error("Failed to create mail spool", "dir", cfg.SpoolDir, "error", err)
			return nil, fmt.Errorf("create mail spool: %w", err)
		}
	}

	slog.Info("Initializing mail queue", "size", size, "workers", workers, "spill", cfg.Spill)

	ctx, cancel := context.WithCancel(context.Background())

	return &Queue{
		sender:  sender,
		jobs:    make(chan *Email, size),
		spill:   spill,
		workers: workers,
		metrics: cfg.Metrics,
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start launches the workers. Calling it more than once has no effect.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started || q.closed {
		return
	}

	q.started = true

	for range q.workers {
		q.wg.Add(1)

		go q.worker()
	}

	slog.Info("Mail queue workers started", "workers", q.workers)
}

// Dispatch implements Dispatcher.
func (q *Queue) Dispatch(ctx context.Context, email *Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.metrics.dropped()
		slog.Error("Cannot enqueue, mail queue is closed", "id", email.ID)

		return ErrQueueClosed
	}

	// spilled mails go first, so new ones queue up behind them
	if q.spill == nil || q.spill.Len() == 0 {
		select {
		case q.jobs <- email:
			q.metrics.queued()
			slog.Debug("Mail queued", "id", email.ID, "to", email.To)

			return nil
		default:
		}
	}

	if q.spill == nil {
		q.metrics.dropped()
		slog.Error("Mail queue is full, dropping message", "id", email.ID, "capacity", cap(q.jobs))

		return fmt.Errorf("%w (capacity: %d)", ErrQueueFull, cap(q.jobs))
	}

	if err := q.spill.Append(*email); err != nil {
		q.metrics.dropped()
		slog.Error("Failed to spill mail", "id", email.ID, "error", err)

		return fmt.Errorf("spill mail %s: %w", email.ID, err)
	}

	q.metrics.queued()
	slog.Debug("Mail spilled to disk", "id", email.ID, "spilled", q.spill.Len())

	return nil
}

// Close stops accepting mails, delivers what is queued or spilled and waits
// for the workers. When ctx ends first, in-flight deliveries are canceled and
// ctx.Err() is returned.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}

	q.closed = true
	close(q.done)

	if !q.started {
		// nothing consumes the queue yet, deliver what was accepted
		q.wg.Add(1)

		go func() {
			defer q.wg.Done()
			q.flush()
		}()
	}
	q.mu.Unlock()

	finished := make(chan struct{})

	go func() {
		q.wg.Wait()
		close(finished)
	}()

	var err error

	select {
	case <-finished:
	case <-ctx.Done():
		slog.Warn("Mail queue close timed out, canceling deliveries", "error", ctx.Err())
		q.cancel()
		<-finished

		err = ctx.Err()
	}

	q.cancel()

	pending := uint64(len(q.jobs))
	if q.spill != nil {
		pending += q.spill.Len()
	}

	if pending > 0 {
		slog.Warn("Mail queue closed with undelivered mails", "pending", pending)

		if err == nil {
			err = fmt.Errorf("mail queue closed with %d undelivered mail(s)", pending)
		}
	}

	if q.spill != nil {
		if removeErr := q.spill.Remove(); removeErr != nil && err == nil {
			err = removeErr
		}
	}

	slog.Info("Mail queue closed")

	return err
}

func (q *Queue) worker() {
	defer q.wg.Done()

	ticker := time.NewTicker(refillInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.done:
			q.flush()
			return

		case email := <-q.jobs:
			q.deliver(email)
			q.refill()

		case <-ticker.C:
			q.refill()
		}
	}
}

// flush delivers everything left in memory and on disk.
func (q *Queue) flush() {
	for q.ctx.Err() == nil {
		select {
		case email := <-q.jobs:
			q.deliver(email)
		default:
			if !q.refill() {
				return
			}
		}
	}
}

func (q *Queue) deliver(email *Email) {
	if err := q.sender.Send(q.ctx, email); err != nil {
		q.metrics.failed()
		slog.Error("Failed to deliver queued mail", "id", email.ID, "error", err)

		return
	}

	q.metrics.sent()
	slog.Debug("Queued mail delivered", "id", email.ID)
}

// refill moves spilled mails into free channel slots. It reports whether any
// mail was moved.
func (q *Queue) refill() bool {
	if q.spill == nil {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.spill.Len() == 0 || len(q.jobs) == cap(q.jobs) {
		return false
	}

	items, err := q.spill.Drain()
	if err != nil {
		slog.Error("Failed to drain mail spool", "path", q.spill.Path(), "error", err)
		return false
	}

	moved := 0

	for i := range items {
		select {
		case q.jobs <- &items[i]:
			moved++
			continue
		default:
		}

		if err := q.spill.AppendBatch(items[i:]); err != nil {
			slog.Error("Failed to re-spill mails", "count", len(items)-i, "error", err)
		}

		break
	}

	slog.Debug("Refilled mail queue from spool", "moved", moved, "spilled", q.spill.Len())

	return moved > 0
}
