// Package worker drains the submission queue and folds each session into its profile.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/artemis/internal/domain/model"
	"github.com/okian/artemis/pkg/logger"
	"github.com/okian/artemis/pkg/metrics"
)

const defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()

// Event is what workers read off the queue.
type Event = model.SessionEvent

// Ingester applies one submission to the owner's profile.
type Ingester interface {
	IngestEvent(ctx context.Context, e Event) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// reporter is implemented by queues that publish their size.
type reporter interface {
	Report()
}

// InMemoryWorker ingests events from a queue until it is closed or ctx ends.
type InMemoryWorker struct {
	queue    Queue
	ingester Ingester
	name     string
	logger   logger.Logger
	done     chan struct{}
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, ingester Ingester, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		ingester: ingester,
		name:     "worker",
		logger:   logger.Nop(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes events until the queue channel closes or ctx is cancelled.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if r, ok := w.queue.(reporter); ok {
				r.Report()
			}
			_ = w.process(ctx, e)
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: events are passed by value through the channel
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.ingester.IngestEvent(ctx, e); err != nil {
		metrics.RecordWorkerError("ingest")
		w.logger.Error(ctx, "ingest failed",
			logger.String("submission_id", e.SubmissionID),
			logger.String("user_id", e.UserID),
			logger.Error(err),
		)
		return fmt.Errorf("ingest %s: %w", e.SubmissionID, err)
	}
	return nil
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
	cancel  context.CancelFunc
	once    sync.Once
}

// NewPool creates count workers. count < 1 picks a multiple of NumCPU.
func NewPool(count int, q Queue, ingester Ingester, log logger.Logger) *Pool {
	if count < 1 {
		count = runtime.NumCPU() * defaultWorkerMultiplier
	}
	if log == nil {
		log = logger.Nop()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, count),
		queue:   q,
		logger:  log.Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, ingester,
			WithLogger(log),
			WithName("worker-"+strconv.Itoa(i)),
		)
	}
	metrics.UpdateWorkerCount(count)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and lets workers drain what is already queued.
// Workers still running when ctx expires are cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.once.Do(func() {
		if closer, ok := p.queue.(interface{ Close() error }); ok {
			if cerr := closer.Close(); cerr != nil {
				p.logger.Error(ctx, "error closing queue", logger.Error(cerr))
			}
		}
		if p.cancel == nil {
			return
		}
		for i, w := range p.workers {
			select {
			case <-w.done:
			case <-ctx.Done():
				p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
				err = fmt.Errorf("shutdown timed out: %w", ctx.Err())
			}
			if err != nil {
				break
			}
		}
		p.cancel()
		metrics.UpdateWorkerCount(0)
	})
	return err
}
