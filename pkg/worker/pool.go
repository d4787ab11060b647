// Package worker provides an asynchronous worker pool that persists query
// records with the provided storage.Driver and publishes events with the
// provided eventstream.Publisher.
//
// The pool decouples bookkeeping from the request path so that answering a
// user never waits on the record store or the event stream.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ecofes/lubebot/pkg/eventstream"
	"github.com/ecofes/lubebot/pkg/logger"
	"github.com/ecofes/lubebot/pkg/storage"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 30 * time.Second
)

// Job is a unit of work for the worker pool. Query jobs are stored and then
// published; Lead jobs carry an already stored lead and are only published.
type Job struct {
	Query *storage.QueryRecord
	Lead  *storage.Lead
}

func (j Job) kind() string {
	switch {
	case j.Query != nil:
		return "query"
	case j.Lead != nil:
		return "lead"
	default:
		return "empty"
	}
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the storage backend for query records.
	Driver storage.Driver

	// Publisher is the optional event stream.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds the work done for one job (defaults to 30s).
	JobTimeout time.Duration

	Logger *slog.Logger
}

// Pool processes record jobs asynchronously.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// NewPool creates a Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Driver == nil {
		return nil, errors.New("worker pool requires a storage driver")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.JobTimeout <= 0 {
		c.JobTimeout = defaultJobTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: logger.Component(c.Logger, "worker"),
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "kind", job.kind())
		return true
	default:
		p.logger.Warn("job not queued, queue full, job dropped", "kind", job.kind())
		return false
	}
}

// Close signals workers to stop and waits for queued jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
		p.wg.Wait()
	})
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	var event *eventstream.Event
	switch {
	case job.Query != nil:
		rec, err := p.config.Driver.SaveQuery(ctx, job.Query)
		if err != nil {
			p.logger.Error("storing query failed", "user_id", job.Query.UserID, "error", err)
			return
		}
		p.logger.Debug("query stored", "id", rec.ID, "user_id", rec.UserID)
		event = eventstream.NewQueryAnswered(rec)

	case job.Lead != nil:
		event = eventstream.NewLeadCaptured(job.Lead)

	default:
		return
	}

	if p.config.Publisher == nil {
		return
	}
	if err := p.config.Publisher.Publish(ctx, event); err != nil {
		p.logger.Warn("publishing event failed", "event_type", event.EventType, "error", err)
	}
}
