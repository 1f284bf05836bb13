package service

import (
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/metrics"
	"alcyxob/nutrition-app/internal/repository"
	"context"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// RecordSink accepts analysis records for storage without blocking the caller.
type RecordSink interface {
	// Enqueue reports whether the record was accepted. It never blocks.
	Enqueue(record domain.AnalysisRecord) bool
}

// AnalysisPersister writes analysis records in the background. Insert
// failures are logged and counted; they never reach the request that
// produced the record.
type AnalysisPersister struct {
	repo    repository.AnalysisRepository
	queue   chan domain.AnalysisRecord
	timeout time.Duration
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	group  errgroup.Group
}

// NewAnalysisPersister starts workers goroutines draining a queue of queueSize records.
func NewAnalysisPersister(repo repository.AnalysisRepository, workers, queueSize int, timeout time.Duration, m *metrics.Metrics) *AnalysisPersister {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	p := &AnalysisPersister{
		repo:    repo,
		queue:   make(chan domain.AnalysisRecord, queueSize),
		timeout: timeout,
		metrics: m,
	}
	for i := 0; i < workers; i++ {
		p.group.Go(p.work)
	}
	return p
}

// Enqueue hands the record to the workers. A full queue or a persister that
// is shutting down drops the record.
func (p *AnalysisPersister) Enqueue(record domain.AnalysisRecord) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		log.Printf("WARN: Persister is shut down, dropping analysis for user %s", record.OwnerID)
		p.metrics.RecordPersist(metrics.PersistDropped)
		return false
	}

	select {
	case p.queue <- record:
		return true
	default:
		log.Printf("WARN: Persist queue full, dropping analysis for user %s", record.OwnerID)
		p.metrics.RecordPersist(metrics.PersistDropped)
		return false
	}
}

// Shutdown stops accepting records and waits for the queue to drain or ctx to end.
func (p *AnalysisPersister) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = p.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *AnalysisPersister) work() error {
	for record := range p.queue {
		p.store(record)
	}
	return nil
}

func (p *AnalysisPersister) store(record domain.AnalysisRecord) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Panic while persisting analysis for user %s: %v\n%s", record.OwnerID, r, debug.Stack())
			p.metrics.RecordPersist(metrics.PersistFailed)
		}
	}()

	// Detached from the request: the response has usually been sent already.
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	id, err := p.repo.Insert(ctx, &record)
	if err != nil {
		log.Printf("ERROR: Failed to persist analysis for user %s: %v", record.OwnerID, err)
		p.metrics.RecordPersist(metrics.PersistFailed)
		return
	}
	log.Printf("INFO: Stored analysis %s for user %s", id, record.OwnerID)
	p.metrics.RecordPersist(metrics.PersistStored)
}
