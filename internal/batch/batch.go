// Package batch implements the batch embedding executor: a single
// long-lived task that owns a job-intake queue and a result fan-in
// queue, dispatching one worker goroutine per submitted job and
// streaming addition/removal/error events back to each job's own
// result sink.
package batch

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vectorkit/vectorkit/internal/apperr"
	"github.com/vectorkit/vectorkit/internal/document"
	"github.com/vectorkit/vectorkit/internal/embedding"
	"github.com/vectorkit/vectorkit/internal/logging"
	"github.com/vectorkit/vectorkit/internal/repository"
)

const queueCapacity = 128

// EventKind discriminates a BatchEvent.
type EventKind int

const (
	EventAddition EventKind = iota
	EventRemoval
	EventError
)

// BatchEvent is one unit of progress for a submitted job: either a
// persisted report for a successfully (re)embedded or removed
// document, or an error tied to a single document id.
type BatchEvent struct {
	JobID      uuid.UUID
	Kind       EventKind
	DocumentID uuid.UUID
	Report     repository.Report
	Err        error
}

// ResultSink receives the events for a single job. Implementations
// must not block the executor indefinitely; ChannelSink honors the
// caller's Drop signal so a caller that stops listening never wedges
// a worker.
type ResultSink interface {
	Send(BatchEvent)
	// Close signals that no further events will arrive for this job.
	Close()
}

// ChannelSink is the default ResultSink, backed by a buffered channel.
type ChannelSink struct {
	ch      chan BatchEvent
	dropped chan struct{}
	once    sync.Once
}

// NewChannelSink creates a ChannelSink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan BatchEvent, buffer), dropped: make(chan struct{})}
}

// Events returns the channel callers should range over.
func (c *ChannelSink) Events() <-chan BatchEvent { return c.ch }

// Drop tells the executor this sink no longer has a listener. Further
// Send calls become no-ops instead of blocking.
func (c *ChannelSink) Drop() {
	c.once.Do(func() { close(c.dropped) })
}

// Send implements ResultSink.
func (c *ChannelSink) Send(evt BatchEvent) {
	select {
	case c.ch <- evt:
	case <-c.dropped:
	}
}

// Close implements ResultSink, closing the underlying channel so a
// ranging caller's loop terminates.
func (c *ChannelSink) Close() {
	select {
	case <-c.dropped:
		return
	default:
	}
	close(c.ch)
}

// BatchJob is a single submission: embed Add's documents into
// CollectionID and remove Remove's documents' embeddings from
// CollectionID, in that order.
type BatchJob struct {
	CollectionID uuid.UUID
	Add          []uuid.UUID
	Remove       []uuid.UUID
	Sink         ResultSink
}

type jobEnvelope struct {
	job     BatchJob
	idReply chan uuid.UUID
}

// Executor is the single long-lived task described above. Its job map
// is confined to the goroutine running Run; all external interaction
// is through Submit.
type Executor struct {
	embeddings *embedding.Service
	documents  *document.Service
	repo       *repository.Repository
	logger     *logging.Logger

	intake chan jobEnvelope
	fanIn  chan BatchEvent
	closed chan struct{}
}

// New constructs an Executor. Call Run in its own goroutine before
// calling Submit.
func New(repo *repository.Repository, documents *document.Service, embeddings *embedding.Service, logger *logging.Logger) *Executor {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Executor{
		embeddings: embeddings,
		documents:  documents,
		repo:       repo,
		logger:     logger,
		intake:     make(chan jobEnvelope, queueCapacity),
		fanIn:      make(chan BatchEvent, queueCapacity),
		closed:     make(chan struct{}),
	}
}

// Submit enqueues a job. It suspends until the intake queue has a free
// slot, then suspends briefly again for the executor to allocate and
// return the job id. Returns apperr.Batch if the executor has already
// shut down.
func (e *Executor) Submit(ctx context.Context, job BatchJob) (uuid.UUID, error) {
	env := jobEnvelope{job: job, idReply: make(chan uuid.UUID, 1)}

	select {
	case e.intake <- env:
	case <-e.closed:
		return uuid.Nil, apperr.New(apperr.Batch, "batch executor is unavailable")
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}

	select {
	case id := <-env.idReply:
		return id, nil
	case <-e.closed:
		return uuid.Nil, apperr.New(apperr.Batch, "batch executor is unavailable")
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

// Run is the executor's main loop. It owns the job map and must run on
// a single goroutine for the executor's lifetime; it returns when ctx
// is canceled.
func (e *Executor) Run(ctx context.Context) {
	jobs := make(map[uuid.UUID]ResultSink)
	defer close(e.closed)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info(ctx, "batch executor stopping", zap.Int("in_flight_jobs", len(jobs)))
			return

		case env := <-e.intake:
			id := uuid.New()
			jobs[id] = env.job.Sink
			env.idReply <- id
			go e.runWorker(ctx, id, env.job)

		case evt := <-e.fanIn:
			sink, ok := jobs[evt.JobID]
			if !ok {
				continue
			}
			if evt.Kind == doneKind {
				delete(jobs, evt.JobID)
				sink.Close()
				continue
			}
			sink.Send(evt)
		}
	}
}

// doneKind marks the internal completion signal the worker sends on
// the fan-in queue; it is never forwarded to a sink via Send.
const doneKind EventKind = -1

// runWorker resolves the job's collection once, then processes Add
// followed by Remove in submission order. A failure on any single
// document emits an error event and the worker continues; only a
// failure resolving the collection itself short-circuits the job.
func (e *Executor) runWorker(ctx context.Context, jobID uuid.UUID, job BatchJob) {
	ctx = logging.WithJobID(ctx, jobID.String())
	ctx = logging.WithCollectionID(ctx, job.CollectionID.String())

	emit := func(evt BatchEvent) {
		evt.JobID = jobID
		select {
		case e.fanIn <- evt:
		case <-ctx.Done():
		}
	}

	if _, err := e.repo.GetCollectionByID(ctx, nil, job.CollectionID); err != nil {
		emit(BatchEvent{Kind: EventError, Err: err})
		emit(BatchEvent{Kind: doneKind})
		return
	}

	for _, docID := range job.Add {
		chunks, err := e.documents.Chunks(ctx, docID)
		if err != nil {
			emit(BatchEvent{Kind: EventError, DocumentID: docID, Err: err})
			continue
		}
		_, report, err := e.embeddings.Create(ctx, embedding.CreateRequest{
			DocumentID: docID, CollectionID: job.CollectionID, Chunks: chunks,
		})
		if err != nil {
			emit(BatchEvent{Kind: EventError, DocumentID: docID, Err: err})
			continue
		}
		emit(BatchEvent{Kind: EventAddition, DocumentID: docID, Report: report})
	}

	for _, docID := range job.Remove {
		_, report, err := e.embeddings.Delete(ctx, job.CollectionID, docID)
		if err != nil {
			emit(BatchEvent{Kind: EventError, DocumentID: docID, Err: err})
			continue
		}
		emit(BatchEvent{Kind: EventRemoval, DocumentID: docID, Report: report})
	}

	emit(BatchEvent{Kind: doneKind})
}
