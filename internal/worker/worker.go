// Package worker runs the background side of the revision pipeline: a pool of
// goroutines that consume tasks from the queue, drive the revision engine, and
// persist results.
//
// Processing is acknowledged late: a task is only considered done once its
// result row has committed. A failed attempt is redelivered up to the queue's
// attempt cap; when attempts are exhausted the request is marked failed with
// the last error as its reason. Because delivery is at-least-once, the result
// store's unique index on request_id makes duplicate deliveries harmless
// (first write wins, the loser acknowledges without writing).
//
// Workers never trust queued data beyond the (request_id, user_id) reference:
// the payload, recipient, and the user's exclusion keywords are re-read from
// the database at processing time, so edits made after submission still apply.
package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/cspark/dearai-backend/internal/domain"
	"github.com/cspark/dearai-backend/internal/queue"
	"github.com/cspark/dearai-backend/internal/repo"
	"github.com/cspark/dearai-backend/internal/revision"
)

var (
	// jobsProcessed counts finished processing attempts by outcome:
	// succeeded, retried, failed, dropped, duplicate.
	jobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revision_jobs_processed_total",
			Help: "Total number of processed revision job attempts.",
		},
		[]string{"outcome"},
	)

	// jobDuration records end-to-end processing time per attempt in seconds.
	jobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "revision_job_duration_seconds",
			Help:    "Duration of revision job processing in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	// jobsInflight gauges the number of tasks currently being processed.
	jobsInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "revision_jobs_inflight",
			Help: "Current number of in-flight revision jobs.",
		},
	)
)

func init() {
	prometheus.MustRegister(jobsProcessed, jobDuration, jobsInflight)
}

// errDrop marks a task that must not be retried: the referenced request no
// longer exists (or never did), so redelivery cannot help.
var errDrop = errors.New("task dropped")

// Pool consumes tasks and processes them concurrently.
type Pool struct {
	// DB is the GORM handle shared with the HTTP side.
	DB *gorm.DB
	// Queue is the task source; the pool also nacks into it.
	Queue *queue.Queue
	// Engine performs the actual revision.
	Engine revision.Engine
	// Workers is the number of consumer goroutines; 1 when <= 0.
	Workers int
	// ProcessTimeout bounds one attempt end to end; 60s when zero.
	ProcessTimeout time.Duration

	wg sync.WaitGroup
}

// Start launches the consumer goroutines. They exit when ctx is cancelled or
// the queue is closed and drained; Wait blocks until then.
func (p *Pool) Start(ctx context.Context) {
	n := p.Workers
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
}

// Wait blocks until all workers have stopped.
func (p *Pool) Wait() { p.wg.Wait() }

// run is one consumer loop.
func (p *Pool) run(ctx context.Context, id int) {
	lg := log.With().Int("worker", id).Logger()
	for {
		t, err := p.Queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) || errors.Is(err, context.Canceled) {
				return
			}
			lg.Error().Err(err).Msg("dequeue failed")
			return
		}

		start := time.Now()
		jobsInflight.Inc()
		err = p.process(ctx, t)
		jobsInflight.Dec()
		jobDuration.Observe(time.Since(start).Seconds())

		switch {
		case err == nil:
			jobsProcessed.WithLabelValues("succeeded").Inc()
		case errors.Is(err, errDrop):
			jobsProcessed.WithLabelValues("dropped").Inc()
			lg.Warn().
				Str("task_id", t.ID).
				Str("request_id", t.RequestID).
				Msg("dropping task for missing request")
		default:
			lg.Error().Err(err).
				Str("task_id", t.ID).
				Str("request_id", t.RequestID).
				Int("attempt", t.Attempt).
				Msg("processing attempt failed")
			if p.Queue.Nack(t) {
				jobsProcessed.WithLabelValues("retried").Inc()
			} else {
				jobsProcessed.WithLabelValues("failed").Inc()
				p.markFailed(t.RequestID, err)
			}
		}
	}
}

// process performs one attempt on a task. Any returned error other than
// errDrop is retryable.
func (p *Pool) process(ctx context.Context, t queue.Task) error {
	timeout := p.ProcessTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tr := otel.Tracer("worker")
	ctx, span := tr.Start(ctx, "ProcessJob",
		trace.WithAttributes(
			attribute.String("job.id", t.RequestID),
			attribute.Int("job.attempt", t.Attempt),
		),
	)
	defer span.End()

	req, err := repo.GetRequest(ctx, p.DB, t.RequestID, t.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errDrop
		}
		return err
	}
	if req.Status == domain.StatusSucceeded {
		// Duplicate delivery of an already completed job.
		jobsProcessed.WithLabelValues("duplicate").Inc()
		return nil
	}

	if err := repo.UpdateRequestStatus(ctx, p.DB, req.ID, domain.StatusRunning, ""); err != nil {
		return err
	}

	payload, err := req.Submission()
	if err != nil {
		// A corrupt payload cannot become valid on retry.
		p.markFailed(req.ID, err)
		return errDrop
	}

	in, err := p.buildInput(ctx, req, payload)
	if err != nil {
		return err
	}

	rev, err := p.Engine.Revise(ctx, in)
	if err != nil {
		return err
	}

	err = p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.CreateResult(ctx, tx, req.ID, rev.Title, rev.Body); err != nil {
			return err
		}
		return repo.UpdateRequestStatus(ctx, tx, req.ID, domain.StatusSucceeded, "")
	})
	if errors.Is(err, repo.ErrDuplicate) {
		// Another delivery already committed a result; this one just acks.
		jobsProcessed.WithLabelValues("duplicate").Inc()
		_ = repo.UpdateRequestStatus(ctx, p.DB, req.ID, domain.StatusSucceeded, "")
		return nil
	}
	return err
}

// buildInput assembles the engine input from the stored payload plus the
// recipient and keyword state as it is now, not as it was at submission.
func (p *Pool) buildInput(ctx context.Context, req *domain.Request, payload domain.SubmissionPayload) (revision.Input, error) {
	in := revision.Input{
		Title:    payload.Title,
		Draft:    payload.Draft,
		Guide:    payload.Guide,
		Language: payload.Language,
	}

	if rcpt := strings.TrimSpace(req.RecipientEmail); rcpt != "" {
		c, err := repo.FindContactByEmail(ctx, p.DB, req.UserID, rcpt)
		switch {
		case err == nil:
			in.Recipient = &revision.RecipientContext{Name: c.Name, Group: c.Group}
		case errors.Is(err, repo.ErrNotFound):
			// Still no matching contact; proceed without recipient context.
		default:
			return in, err
		}
	}

	stored, err := repo.GetUserKeywords(ctx, p.DB, req.UserID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return in, err
	}
	in.ExcludeKeywords = mergeKeywords(stored, payload.FilterKeywords)
	return in, nil
}

// markFailed records a terminal failure on the request. Best effort: if the
// update itself fails there is nothing further to do but log.
func (p *Pool) markFailed(requestID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repo.UpdateRequestStatus(ctx, p.DB, requestID, domain.StatusFailed, cause.Error()); err != nil {
		log.Error().Err(err).
			Str("request_id", requestID).
			Msg("failed to record terminal job failure")
	}
}

// mergeKeywords unions the stored and submitted keyword lists, dropping
// blanks and duplicates while preserving order.
func mergeKeywords(stored, submitted []string) []string {
	seen := make(map[string]struct{}, len(stored)+len(submitted))
	out := make([]string, 0, len(stored)+len(submitted))
	for _, list := range [][]string{stored, submitted} {
		for _, k := range list {
			k = strings.TrimSpace(k)
			if k == "" {
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}
