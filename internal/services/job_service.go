// Package services – JobService
//
// This file implements the JobService, the orchestrator of the revision
// pipeline. Submit validates a submission, resolves the recipient against the
// user's address book, persists the immutable Request row, and enqueues one
// work item after the row is durably committed; it never blocks on the
// revision engine. Poll is a pure read that reports job status by inspecting
// the stores, with every lookup scoped to the owning user. ReviseNow runs the
// same pipeline inline for callers that want the revision in the response
// instead of a handle to poll.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// the job and user identifiers.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/cspark/dearai-backend/internal/domain"
	"github.com/cspark/dearai-backend/internal/repo"
	"github.com/cspark/dearai-backend/internal/revision"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Client-facing job status values reported by Poll.
const (
	JobStatusPending = "PENDING"
	JobStatusRunning = "RUNNING"
	JobStatusSuccess = "SUCCESS"
	JobStatusFailed  = "FAILED"
)

// JobHandle is returned by Submit. JobID is the Request primary key and the
// only identifier needed for polling; TaskID identifies the queue message and
// exists purely for operational tracing.
type JobHandle struct {
	JobID  string `json:"job_id"`
	TaskID string `json:"task_id"`
}

// JobStatus is the result of one Poll call. Result is set only for SUCCESS;
// Error only for FAILED.
type JobStatus struct {
	Status string         `json:"status"`
	Result *domain.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// SyncResult is returned by ReviseNow: the persisted revision plus the job id
// so the caller can still fetch it later through the polling surface.
type SyncResult struct {
	JobID  string         `json:"job_id"`
	Result *domain.Result `json:"result"`
}

// Enqueuer is the slice of the task queue the orchestrator needs.
type Enqueuer interface {
	Enqueue(requestID, userID string) (taskID string, err error)
}

// JobService coordinates job submission, polling, and inline revision.
type JobService struct {
	DB     *gorm.DB
	Queue  Enqueuer
	Engine revision.Engine
}

// NewJobService constructs a JobService bound to the given handle, queue, and
// revision engine.
func NewJobService(db *gorm.DB, q Enqueuer, eng revision.Engine) *JobService {
	return &JobService{DB: db, Queue: q, Engine: eng}
}

// Submit validates and persists a submission, enqueues one work item, and
// returns the job handle without waiting for processing.
//
// Semantics:
//   - A payload with neither draft nor guidance fails with ErrEmptySubmission
//     and nothing is persisted or enqueued.
//   - The submitted recipient is resolved against the user's contacts by
//     exact email match; a miss is not an error, the request simply carries
//     no recipient reference.
//   - The queue message carries only (request_id, user_id), never the
//     payload, so the worker always re-reads persisted state.
//   - The enqueue happens only after the Request insert has committed, so a
//     dequeued task is guaranteed to find its row.
func (s *JobService) Submit(ctx context.Context, userID string, payload domain.SubmissionPayload) (*JobHandle, error) {
	tr := otel.Tracer("services/JobService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	if strings.TrimSpace(payload.Draft) == "" && strings.TrimSpace(payload.Guide) == "" {
		return nil, ErrEmptySubmission
	}

	var recipientID *string
	if rcpt := strings.TrimSpace(payload.Recipient); rcpt != "" {
		if c, err := repo.FindContactByEmail(ctx, s.DB, userID, rcpt); err == nil {
			recipientID = &c.ID
		} else if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := repo.CreateRequest(ctx, s.DB, userID, string(raw), payload.Recipient, recipientID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("job.id", req.ID))

	taskID, err := s.Queue.Enqueue(req.ID, userID)
	if err != nil {
		// The row is durable but nothing will process it; mark it failed so
		// the client sees a terminal state instead of polling forever.
		_ = repo.UpdateRequestStatus(ctx, s.DB, req.ID, domain.StatusFailed, "enqueue failed: "+err.Error())
		return nil, ErrQueueUnavailable
	}

	return &JobHandle{JobID: req.ID, TaskID: taskID}, nil
}

// ReviseNow runs the whole pipeline inline: it validates and persists the
// submission like Submit, but then drives the revision engine in the calling
// goroutine and returns the persisted result instead of a handle.
//
// The request goes through the same status transitions as a queued job
// (pending on insert, running while the engine works, then succeeded or
// failed), so a job created here is indistinguishable from a queued one when
// listed or polled later. Engine failures are terminal: the request is marked
// failed with the engine error as its reason and the error is returned to the
// caller; there is no redelivery on the synchronous path.
func (s *JobService) ReviseNow(ctx context.Context, userID string, payload domain.SubmissionPayload) (*SyncResult, error) {
	tr := otel.Tracer("services/JobService")
	ctx, span := tr.Start(ctx, "ReviseNow",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	if strings.TrimSpace(payload.Draft) == "" && strings.TrimSpace(payload.Guide) == "" {
		return nil, ErrEmptySubmission
	}

	var (
		recipientID *string
		contact     *domain.Contact
	)
	if rcpt := strings.TrimSpace(payload.Recipient); rcpt != "" {
		if c, err := repo.FindContactByEmail(ctx, s.DB, userID, rcpt); err == nil {
			recipientID = &c.ID
			contact = c
		} else if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := repo.CreateRequest(ctx, s.DB, userID, string(raw), payload.Recipient, recipientID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("job.id", req.ID))

	if err := repo.UpdateRequestStatus(ctx, s.DB, req.ID, domain.StatusRunning, ""); err != nil {
		return nil, err
	}

	in := revision.Input{
		Title:    payload.Title,
		Draft:    payload.Draft,
		Guide:    payload.Guide,
		Language: payload.Language,
	}
	if contact != nil {
		in.Recipient = &revision.RecipientContext{Name: contact.Name, Group: contact.Group}
	}
	stored, err := repo.GetUserKeywords(ctx, s.DB, userID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	in.ExcludeKeywords = unionKeywords(stored, payload.FilterKeywords)

	rev, err := s.Engine.Revise(ctx, in)
	if err != nil {
		_ = repo.UpdateRequestStatus(ctx, s.DB, req.ID, domain.StatusFailed, err.Error())
		return nil, err
	}

	var result *domain.Result
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := repo.CreateResult(ctx, tx, req.ID, rev.Title, rev.Body)
		if err != nil {
			return err
		}
		result = r
		return repo.UpdateRequestStatus(ctx, tx, req.ID, domain.StatusSucceeded, "")
	})
	if err != nil {
		return nil, err
	}

	return &SyncResult{JobID: req.ID, Result: result}, nil
}

// unionKeywords unions the stored and submitted keyword lists, dropping
// blanks and duplicates while preserving order.
func unionKeywords(stored, submitted []string) []string {
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

// Poll reports the status of a job. It is a pure read: it never blocks on
// processing and never triggers it.
//
// Resolution order:
//  1. A Result row (joined through the Request for tenant isolation) means
//     SUCCESS with the stored payload, idempotent across repeated polls.
//  2. Otherwise the Request row, scoped to the owner, yields PENDING,
//     RUNNING, or FAILED (with the recorded reason).
//  3. Otherwise ErrJobNotFound, including jobs owned by somebody else.
func (s *JobService) Poll(ctx context.Context, userID, jobID string) (*JobStatus, error) {
	tr := otel.Tracer("services/JobService")
	ctx, span := tr.Start(ctx, "Poll",
		trace.WithAttributes(
			attribute.String("job.id", jobID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	res, err := repo.GetResultForUser(ctx, s.DB, jobID, userID)
	if err == nil {
		return &JobStatus{Status: JobStatusSuccess, Result: res}, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	req, err := repo.GetRequest(ctx, s.DB, jobID, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	switch req.Status {
	case domain.StatusRunning:
		return &JobStatus{Status: JobStatusRunning}, nil
	case domain.StatusFailed:
		return &JobStatus{Status: JobStatusFailed, Error: req.FailureReason}, nil
	default:
		// Pending, or succeeded with the result row racing our first read.
		return &JobStatus{Status: JobStatusPending}, nil
	}
}

// ListPage returns a page of the user's submitted jobs (newest first) and the
// total count for pagination metadata.
func (s *JobService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Request, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	total, err := repo.CountRequests(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	items, err := repo.ListRequestsPage(ctx, s.DB, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
