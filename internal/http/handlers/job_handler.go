// Job HTTP handlers.
//
// This file exposes REST endpoints for the revision pipeline:
//   - POST /jobs       (submit a draft for revision; returns a job handle)
//   - GET  /jobs       (list submitted jobs, paginated)
//   - GET  /jobs/{id}  (poll job status; returns result when done)
//   - POST /revisions  (revise a draft inline; returns the result directly)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. Submission supports safe retries
// via the Idempotency-Key header: a replayed key returns the originally issued
// job handle without creating a second job.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cspark/dearai-backend/internal/domain"
	"github.com/cspark/dearai-backend/internal/http/middleware"
	"github.com/cspark/dearai-backend/internal/repo"
	"github.com/cspark/dearai-backend/internal/revision"
	"github.com/cspark/dearai-backend/internal/services"
	"github.com/cspark/dearai-backend/internal/sysutil"
	"github.com/cspark/dearai-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// JobService defines the job pipeline operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type JobService interface {
	// Submit validates and persists a submission, enqueues processing, and
	// returns the job handle without waiting for the result.
	Submit(ctx context.Context, userID string, payload domain.SubmissionPayload) (*services.JobHandle, error)
	// Poll reports the status of a previously submitted job.
	Poll(ctx context.Context, userID, jobID string) (*services.JobStatus, error)
	// ListPage returns a page of the user's jobs and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Request, int64, error)
	// ReviseNow runs the pipeline inline and returns the persisted result.
	ReviseNow(ctx context.Context, userID string, payload domain.SubmissionPayload) (*services.SyncResult, error)
}

// ContactService defines address-book operations consumed by HTTP handlers.
type ContactService interface {
	Create(ctx context.Context, userID, email, name, group string) (*domain.Contact, error)
	List(ctx context.Context, userID string) ([]domain.Contact, error)
	Groups(ctx context.Context, userID string) ([]string, error)
	Update(ctx context.Context, userID, contactID string, upd services.ContactUpdate) (*domain.Contact, error)
	Delete(ctx context.Context, userID, contactID string) error
}

// KeywordService defines exclusion-keyword operations consumed by HTTP handlers.
type KeywordService interface {
	List(ctx context.Context, userID string) ([]string, error)
	Add(ctx context.Context, userID string, keywords []string) ([]string, error)
	Replace(ctx context.Context, userID string, keywords []string) ([]string, error)
}

// AuthService defines the sign-in operations consumed by HTTP handlers.
type AuthService interface {
	// LoginURL builds the provider consent URL for the given state.
	LoginURL(state string) string
	// HandleCallback exchanges the authorization code for a session.
	HandleCallback(ctx context.Context, code string) (*services.Session, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for jobs, contacts, keywords, and auth.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	jobSvc     JobService
	contactSvc ContactService
	kwSvc      KeywordService
	authSvc    AuthService

	// idemTTL is the validity window recorded with each Idempotency-Key.
	idemTTL time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
func New(jobSvc JobService, contactSvc ContactService, kwSvc KeywordService, authSvc AuthService, idemTTL time.Duration) *Handlers {
	return &Handlers{
		jobSvc:     jobSvc,
		contactSvc: contactSvc,
		kwSvc:      kwSvc,
		authSvc:    authSvc,
		idemTTL:    idemTTL,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		return sysutil.FirstNonEmpty(c.GetHeader("X-User-ID"), "demo-user")
	}
	return "demo-user"
}

// db digs the concrete GORM handle out of the job service when available.
// Idempotency bookkeeping is best effort and skipped when the service is a
// test double without a database.
func (h *Handlers) db() *gorm.DB {
	if svc, ok := h.jobSvc.(*services.JobService); ok {
		return svc.DB
	}
	return nil
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListJobsResponse wraps a page of jobs and pagination information.
type ListJobsResponse struct {
	Jobs       []domain.Request `json:"jobs"`
	Pagination Pagination       `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

//
// Handlers
//

// SubmitJob godoc
// @ID          submitJob
// @Summary     Submit a draft for revision
// @Description Accepts a mail draft and/or guidance, persists it, and queues it for asynchronous revision. Returns a job handle for polling.
// @Tags        Jobs
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Safe-retry key; replays return the original handle"
// @Param       body             body    domain.SubmissionPayload  true  "Submission payload"
//
// @Success     202  {object}  services.JobHandle
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     503  {object}  handlers.ErrorResponse  "Queue unavailable"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /jobs [post]
func (h *Handlers) SubmitJob(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	var payload domain.SubmissionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	// Replay: the same key returns the originally issued handle without a
	// second job being created or enqueued.
	key, hasKey := middleware.GetIdempotencyKey(c)
	if hasKey && middleware.IsReplay(c) {
		if db := h.db(); db != nil {
			if rec, err := repo.GetIdempotency(ctx, db, uid, key, time.Now().UTC()); err == nil {
				ok(c, http.StatusAccepted, services.JobHandle{JobID: rec.RequestID})
				return
			}
		}
	}

	handle, err := h.jobSvc.Submit(ctx, uid, payload)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptySubmission):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "either data or guide is required")
		case errors.Is(err, services.ErrQueueUnavailable):
			fail(c, http.StatusServiceUnavailable, ErrCodeQueueUnavailable, "task queue unavailable")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSubmitFailed, err.Error())
		}
		return
	}

	if hasKey {
		if db := h.db(); db != nil {
			// Best effort: a failed insert only disables replay for this key.
			_, _ = repo.CreateIdempotency(ctx, db, uid, key, handle.JobID, http.StatusAccepted, h.idemTTL)
		}
	}

	ok(c, http.StatusAccepted, handle)
}

// CreateRevision godoc
// @ID          createRevision
// @Summary     Revise a draft inline
// @Description Accepts a mail draft and/or guidance and runs the revision in the request, returning the revised mail directly instead of a job handle. The job is still persisted and can be fetched later through the jobs endpoints.
// @Tags        Jobs
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    domain.SubmissionPayload  true  "Submission payload"
//
// @Success     200  {object}  services.SyncResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     502  {object}  handlers.ErrorResponse  "Revision engine failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /revisions [post]
func (h *Handlers) CreateRevision(c *gin.Context) {
	var payload domain.SubmissionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	res, err := h.jobSvc.ReviseNow(c.Request.Context(), userID(c), payload)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptySubmission):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "either data or guide is required")
		case errors.Is(err, revision.ErrRevisionFailed):
			fail(c, http.StatusBadGateway, ErrCodeRevisionFailed, "revision engine failed")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSubmitFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, res)
}

// GetJob godoc
// @ID          getJob
// @Summary     Poll a job
// @Description Returns the current status of a submitted job: PENDING, RUNNING, FAILED (with reason), or SUCCESS with the revised mail. Polling is idempotent.
// @Tags        Jobs
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Job ID (UUID)"  format(uuid)
//
// @Success     200  {object}  services.JobStatus
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Job not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /jobs/{id} [get]
func (h *Handlers) GetJob(c *gin.Context) {
	jobID := c.Param("id")
	if _, err := uuid.Parse(jobID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "job id must be a UUID")
		return
	}

	st, err := h.jobSvc.Poll(c.Request.Context(), userID(c), jobID)
	if err != nil {
		if errors.Is(err, services.ErrJobNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "job not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, st)
}

// ListJobs godoc
// @ID          listJobs
// @Summary     List jobs (paginated)
// @Description Returns a page of the user's submitted jobs, newest first.
// @Tags        Jobs
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       page       query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListJobsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /jobs [get]
func (h *Handlers) ListJobs(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.jobSvc.ListPage(c.Request.Context(), userID(c), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListJobsResponse{
		Jobs: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
