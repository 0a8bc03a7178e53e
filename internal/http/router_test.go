package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cspark/dearai-backend/internal/config"
	"github.com/cspark/dearai-backend/internal/queue"
	"github.com/cspark/dearai-backend/internal/repo"
	"github.com/cspark/dearai-backend/internal/revision"
	"github.com/cspark/dearai-backend/internal/services"
)

// cannedEngine serves the inline revision endpoint without a provider.
type cannedEngine struct{}

func (cannedEngine) Revise(ctx context.Context, in revision.Input) (*revision.Revision, error) {
	return &revision.Revision{Title: "Re: " + in.Title, Body: "Dear reader,"}, nil
}

func newRouter(t *testing.T) (*gin.Engine, *queue.Queue) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	cfg := config.Config{
		APIBasePath:    "/api/v1",
		RateRPS:        1000,
		RateBurst:      1000,
		IdempotencyTTL: time.Hour,
	}
	cfg.OTEL.ServiceName = "test"

	q := queue.New(16, 1)
	authSvc := services.NewAuthService(db, "cid", "cs", "http://cb", []byte("test-secret"), time.Hour)

	r := gin.New()
	RegisterRoutes(r, db, q, cannedEngine{}, authSvc, cfg)
	return r, q
}

func TestHealth(t *testing.T) {
	r, _ := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestNoRouteEnvelope(t *testing.T) {
	r, _ := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"code":"not_found"`) {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestNoMethodEnvelope(t *testing.T) {
	r, _ := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSubmitAndPollThroughRouter(t *testing.T) {
	r, q := newRouter(t)

	body := `{"email":"me@example.com","data":"plz fix this"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d, body %s", w.Code, w.Body.String())
	}
	var handle struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &handle); err != nil || handle.JobID == "" {
		t.Fatalf("handle = %s (%v)", w.Body.String(), err)
	}
	if q.Len() != 1 {
		t.Fatalf("queue len = %d, want 1", q.Len())
	}

	// Poll as owner: pending.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+handle.JobID, nil)
	req.Header.Set("X-User-ID", "u1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"PENDING"`) {
		t.Fatalf("poll = %d %s", w.Code, w.Body.String())
	}

	// Poll as someone else: invisible.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+handle.JobID, nil)
	req.Header.Set("X-User-ID", "u2")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign poll = %d", w.Code)
	}
}

func TestInlineRevisionThroughRouter(t *testing.T) {
	r, q := newRouter(t)

	body := `{"email":"me@example.com","title":"hello","data":"plz fix this"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/revisions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("revise status = %d, body %s", w.Code, w.Body.String())
	}
	var res struct {
		JobID  string `json:"job_id"`
		Result struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		} `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil || res.JobID == "" {
		t.Fatalf("result = %s (%v)", w.Body.String(), err)
	}
	if res.Result.Title != "Re: hello" {
		t.Fatalf("revised title = %q", res.Result.Title)
	}
	if q.Len() != 0 {
		t.Fatalf("queue len = %d, want 0 (inline path must not enqueue)", q.Len())
	}

	// The inline job is visible on the polling surface afterwards.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+res.JobID, nil)
	req.Header.Set("X-User-ID", "u1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"SUCCESS"`) {
		t.Fatalf("poll after inline revise = %d %s", w.Code, w.Body.String())
	}
}

func TestIdempotentSubmitThroughRouter(t *testing.T) {
	r, q := newRouter(t)

	submit := func() (int, string) {
		body := `{"email":"me@example.com","data":"same draft"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", "u1")
		req.Header.Set("Idempotency-Key", "retry-key-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		var handle struct {
			JobID string `json:"job_id"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &handle)
		return w.Code, handle.JobID
	}

	code1, job1 := submit()
	if code1 != http.StatusAccepted || job1 == "" {
		t.Fatalf("first submit = %d %q", code1, job1)
	}
	code2, job2 := submit()
	if code2 != http.StatusAccepted {
		t.Fatalf("replay submit = %d", code2)
	}
	if job2 != job1 {
		t.Fatalf("replay returned a different job: %q vs %q", job2, job1)
	}
	if q.Len() != 1 {
		t.Fatalf("queue len = %d, want 1 (replay must not enqueue)", q.Len())
	}
}

func TestCORSHeaderDefault(t *testing.T) {
	r, _ := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("ACAO = %q, want *", got)
	}
}
