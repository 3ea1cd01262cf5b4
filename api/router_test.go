package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/mapleads/api/handler"
	"github.com/use-agent/mapleads/batch"
	"github.com/use-agent/mapleads/cache"
	"github.com/use-agent/mapleads/config"
	"github.com/use-agent/mapleads/models"
	"github.com/use-agent/mapleads/scraper"
	"github.com/use-agent/mapleads/store"
)

const testKey = "test-key"

type stubSearcher struct {
	calls   int
	block   chan struct{}
	started chan struct{}
}

func (s *stubSearcher) Search(ctx context.Context, job models.SearchJob, sink func(*models.BusinessRecord)) (scraper.SearchResult, error) {
	s.calls++
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
	sink(&models.BusinessRecord{Name: "Café Luna", Address: "Calle Mayor 1", Email: "info@cafeluna.com"})
	sink(&models.BusinessRecord{Name: "Bar Sol", Category: "Bar"})
	return scraper.SearchResult{Job: job, Loaded: 2, Extracted: 2}, nil
}

type stubFinder struct{}

func (stubFinder) Find(_ context.Context, rawURL string) (string, bool) {
	if rawURL == "cafeluna.com" {
		return "info@cafeluna.com", true
	}
	return "", false
}

type testServer struct {
	router   *gin.Engine
	searcher *stubSearcher
	records  *store.RecordStore
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	cfg := config.Load()
	cfg.Server.Mode = gin.TestMode
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = []string{testKey}
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100}
	if mutate != nil {
		mutate(cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := &stubSearcher{}
	records := store.New(7, logger)
	runner := batch.New(s, cache.New(cache.NewMemoryBackend(10), logger), records,
		batch.Options{CacheTTL: time.Hour}, logger)
	jobs := handler.NewBatchJobs(time.Hour)
	t.Cleanup(jobs.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r := NewRouter(ctx, Deps{
		Runner:  runner,
		Records: records,
		Finder:  stubFinder{},
		Jobs:    jobs,
		Logger:  logger,
	}, cfg, time.Now())
	return &testServer{router: r, searcher: s, records: records}
}

func (ts *testServer) do(method, path, body string, authed bool) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+testKey)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

const searchBody = `{"category":"cafeterías","location":"Madrid","max_results":5}`

func TestHealth_NoAuth(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.do(http.MethodGet, "/api/v1/health", "", false)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	h := decode[models.HealthResponse](t, w)
	if h.Status != "healthy" || h.Busy || h.Version != handler.Version {
		t.Errorf("health = %+v", h)
	}
}

func TestAuth(t *testing.T) {
	ts := newTestServer(t, nil)

	if w := ts.do(http.MethodPost, "/api/v1/search", searchBody, false); w.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	req.Header.Set("X-API-Key", "wrong")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong key status = %d, want 401", w.Code)
	}
	if e := decode[models.ErrorResponse](t, w); e.Error == nil || e.Error.Code != models.ErrCodeUnauthorized {
		t.Errorf("error = %+v", e.Error)
	}
}

func TestSearch(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodPost, "/api/v1/search", searchBody, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decode[models.SearchResponse](t, w)
	if !resp.Success || len(resp.Records) != 2 || resp.Result == nil || resp.Result.Accepted != 2 {
		t.Errorf("response = %+v", resp)
	}
	if resp.Records[0].SearchGroup != "cafeterías_Madrid" {
		t.Errorf("SearchGroup = %q", resp.Records[0].SearchGroup)
	}

	// Same query again is answered from the cache with the same records.
	w = ts.do(http.MethodPost, "/api/v1/search", searchBody, true)
	resp = decode[models.SearchResponse](t, w)
	if ts.searcher.calls != 1 || !resp.Result.FromCache || len(resp.Records) != 2 {
		t.Errorf("second search: calls = %d, result = %+v, records = %d", ts.searcher.calls, resp.Result, len(resp.Records))
	}
}

func TestSearch_InvalidInput(t *testing.T) {
	ts := newTestServer(t, nil)
	for _, body := range []string{
		`{"category":"bares","max_results":5}`,
		`{"category":"bares","location":"Sevilla","max_results":0}`,
		`not json`,
	} {
		w := ts.do(http.MethodPost, "/api/v1/search", body, true)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, w.Code)
		}
	}
	if ts.searcher.calls != 0 {
		t.Errorf("searcher calls = %d, want 0", ts.searcher.calls)
	}
}

func TestSearch_BusySession(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.searcher.block = make(chan struct{})
	ts.searcher.started = make(chan struct{}, 1)

	done := make(chan int, 1)
	go func() {
		done <- ts.do(http.MethodPost, "/api/v1/search", searchBody, true).Code
	}()
	<-ts.searcher.started

	w := ts.do(http.MethodPost, "/api/v1/search", `{"category":"bares","location":"Madrid","max_results":1}`, true)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
	if resp := decode[models.SearchResponse](t, w); resp.Error == nil || resp.Error.Code != models.ErrCodeSessionBusy {
		t.Errorf("error = %+v", resp.Error)
	}

	close(ts.searcher.block)
	if code := <-done; code != http.StatusOK {
		t.Errorf("first search status = %d", code)
	}
}

func TestBatchLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodPost, "/api/v1/batch",
		`{"jobs":[{"category":"cafeterías","location":"Madrid","max_results":5},{"category":"bares","location":"Madrid","max_results":5}]}`, true)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	created := decode[models.BatchResponse](t, w)
	if created.ID == "" || created.Total != 2 || created.Status != models.BatchProcessing {
		t.Fatalf("created = %+v", created)
	}

	var status models.BatchStatusResponse
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		status = decode[models.BatchStatusResponse](t, ts.do(http.MethodGet, "/api/v1/batch/"+created.ID, "", true))
		if status.Status != models.BatchProcessing {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if status.Status != models.BatchCompleted || status.Outcome == nil || len(status.Outcome.Results) != 2 {
		t.Fatalf("status = %+v", status)
	}
	// The second job returns the same businesses, which dedup drops.
	if status.Outcome.Results[1].Accepted != 0 || ts.records.Len() != 2 {
		t.Errorf("second job accepted %d, store has %d", status.Outcome.Results[1].Accepted, ts.records.Len())
	}

	if w := ts.do(http.MethodGet, "/api/v1/batch/batch-missing", "", true); w.Code != http.StatusNotFound {
		t.Errorf("missing batch status = %d, want 404", w.Code)
	}
}

func TestRecordsAndReport(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.records.Add(models.BusinessRecord{Name: "Café Luna", Phone: "912 345 678"}, "a")
	ts.records.Add(models.BusinessRecord{Name: "Bar Sol"}, "b")

	all := decode[models.RecordsResponse](t, ts.do(http.MethodGet, "/api/v1/records", "", true))
	if all.Total != 2 {
		t.Errorf("records total = %d, want 2", all.Total)
	}
	group := decode[models.RecordsResponse](t, ts.do(http.MethodGet, "/api/v1/records?group=b", "", true))
	if group.Total != 1 || group.Records[0].Name != "Bar Sol" {
		t.Errorf("group records = %+v", group)
	}
	none := decode[models.RecordsResponse](t, ts.do(http.MethodGet, "/api/v1/records?group=zzz", "", true))
	if none.Total != 0 || none.Records == nil {
		t.Errorf("empty group = %+v", none)
	}

	report := decode[models.Summary](t, ts.do(http.MethodGet, "/api/v1/report", "", true))
	if report.Total != 2 || report.WithValidPhone != 1 || report.Groups["a"] != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestEmail(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := decode[models.EmailResponse](t, ts.do(http.MethodPost, "/api/v1/email", `{"url":"cafeluna.com"}`, true))
	if !resp.Found || resp.Email != "info@cafeluna.com" {
		t.Errorf("email = %+v", resp)
	}
	if w := ts.do(http.MethodPost, "/api/v1/email", `{}`, true); w.Code != http.StatusBadRequest {
		t.Errorf("missing url status = %d, want 400", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.01, Burst: 1}
	})

	if w := ts.do(http.MethodGet, "/api/v1/report", "", true); w.Code != http.StatusOK {
		t.Fatalf("first status = %d", w.Code)
	}
	w := ts.do(http.MethodGet, "/api/v1/report", "", true)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "100" {
		t.Errorf("Retry-After = %q, want 100", w.Header().Get("Retry-After"))
	}
}
