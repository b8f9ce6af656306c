package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/mitchellrust/Hubletix-sub002/internal/config"
	"github.com/mitchellrust/Hubletix-sub002/internal/entities"
	"github.com/mitchellrust/Hubletix-sub002/internal/queue"
	"github.com/mitchellrust/Hubletix-sub002/internal/redismanager"
	"github.com/mitchellrust/Hubletix-sub002/internal/transport/handler"
	"github.com/mitchellrust/Hubletix-sub002/internal/transport/router"
	use_case "github.com/mitchellrust/Hubletix-sub002/internal/use-case"
)

type stubEnqueuer struct {
	enqueued []queue.Notification
	err      error
}

func (s *stubEnqueuer) EnqueueProcess(_ context.Context, n queue.Notification) error {
	s.enqueued = append(s.enqueued, n)
	return s.err
}

type stubSync struct {
	res *entities.ProcessingResult
	err error
}

func (s *stubSync) Handle(_ context.Context, _ queue.Notification, _ int) (*entities.ProcessingResult, error) {
	return s.res, s.err
}

type stubResults struct {
	res     map[string]*entities.ProcessingResult
	removed []string
}

func (s *stubResults) GetResult(_ context.Context, imageKey string) (*entities.ProcessingResult, error) {
	if r, ok := s.res[imageKey]; ok {
		return r, nil
	}
	return nil, redis.Nil
}

func (s *stubResults) Remove(_ context.Context, imageKey string) error {
	s.removed = append(s.removed, imageKey)
	return nil
}

type stubDLQ struct {
	retried []string
	deleted []string
}

func (s *stubDLQ) List(context.Context, int64) ([]redismanager.DeadNotification, error) {
	return nil, nil
}
func (s *stubDLQ) Count(context.Context) (int64, error) { return 0, nil }
func (s *stubDLQ) Retry(_ context.Context, id string) error {
	s.retried = append(s.retried, id)
	return nil
}
func (s *stubDLQ) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func newTestServer(enq *stubEnqueuer, sync *stubSync, results *stubResults, dlq *stubDLQ) *httptest.Server {
	h := handler.New(enq, sync, results, dlq, config.NewConfig())
	return httptest.NewServer(router.NewRouter(h))
}

func do(t *testing.T, method, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	return resp
}

const validEvent = `{"detail":{"canonicalUrl":"https://t7.example/hero.jpg","imageKey":"tenant-7/img9"},"detail-type":"HeroImageChanged","source":"hubletix.web","time":"2025-06-01T12:00:00Z"}`

func TestIngestEventQueues(t *testing.T) {
	enq := &stubEnqueuer{}
	srv := newTestServer(enq, &stubSync{}, &stubResults{}, &stubDLQ{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/hero-events", "application/json", strings.NewReader(validEvent))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if len(enq.enqueued) != 1 || enq.enqueued[0].Detail.ImageKey != "tenant-7/img9" {
		t.Errorf("enqueued = %+v", enq.enqueued)
	}
}

func TestIngestEventRejectsMissingKey(t *testing.T) {
	enq := &stubEnqueuer{}
	srv := newTestServer(enq, &stubSync{}, &stubResults{}, &stubDLQ{})
	defer srv.Close()

	body := `{"detail":{"canonicalUrl":"https://t7.example/hero.jpg"},"detail-type":"HeroImageChanged"}`
	resp, err := http.Post(srv.URL+"/api/hero-events", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if len(enq.enqueued) != 0 {
		t.Error("invalid envelope must not be enqueued")
	}
}

func TestProcessEventSyncMapsFatalErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"malformed key", fmt.Errorf("parse: %w", use_case.ErrMalformedKey), http.StatusBadRequest},
		{"other fatal", fmt.Errorf("storage unreachable"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&stubEnqueuer{}, &stubSync{err: tt.err}, &stubResults{}, &stubDLQ{})
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/api/hero-events/sync", "application/json", strings.NewReader(validEvent))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestGetResult(t *testing.T) {
	results := &stubResults{res: map[string]*entities.ProcessingResult{
		"tenant-7/img9": {TenantID: "7", ImageID: "img9"},
	}}
	srv := newTestServer(&stubEnqueuer{}, &stubSync{}, results, &stubDLQ{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/results/7/img9")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/results/7/unknown")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for uncached image", resp.StatusCode)
	}
}

func TestDeleteResultEvictsCacheEntry(t *testing.T) {
	results := &stubResults{}
	srv := newTestServer(&stubEnqueuer{}, &stubSync{}, results, &stubDLQ{})
	defer srv.Close()

	resp := do(t, http.MethodDelete, srv.URL+"/api/results/7/img9")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if len(results.removed) != 1 || results.removed[0] != "tenant-7/img9" {
		t.Errorf("removed = %v, want the reassembled source key", results.removed)
	}
}

func TestRetryDLQ(t *testing.T) {
	dlq := &stubDLQ{}
	srv := newTestServer(&stubEnqueuer{}, &stubSync{}, &stubResults{}, dlq)
	defer srv.Close()

	resp := do(t, http.MethodPost, srv.URL+"/api/dlq/1687000000-0/retry")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if len(dlq.retried) != 1 || dlq.retried[0] != "1687000000-0" {
		t.Errorf("retried = %v", dlq.retried)
	}
	if len(dlq.deleted) != 0 {
		t.Error("retry must not hit the delete verb")
	}
}

func TestDeleteDLQ(t *testing.T) {
	dlq := &stubDLQ{}
	srv := newTestServer(&stubEnqueuer{}, &stubSync{}, &stubResults{}, dlq)
	defer srv.Close()

	resp := do(t, http.MethodDelete, srv.URL+"/api/dlq/1687000000-0")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if len(dlq.deleted) != 1 || dlq.deleted[0] != "1687000000-0" {
		t.Errorf("deleted = %v", dlq.deleted)
	}
	if len(dlq.retried) != 0 {
		t.Error("delete must not requeue")
	}
}
