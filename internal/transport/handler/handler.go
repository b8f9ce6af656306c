package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/mitchellrust/Hubletix-sub002/internal/config"
	"github.com/mitchellrust/Hubletix-sub002/internal/entities"
	"github.com/mitchellrust/Hubletix-sub002/internal/queue"
	"github.com/mitchellrust/Hubletix-sub002/internal/r2"
	"github.com/mitchellrust/Hubletix-sub002/internal/redismanager"
	use_case "github.com/mitchellrust/Hubletix-sub002/internal/use-case"
)

type Enqueuer interface {
	EnqueueProcess(ctx context.Context, n queue.Notification) error
}

type SyncHandler interface {
	Handle(ctx context.Context, n queue.Notification, attempt int) (*entities.ProcessingResult, error)
}

type ResultStore interface {
	GetResult(ctx context.Context, imageKey string) (*entities.ProcessingResult, error)
	Remove(ctx context.Context, imageKey string) error
}

type DLQ interface {
	List(ctx context.Context, count int64) ([]redismanager.DeadNotification, error)
	Count(ctx context.Context) (int64, error)
	Retry(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type Handler struct {
	producer  Enqueuer
	events    SyncHandler
	results   ResultStore
	dlq       DLQ
	cfg       *config.Config
	validator *validator.Validate
}

func New(producer Enqueuer, events SyncHandler, results ResultStore, dlq DLQ, cfg *config.Config) *Handler {
	return &Handler{
		producer:  producer,
		events:    events,
		results:   results,
		dlq:       dlq,
		cfg:       cfg,
		validator: validator.New(),
	}
}

// IngestEvent validates the notification envelope and enqueues it for
// asynchronous processing on the delivery stream.
func (h *Handler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	n, ok := h.decodeNotification(w, r)
	if !ok {
		return
	}

	if err := h.producer.EnqueueProcess(r.Context(), n); err != nil {
		writeJSONError(w, "failed to enqueue notification: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":   "queued",
		"imageKey": n.Detail.ImageKey,
	})
}

// ProcessEventSync runs one invocation inline and returns the result. Used
// for backfills and manual replays; production traffic goes through the stream.
func (h *Handler) ProcessEventSync(w http.ResponseWriter, r *http.Request) {
	n, ok := h.decodeNotification(w, r)
	if !ok {
		return
	}

	res, err := h.events.Handle(r.Context(), n, 0)
	if err != nil {
		switch {
		case errors.Is(err, use_case.ErrMalformedKey):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, r2.ErrNotFound):
			writeJSONError(w, err.Error(), http.StatusNotFound)
		default:
			writeJSONError(w, err.Error(), http.StatusBadGateway)
		}
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// GetResult serves the cached outcome of the latest invocation for an image.
func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	imageID := chi.URLParam(r, "imageID")

	imageKey := fmt.Sprintf("tenant-%s/%s", tenantID, imageID)
	res, err := h.results.GetResult(r.Context(), imageKey)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			writeJSONError(w, "no recent result for "+imageKey, http.StatusNotFound)
			return
		}
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// DeleteResult evicts the cached outcome for an image, forcing the next
// lookup to miss until a new invocation completes.
func (h *Handler) DeleteResult(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	imageID := chi.URLParam(r, "imageID")

	imageKey := fmt.Sprintf("tenant-%s/%s", tenantID, imageID)
	if err := h.results.Remove(r.Context(), imageKey); err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDLQ returns the parked notifications awaiting manual inspection.
func (h *Handler) ListDLQ(w http.ResponseWriter, r *http.Request) {
	count, err := h.dlq.Count(r.Context())
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	items, err := h.dlq.List(r.Context(), 100)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count": count,
		"items": items,
	})
}

// RetryDLQ requeues one dead notification onto the delivery stream.
func (h *Handler) RetryDLQ(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.dlq.Retry(r.Context(), id); err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteDLQ discards one dead notification without requeueing it.
func (h *Handler) DeleteDLQ(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.dlq.Delete(r.Context(), id); err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) decodeNotification(w http.ResponseWriter, r *http.Request) (queue.Notification, bool) {
	var n queue.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		writeJSONError(w, "invalid notification payload: "+err.Error(), http.StatusBadRequest)
		return n, false
	}

	if err := h.validator.Struct(n); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(validationErrorsToMap(err))
		return n, false
	}

	return n, true
}
