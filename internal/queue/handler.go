package queue

import (
	"context"
	"log"
	"time"

	"github.com/mitchellrust/Hubletix-sub002/internal/entities"
)

type Orchestrator interface {
	Process(ctx context.Context, ref entities.SourceImageRef) (*entities.ProcessingResult, error)
}

// ResultCache keeps the latest result per source key for operator lookups.
type ResultCache interface {
	StoreResult(ctx context.Context, imageKey string, res *entities.ProcessingResult) error
}

// InvocationRecorder persists one audit row per processing attempt.
type InvocationRecorder interface {
	RecordInvocation(ctx context.Context, res *entities.ProcessingResult, attempt int, took time.Duration) error
}

// Handler adapts one inbound notification to an orchestrator call. Fatal
// errors are returned unchanged so the delivery substrate's retry and
// dead-letter policy applies; per-variant failures stay inside the result.
type Handler struct {
	orch  Orchestrator
	cache ResultCache        // optional
	audit InvocationRecorder // optional
}

func NewHandler(orch Orchestrator, cache ResultCache, audit InvocationRecorder) *Handler {
	return &Handler{orch: orch, cache: cache, audit: audit}
}

func (h *Handler) Handle(ctx context.Context, n Notification, attempt int) (*entities.ProcessingResult, error) {
	log.Printf("[hero-handler] event type=%q source=%q time=%q attempt=%d",
		n.DetailType, n.Source, n.Time, attempt)
	log.Printf("[hero-handler] dispatching key=%s url=%s", n.Detail.ImageKey, n.Detail.CanonicalURL)

	start := time.Now()
	res, err := h.orch.Process(ctx, n.Detail)
	if err != nil {
		log.Printf("[hero-handler] fatal: key=%s err=%v", n.Detail.ImageKey, err)
		return nil, err
	}

	took := time.Since(start)
	log.Printf("[hero-handler] done key=%s ok=%d failed=%d took=%s",
		n.Detail.ImageKey, len(res.SuccessfulVariants), len(res.FailedVariants), took)

	// Cache and audit are best effort; they never fail the invocation.
	if h.cache != nil {
		if err := h.cache.StoreResult(ctx, n.Detail.ImageKey, res); err != nil {
			log.Printf("[hero-handler] result cache store failed: %v", err)
		}
	}
	if h.audit != nil {
		if err := h.audit.RecordInvocation(ctx, res, attempt, took); err != nil {
			log.Printf("[hero-handler] audit record failed: %v", err)
		}
	}

	return res, nil
}
