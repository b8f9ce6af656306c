package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"

	"github.com/mitchellrust/Hubletix-sub002/internal/config"
)

// streamOps is the slice of redis the per-message path needs. Narrow so the
// requeue/dead-letter decision can be exercised without a server.
type streamOps interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XAck(ctx context.Context, stream string, group string, ids ...string) *redis.IntCmd
}

// Worker consumes hero-image notifications from a Redis Stream consumer
// group. A fatal handler error re-enqueues the notification with backoff;
// once attempts are exhausted the original payload is routed to the
// dead-letter stream for manual inspection.
type Worker struct {
	rc      redis.UniversalClient
	streams streamOps
	cfg     config.WorkerConfig
	handler *Handler
}

func Init(ctx context.Context, rc redis.UniversalClient, cfg config.WorkerConfig, handler *Handler) *Producer {
	producer := NewProducer(rc, cfg.Stream, cfg.MaxLen)
	worker := NewWorker(rc, cfg, handler)

	go func() {
		if err := worker.Start(ctx); err != nil {
			log.Printf("[hero-worker] stopped: %v", err)
		}
	}()

	return producer
}

func NewWorker(rc redis.UniversalClient, cfg config.WorkerConfig, handler *Handler) *Worker {
	return &Worker{rc: rc, streams: rc, cfg: cfg, handler: handler}
}

func (w *Worker) EnsureGroup(ctx context.Context) error {
	// Without MkStream, Redis errors out when the group is created before any
	// message exists in the stream.
	err := w.rc.XGroupCreateMkStream(ctx, w.cfg.Stream, w.cfg.Group, "0").Err()
	// BUSYGROUP means the group already exists.
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (w *Worker) Start(ctx context.Context) error {
	if err := w.EnsureGroup(ctx); err != nil {
		return fmt.Errorf("failed to ensure Redis group: %w", err)
	}

	log.Printf("[hero-worker] starting consumer group=%s stream=%s workers=%d",
		w.cfg.Group, w.cfg.Stream, w.cfg.Workers,
	)

	// Adopt orphaned pending messages left behind by crashed consumers.
	w.autoClaim(ctx)

	errCh := make(chan error, w.cfg.Workers)
	for i := 0; i < w.cfg.Workers; i++ {
		id := i
		go func() {
			log.Printf("[hero-worker] worker #%d started", id)
			err := w.loop(ctx)
			if err != nil {
				log.Printf("[hero-worker] worker #%d stopped with error: %v", id, err)
			} else {
				log.Printf("[hero-worker] worker #%d stopped gracefully", id)
			}
			errCh <- err
		}()
	}

	select {
	case <-ctx.Done():
		log.Printf("[hero-worker] context canceled, stopping all workers")
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("worker loop exited with error: %w", err)
		}
		return nil
	}
}

// autoClaim takes ownership of messages that were delivered to other
// consumers but never acknowledged, so incomplete invocations are retried
// after a restart or worker crash.
func (w *Worker) autoClaim(ctx context.Context) {
	next := "0-0"

	minIdle := 30 * time.Second
	if w.cfg.BlockTimeout > 0 {
		if t := w.cfg.BlockTimeout * time.Second * 6; t > minIdle {
			minIdle = t
		}
	}

	for {
		msgs, start, err := w.rc.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   w.cfg.Stream,
			Group:    w.cfg.Group,
			Consumer: w.cfg.Consumer,
			MinIdle:  minIdle,
			Start:    next,
			Count:    100,
		}).Result()
		if err != nil || len(msgs) == 0 {
			return
		}
		next = start
	}
}

func (w *Worker) loop(ctx context.Context) error {
	for {
		// XREADGROUP marks returned messages as pending for this consumer;
		// they stay in the group's PEL until XACK in handle(). A crash before
		// XACK leaves them for autoClaim on the next startup.
		streams, err := w.rc.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    w.cfg.Group,
			Consumer: w.cfg.Consumer,
			Streams:  []string{w.cfg.Stream, ">"},
			Count:    1,
			Block:    w.cfg.BlockTimeout * time.Second,
		}).Result()
		if err != nil && err != redis.Nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		for _, s := range streams {
			for _, m := range s.Messages {
				_ = w.handle(ctx, m)
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, m redis.XMessage) error {
	raw, ok := m.Values["payload"].(string)
	if !ok {
		sentry.CaptureMessage(fmt.Sprintf("hero-worker: message %s has no payload", m.ID))
		w.ack(ctx, m.ID)
		return nil
	}
	var n Notification
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		sentry.CaptureException(fmt.Errorf("hero-worker: unmarshal message %s: %w", m.ID, err))
		w.ack(ctx, m.ID)
		return nil
	}
	attempt := toInt(m.Values["attempt"])

	_, err := w.handler.Handle(ctx, n, attempt)
	if err == nil {
		w.ack(ctx, m.ID)
		return nil
	}

	if attempt+1 >= w.cfg.MaxAttempts {
		w.deadLetter(ctx, raw, attempt+1, err)
		w.ack(ctx, m.ID)
		return nil
	}

	// Exponential backoff requeue. The message is acked only after the
	// delayed XAdd succeeds; until then it stays pending, so a crash inside
	// the backoff window re-delivers via autoClaim instead of dropping it.
	backoff := w.cfg.BackoffBase * time.Second << attempt
	msgID := m.ID
	time.AfterFunc(backoff, func() {
		ctx := context.Background()
		addErr := w.streams.XAdd(ctx, &redis.XAddArgs{
			Stream: w.cfg.Stream,
			MaxLen: w.cfg.MaxLen,
			Values: map[string]any{
				"payload": raw,
				"attempt": attempt + 1,
			},
		}).Err()
		if addErr != nil {
			log.Printf("[hero-worker] requeue of %s failed, left pending for auto-claim: %v", msgID, addErr)
			return
		}
		w.ack(ctx, msgID)
	})
	return err
}

func (w *Worker) ack(ctx context.Context, id string) {
	_ = w.streams.XAck(ctx, w.cfg.Stream, w.cfg.Group, id).Err()
}

// deadLetter parks the original payload on the dead-letter stream together
// with the final error, for manual inspection and requeueing.
func (w *Worker) deadLetter(ctx context.Context, raw string, attempts int, cause error) {
	sentry.CaptureException(fmt.Errorf("hero-worker: dead-lettering after %d attempts: %w", attempts, cause))
	log.Printf("[hero-worker] dead-lettering after %d attempts: %v", attempts, cause)

	err := w.streams.XAdd(ctx, &redis.XAddArgs{
		Stream: w.cfg.DeadStream,
		MaxLen: w.cfg.MaxLen,
		Values: map[string]any{
			"payload":   raw,
			"attempts":  attempts,
			"error":     cause.Error(),
			"failed_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		log.Printf("[hero-worker] failed to dead-letter message: %v", err)
	}
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case string:
		var x int
		fmt.Sscanf(t, "%d", &x)
		return x
	default:
		return 0
	}
}
