package redismanager

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// streamClient is the slice of redis the manager needs. A
// redis.UniversalClient satisfies it; tests substitute an in-memory stream.
type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XRange(ctx context.Context, stream, start, stop string) *redis.XMessageSliceCmd
	XRangeN(ctx context.Context, stream, start, stop string, count int64) *redis.XMessageSliceCmd
	XLen(ctx context.Context, stream string) *redis.IntCmd
	XDel(ctx context.Context, stream string, ids ...string) *redis.IntCmd
}

// Manager exposes the small set of redis verbs operators need against the
// dead-letter stream: list, count, requeue, delete.
type Manager struct {
	client     streamClient
	stream     string
	deadStream string
	maxLen     int64
}

func NewManager(redisClient streamClient, stream, deadStream string, maxLen int64) *Manager {
	return &Manager{
		client:     redisClient,
		stream:     stream,
		deadStream: deadStream,
		maxLen:     maxLen,
	}
}

// DeadNotification is one parked entry of the dead-letter stream.
type DeadNotification struct {
	ID       string          `json:"id"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
	Error    string          `json:"error"`
	FailedAt string          `json:"failed_at"`
}

// List returns up to count dead notifications, oldest first.
func (m *Manager) List(ctx context.Context, count int64) ([]DeadNotification, error) {
	msgs, err := m.client.XRangeN(ctx, m.deadStream, "-", "+", count).Result()
	if err != nil {
		return nil, err
	}

	dead := make([]DeadNotification, 0, len(msgs))
	for _, msg := range msgs {
		dead = append(dead, fromMessage(msg))
	}
	return dead, nil
}

// Count returns the number of parked notifications.
func (m *Manager) Count(ctx context.Context) (int64, error) {
	n, err := m.client.XLen(ctx, m.deadStream).Result()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// Retry moves one dead notification back onto the delivery stream with a
// fresh attempt counter.
func (m *Manager) Retry(ctx context.Context, id string) error {
	msgs, err := m.client.XRange(ctx, m.deadStream, id, id).Result()
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return fmt.Errorf("dead notification %s not found", id)
	}

	payload, ok := msgs[0].Values["payload"].(string)
	if !ok {
		return fmt.Errorf("dead notification %s has no payload", id)
	}

	err = m.client.XAdd(ctx, &redis.XAddArgs{
		Stream: m.stream,
		MaxLen: m.maxLen,
		Values: map[string]any{
			"payload": payload,
			"attempt": 0,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to re-enqueue %s: %w", id, err)
	}

	return m.client.XDel(ctx, m.deadStream, id).Err()
}

// Delete removes one dead notification without requeueing it.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.client.XDel(ctx, m.deadStream, id).Err()
}

func fromMessage(msg redis.XMessage) DeadNotification {
	d := DeadNotification{ID: msg.ID}
	if s, ok := msg.Values["payload"].(string); ok {
		d.Payload = json.RawMessage(s)
	}
	if s, ok := msg.Values["error"].(string); ok {
		d.Error = s
	}
	if s, ok := msg.Values["failed_at"].(string); ok {
		d.FailedAt = s
	}
	if s, ok := msg.Values["attempts"].(string); ok {
		fmt.Sscanf(s, "%d", &d.Attempts)
	}
	return d
}
