package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mitchellrust/Hubletix-sub002/internal/entities"
)

// dbStorage is a write-only audit log of processing invocations. Nothing in
// the pipeline reads it back; it exists for operators.
type dbStorage struct {
	dbpool *pgxpool.Pool
}

func New(ctx context.Context, databaseDSN string) (*dbStorage, error) {
	pool, err := pgxpool.New(ctx, databaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &dbStorage{dbpool: pool}, nil
}

func (s *dbStorage) Ping(ctx context.Context) error {
	return s.dbpool.Ping(ctx)
}

func (s *dbStorage) Close() {
	s.dbpool.Close()
}

// RecordInvocation inserts one row per processing attempt.
func (s *dbStorage) RecordInvocation(ctx context.Context, res *entities.ProcessingResult, attempt int, took time.Duration) error {
	failedDetail, err := json.Marshal(res.FailedVariants)
	if err != nil {
		return fmt.Errorf("marshal failed variants: %w", err)
	}

	_, err = s.dbpool.Exec(ctx, `
		INSERT INTO hero_invocations
			(tenant_id, image_id, succeeded, failed, failed_detail, attempt, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		res.TenantID,
		res.ImageID,
		len(res.SuccessfulVariants),
		len(res.FailedVariants),
		failedDetail,
		attempt,
		took.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert invocation: %w", err)
	}
	return nil
}
