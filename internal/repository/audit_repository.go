package repository

import (
	"context"
	"fmt"

	"github.com/escolaviva/agenda/internal/model"
	"github.com/escolaviva/agenda/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

// insertAudit writes an audit row through q, which may be a transaction so
// the record commits or rolls back together with the write it describes.
func insertAudit(ctx context.Context, q base.Querier, rec *model.AuditLog) error {
	query := `
		INSERT INTO audit_log (user_id, action, entity, entity_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, at
	`

	err := q.QueryRow(ctx, query, rec.UserID, rec.Action, rec.Entity, rec.EntityID).
		Scan(&rec.ID, &rec.At)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}

	return nil
}

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Record writes a standalone audit row outside any transaction
func (r *AuditRepository) Record(ctx context.Context, rec *model.AuditLog) error {
	return insertAudit(ctx, r.pool, rec)
}
