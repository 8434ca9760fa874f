package audit

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Repository reads audit entries. Writes go through InsertTx so they commit
// atomically with the mutation they describe.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// InsertTx appends an audit entry within an external transaction.
func InsertTx(ctx context.Context, tx *sqlx.Tx, e Entry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_log (id, action, entity, entity_id, actor_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.Action, e.Entity, e.EntityID, e.ActorID, []byte(e.Details), e.CreatedAt)
	return err
}

// List returns audit entries, newest first.
func (r *Repository) List(ctx context.Context, entity string, limit, offset int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var entries []Entry
	var err error
	if entity != "" {
		err = r.db.SelectContext(ctx, &entries, `
			SELECT id, action, entity, entity_id, actor_id, details, created_at
			FROM audit_log
			WHERE entity = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3
		`, entity, limit, offset)
	} else {
		err = r.db.SelectContext(ctx, &entries, `
			SELECT id, action, entity, entity_id, actor_id, details, created_at
			FROM audit_log
			ORDER BY created_at DESC
			LIMIT $1 OFFSET $2
		`, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	return entries, nil
}
