package earning

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, e *Earning) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO earnings (id, creator_id, request_id, gross, fee, net, status, created_at, cleared_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.CreatorID, e.RequestID, e.Gross, e.Fee, e.Net, string(e.Status), e.CreatedAt, e.ClearedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateRequest
		}
		return err
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Earning, error) {
	var e Earning
	err := s.db.GetContext(ctx, &e, `
		SELECT id, creator_id, request_id, gross, fee, net, status, created_at, cleared_at
		FROM earnings WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *PostgresStore) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*Earning, error) {
	var e Earning
	err := s.db.GetContext(ctx, &e, `
		SELECT id, creator_id, request_id, gross, fee, net, status, created_at, cleared_at
		FROM earnings WHERE request_id = $1
	`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *PostgresStore) ListByCreator(ctx context.Context, creatorID uuid.UUID, limit, offset int) ([]Earning, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var earnings []Earning
	err := s.db.SelectContext(ctx, &earnings, `
		SELECT id, creator_id, request_id, gross, fee, net, status, created_at, cleared_at
		FROM earnings
		WHERE creator_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, creatorID, limit, offset)
	if err != nil {
		return nil, err
	}
	return earnings, nil
}

func (s *PostgresStore) ClearDue(ctx context.Context, cutoff time.Time) ([]Earning, error) {
	var cleared []Earning
	err := s.db.SelectContext(ctx, &cleared, `
		UPDATE earnings
		SET status = $1, cleared_at = now()
		WHERE status = $2 AND created_at <= $3
		RETURNING id, creator_id, request_id, gross, fee, net, status, created_at, cleared_at
	`, string(StatusCompleted), string(StatusPending), cutoff)
	if err != nil {
		return nil, err
	}
	return cleared, nil
}

func (s *PostgresStore) MarkRefunded(ctx context.Context, id uuid.UUID) (*Earning, error) {
	var e Earning
	err := s.db.GetContext(ctx, &e, `
		UPDATE earnings
		SET status = $1
		WHERE id = $2 AND status = $3
		RETURNING id, creator_id, request_id, gross, fee, net, status, created_at, cleared_at
	`, string(StatusRefunded), id, string(StatusPending))
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish missing from already-cleared.
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrNotRefundable
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *PostgresStore) SumPendingNet(ctx context.Context, creatorID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := s.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(net), 0)
		FROM earnings
		WHERE creator_id = $1 AND status = $2
	`, creatorID, string(StatusPending))
	return sum, err
}
