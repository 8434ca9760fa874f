package affiliate

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/starclip/starclip-api/internal/domain/audit"
)

type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Tiers(ctx context.Context) ([]Tier, error) {
	var tiers []Tier
	err := s.db.SelectContext(ctx, &tiers, `
		SELECT name, threshold, rate_percent
		FROM affiliate_tiers
		ORDER BY threshold ASC
	`)
	if err != nil {
		return nil, err
	}
	return tiers, nil
}

func (s *PostgresStore) ReplaceTiers(ctx context.Context, tiers []Tier, actorID uuid.UUID) error {
	if len(tiers) == 0 {
		return ErrInvalidTiers
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM affiliate_tiers`); err != nil {
		return err
	}
	for _, t := range tiers {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO affiliate_tiers (name, threshold, rate_percent)
			VALUES ($1, $2, $3)
		`, t.Name, t.Threshold, t.RatePercent); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(tiers))
	for _, t := range tiers {
		names = append(names, t.Name)
	}
	entry := audit.NewEntry("affiliate.tiers.replace", "affiliate_tiers", "config", actorID, map[string]interface{}{
		"tiers": names,
	})
	if err := audit.InsertTx(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *PostgresStore) Create(ctx context.Context, c *Commission) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO affiliate_commissions (id, affiliate_id, referred_user_id, type, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.AffiliateID, c.ReferredUserID, string(c.Type), c.Amount, string(c.Status), c.CreatedAt)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Commission, error) {
	var c Commission
	err := s.db.GetContext(ctx, &c, `
		SELECT id, affiliate_id, referred_user_id, type, amount, status, created_at, paid_at
		FROM affiliate_commissions WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) ListByAffiliate(ctx context.Context, affiliateID uuid.UUID, status Status, limit, offset int) ([]Commission, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var cs []Commission
	var err error
	if status == "" {
		err = s.db.SelectContext(ctx, &cs, `
			SELECT id, affiliate_id, referred_user_id, type, amount, status, created_at, paid_at
			FROM affiliate_commissions
			WHERE affiliate_id = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3
		`, affiliateID, limit, offset)
	} else {
		err = s.db.SelectContext(ctx, &cs, `
			SELECT id, affiliate_id, referred_user_id, type, amount, status, created_at, paid_at
			FROM affiliate_commissions
			WHERE affiliate_id = $1 AND status = $2
			ORDER BY created_at DESC
			LIMIT $3 OFFSET $4
		`, affiliateID, string(status), limit, offset)
	}
	if err != nil {
		return nil, err
	}
	return cs, nil
}

func (s *PostgresStore) ConfirmedTotal(ctx context.Context, affiliateID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(amount), 0)
		FROM affiliate_commissions
		WHERE affiliate_id = $1 AND status IN ($2, $3)
	`, affiliateID, string(StatusConfirmed), string(StatusPaid))
	return total, err
}

func (s *PostgresStore) lockTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Commission, error) {
	var c Commission
	err := tx.GetContext(ctx, &c, `
		SELECT id, affiliate_id, referred_user_id, type, amount, status, created_at, paid_at
		FROM affiliate_commissions WHERE id = $1
		FOR UPDATE
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) transition(ctx context.Context, id, actorID uuid.UUID, check func(*Commission) error, apply func(*Commission), action string) (*Commission, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c, err := s.lockTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := check(c); err != nil {
		return nil, err
	}
	apply(c)

	if _, err := tx.ExecContext(ctx, `
		UPDATE affiliate_commissions SET status = $1, paid_at = $2 WHERE id = $3
	`, string(c.Status), c.PaidAt, c.ID); err != nil {
		return nil, err
	}

	entry := audit.NewEntry(action, "affiliate_commission", c.ID.String(), actorID, map[string]interface{}{
		"affiliate_id": c.AffiliateID.String(),
		"amount":       c.Amount.StringFixed(2),
	})
	if err := audit.InsertTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) Confirm(ctx context.Context, id, actorID uuid.UUID) (*Commission, error) {
	return s.transition(ctx, id, actorID,
		func(c *Commission) error {
			if c.Status != StatusPending {
				return ErrAlreadyProcessed
			}
			return nil
		},
		func(c *Commission) { c.Status = StatusConfirmed },
		"commission.confirm")
}

func (s *PostgresStore) Pay(ctx context.Context, id, actorID uuid.UUID) (*Commission, error) {
	return s.transition(ctx, id, actorID,
		func(c *Commission) error {
			switch c.Status {
			case StatusConfirmed:
				return nil
			case StatusPaid:
				return ErrAlreadyProcessed
			default:
				return ErrNotConfirmed
			}
		},
		func(c *Commission) {
			now := time.Now().UTC()
			c.Status = StatusPaid
			c.PaidAt = &now
		},
		"commission.pay")
}

func (s *PostgresStore) Cancel(ctx context.Context, id, actorID uuid.UUID) (*Commission, error) {
	return s.transition(ctx, id, actorID,
		func(c *Commission) error {
			if c.Status != StatusPending {
				return ErrAlreadyProcessed
			}
			return nil
		},
		func(c *Commission) { c.Status = StatusCancelled },
		"commission.cancel")
}
