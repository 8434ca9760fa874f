package withdrawal

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/starclip/starclip-api/internal/domain/audit"
	"github.com/starclip/starclip-api/internal/domain/earning"
	"github.com/starclip/starclip-api/internal/domain/wallet"
)

type PostgresStore struct {
	db      *sqlx.DB
	wallets *wallet.PostgresStore
}

func NewPostgresStore(db *sqlx.DB, wallets *wallet.PostgresStore) *PostgresStore {
	return &PostgresStore{db: db, wallets: wallets}
}

func (s *PostgresStore) pendingReservedTx(ctx context.Context, q sqlx.QueryerContext, creatorID uuid.UUID) (decimal.Decimal, error) {
	var reserved decimal.Decimal
	err := sqlx.GetContext(ctx, q, &reserved, `
		SELECT COALESCE(SUM(amount), 0)
		FROM withdrawals
		WHERE creator_id = $1 AND status = $2
	`, creatorID, string(StatusPending))
	return reserved, err
}

func (s *PostgresStore) pendingEarningsTx(ctx context.Context, q sqlx.QueryerContext, creatorID uuid.UUID) (decimal.Decimal, error) {
	var uncleared decimal.Decimal
	err := sqlx.GetContext(ctx, q, &uncleared, `
		SELECT COALESCE(SUM(net), 0)
		FROM earnings
		WHERE creator_id = $1 AND status = $2
	`, creatorID, string(earning.StatusPending))
	return uncleared, err
}

func (s *PostgresStore) Available(ctx context.Context, creatorID uuid.UUID) (decimal.Decimal, error) {
	balance, err := s.wallets.GetBalance(ctx, creatorID)
	if err != nil {
		return decimal.Zero, err
	}
	reserved, err := s.pendingReservedTx(ctx, s.db, creatorID)
	if err != nil {
		return decimal.Zero, err
	}
	uncleared, err := s.pendingEarningsTx(ctx, s.db, creatorID)
	if err != nil {
		return decimal.Zero, err
	}
	return balance.Sub(reserved).Sub(uncleared), nil
}

func (s *PostgresStore) Create(ctx context.Context, creatorID uuid.UUID, amount decimal.Decimal, method Method, details string) (*Withdrawal, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// The row lock on the wallet account is the serialization point: two
	// concurrent creates for the same creator queue here and the second one
	// sees the first one's reservation.
	balance, err := s.wallets.LockBalanceTx(ctx, tx, creatorID)
	if err != nil {
		return nil, err
	}
	reserved, err := s.pendingReservedTx(ctx, tx, creatorID)
	if err != nil {
		return nil, err
	}
	uncleared, err := s.pendingEarningsTx(ctx, tx, creatorID)
	if err != nil {
		return nil, err
	}

	available := balance.Sub(reserved).Sub(uncleared)
	if amount.GreaterThan(available) {
		return nil, ErrInsufficientAvailable
	}

	wd := &Withdrawal{
		ID:        uuid.New(),
		CreatorID: creatorID,
		Amount:    amount,
		Method:    method,
		Details:   details,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO withdrawals (id, creator_id, amount, method, details, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, wd.ID, wd.CreatorID, wd.Amount, string(wd.Method), wd.Details, string(wd.Status), wd.CreatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return wd, nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Withdrawal, error) {
	var wd Withdrawal
	err := s.db.GetContext(ctx, &wd, `
		SELECT id, creator_id, amount, method, details, status, created_at, processed_at
		FROM withdrawals WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wd, nil
}

func (s *PostgresStore) lockTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Withdrawal, error) {
	var wd Withdrawal
	err := tx.GetContext(ctx, &wd, `
		SELECT id, creator_id, amount, method, details, status, created_at, processed_at
		FROM withdrawals WHERE id = $1
		FOR UPDATE
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wd, nil
}

func (s *PostgresStore) Approve(ctx context.Context, id, actorID uuid.UUID) (*Withdrawal, *wallet.Transaction, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	wd, err := s.lockTx(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	if wd.Status != StatusPending {
		return nil, nil, ErrAlreadyProcessed
	}

	walletTx, err := s.wallets.ApplyTx(ctx, tx, wd.CreatorID, wd.Amount.Neg(), wallet.KindPayout, wd.ID.String())
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	wd.Status = StatusCompleted
	wd.ProcessedAt = &now
	if _, err := tx.ExecContext(ctx, `
		UPDATE withdrawals SET status = $1, processed_at = $2 WHERE id = $3
	`, string(wd.Status), wd.ProcessedAt, wd.ID); err != nil {
		return nil, nil, err
	}

	entry := audit.NewEntry("withdrawal.approve", "withdrawal", wd.ID.String(), actorID, map[string]interface{}{
		"creator_id": wd.CreatorID.String(),
		"amount":     wd.Amount.StringFixed(2),
		"method":     string(wd.Method),
	})
	if err := audit.InsertTx(ctx, tx, entry); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return wd, walletTx, nil
}

func (s *PostgresStore) Reject(ctx context.Context, id, actorID uuid.UUID) (*Withdrawal, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	wd, err := s.lockTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if wd.Status != StatusPending {
		return nil, ErrAlreadyProcessed
	}

	now := time.Now().UTC()
	wd.Status = StatusRejected
	wd.ProcessedAt = &now
	if _, err := tx.ExecContext(ctx, `
		UPDATE withdrawals SET status = $1, processed_at = $2 WHERE id = $3
	`, string(wd.Status), wd.ProcessedAt, wd.ID); err != nil {
		return nil, err
	}

	entry := audit.NewEntry("withdrawal.reject", "withdrawal", wd.ID.String(), actorID, map[string]interface{}{
		"creator_id": wd.CreatorID.String(),
		"amount":     wd.Amount.StringFixed(2),
	})
	if err := audit.InsertTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return wd, nil
}

func (s *PostgresStore) ListByCreator(ctx context.Context, creatorID uuid.UUID, limit, offset int) ([]Withdrawal, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var wds []Withdrawal
	err := s.db.SelectContext(ctx, &wds, `
		SELECT id, creator_id, amount, method, details, status, created_at, processed_at
		FROM withdrawals
		WHERE creator_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, creatorID, limit, offset)
	if err != nil {
		return nil, err
	}
	return wds, nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Withdrawal, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var wds []Withdrawal
	err := s.db.SelectContext(ctx, &wds, `
		SELECT id, creator_id, amount, method, details, status, created_at, processed_at
		FROM withdrawals
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	return wds, nil
}
