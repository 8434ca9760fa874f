package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/starclip/starclip-api/internal/domain/audit"
)

// PostgresStore implements Store on Postgres. Per-account serialization uses
// SELECT ... FOR UPDATE on the wallet_accounts row.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureAccount(ctx context.Context, ownerID uuid.UUID, currency string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallet_accounts (owner_id, balance, currency)
		VALUES ($1, 0, $2)
		ON CONFLICT (owner_id) DO NOTHING
	`, ownerID, currency)
	return err
}

func (s *PostgresStore) GetAccount(ctx context.Context, ownerID uuid.UUID) (*Account, error) {
	var acc Account
	err := s.db.GetContext(ctx, &acc, `
		SELECT owner_id, balance, currency, version, updated_at
		FROM wallet_accounts
		WHERE owner_id = $1
	`, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *PostgresStore) GetBalance(ctx context.Context, ownerID uuid.UUID) (decimal.Decimal, error) {
	if err := s.EnsureAccount(ctx, ownerID, defaultCurrency); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err := s.db.GetContext(ctx, &balance, `SELECT balance FROM wallet_accounts WHERE owner_id = $1`, ownerID)
	return balance, err
}

const defaultCurrency = "USD"

func (s *PostgresStore) beginTx(ctx context.Context) (*sqlx.Tx, error) {
	return s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

// LockBalanceTx locks the account row inside an external transaction and
// returns the current balance. Used by stores that must pair an availability
// check with their own insert atomically.
func (s *PostgresStore) LockBalanceTx(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID) (decimal.Decimal, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_accounts (owner_id, balance, currency)
		VALUES ($1, 0, $2)
		ON CONFLICT (owner_id) DO NOTHING
	`, ownerID, defaultCurrency); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err := tx.GetContext(ctx, &balance, `SELECT balance FROM wallet_accounts WHERE owner_id = $1 FOR UPDATE`, ownerID)
	return balance, err
}

func (s *PostgresStore) findByReferenceTx(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID, kind TransactionKind, referenceID string) (*Transaction, bool, error) {
	if referenceID == "" {
		return nil, false, nil
	}

	var t Transaction
	err := tx.GetContext(ctx, &t, `
		SELECT id, account_id, kind, amount, status, reference_id, created_at
		FROM wallet_transactions
		WHERE account_id = $1 AND kind = $2 AND reference_id = $3
		LIMIT 1
	`, ownerID, string(kind), referenceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &t, true, nil
}

func (s *PostgresStore) updateBalanceTx(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID, balance decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallet_accounts
		SET balance = $1, version = version + 1, updated_at = now()
		WHERE owner_id = $2
	`, balance, ownerID)
	return err
}

func (s *PostgresStore) insertTransactionTx(ctx context.Context, tx *sqlx.Tx, t *Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions (id, account_id, kind, amount, status, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.AccountID, string(t.Kind), t.Amount, string(t.Status), t.ReferenceID, t.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}

func newCompletedTransaction(ownerID uuid.UUID, amount decimal.Decimal, kind TransactionKind, referenceID string) *Transaction {
	var ref *string
	if referenceID != "" {
		ref = &referenceID
	}
	return &Transaction{
		ID:          uuid.New(),
		AccountID:   ownerID,
		Kind:        kind,
		Amount:      amount,
		Status:      StatusCompleted,
		ReferenceID: ref,
		CreatedAt:   time.Now().UTC(),
	}
}

// ApplyTx appends a completed transaction inside an external transaction that
// already holds (or will take) the account row lock.
func (s *PostgresStore) ApplyTx(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID, amount decimal.Decimal, kind TransactionKind, referenceID string) (*Transaction, error) {
	balance, err := s.LockBalanceTx(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}

	existing, found, err := s.findByReferenceTx(ctx, tx, ownerID, kind, referenceID)
	if err != nil {
		return nil, err
	}
	if found {
		if !existing.Amount.Equal(amount) {
			return nil, ErrReferenceConflict
		}
		return existing, nil
	}

	next := balance.Add(amount)
	if next.IsNegative() {
		return nil, ErrInsufficientFunds
	}

	if err := s.updateBalanceTx(ctx, tx, ownerID, next); err != nil {
		return nil, err
	}

	t := newCompletedTransaction(ownerID, amount, kind, referenceID)
	if err := s.insertTransactionTx(ctx, tx, t); err != nil {
		if errors.Is(err, ErrDuplicateReference) {
			existing, found, checkErr := s.findByReferenceTx(ctx, tx, ownerID, kind, referenceID)
			if checkErr != nil {
				return nil, checkErr
			}
			if !found || !existing.Amount.Equal(amount) {
				return nil, ErrReferenceConflict
			}
			return existing, nil
		}
		return nil, err
	}

	return t, nil
}

func (s *PostgresStore) Apply(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, kind TransactionKind, referenceID string) (*Transaction, error) {
	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t, err := s.ApplyTx(ctx, tx, ownerID, amount, kind, referenceID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *PostgresStore) AdminAdjust(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, reason string, actorID uuid.UUID, idempotencyKey string) (*Transaction, error) {
	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	balance, err := s.LockBalanceTx(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}

	// A retried submission with the same key returns the original outcome
	// without applying twice.
	existing, found, err := s.findByReferenceTx(ctx, tx, ownerID, KindAdminAdjustment, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if found {
		if !existing.Amount.Equal(amount) {
			return nil, ErrReferenceConflict
		}
		return existing, nil
	}

	next := balance.Add(amount)
	if next.IsNegative() {
		return nil, ErrInsufficientFunds
	}

	if err := s.updateBalanceTx(ctx, tx, ownerID, next); err != nil {
		return nil, err
	}

	t := newCompletedTransaction(ownerID, amount, KindAdminAdjustment, idempotencyKey)
	if err := s.insertTransactionTx(ctx, tx, t); err != nil {
		return nil, err
	}

	entry := audit.NewEntry("wallet.adjust", "wallet_account", ownerID.String(), actorID, map[string]interface{}{
		"amount":          amount.StringFixed(2),
		"reason":          reason,
		"idempotency_key": idempotencyKey,
		"transaction_id":  t.ID.String(),
	})
	if err := audit.InsertTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *PostgresStore) CreatePendingTopUp(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, orderID string) (*Transaction, error) {
	if err := s.EnsureAccount(ctx, ownerID, defaultCurrency); err != nil {
		return nil, err
	}

	t := newCompletedTransaction(ownerID, amount, KindTopUp, orderID)
	t.Status = StatusPending

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.insertTransactionTx(ctx, tx, t); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *PostgresStore) GetTopUp(ctx context.Context, orderID string) (*Transaction, error) {
	var t Transaction
	err := s.db.GetContext(ctx, &t, `
		SELECT id, account_id, kind, amount, status, reference_id, created_at
		FROM wallet_transactions
		WHERE kind = $1 AND reference_id = $2
	`, string(KindTopUp), orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStore) SettleTopUp(ctx context.Context, orderID string, succeeded bool) (*Transaction, error) {
	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var t Transaction
	err = tx.GetContext(ctx, &t, `
		SELECT id, account_id, kind, amount, status, reference_id, created_at
		FROM wallet_transactions
		WHERE kind = $1 AND reference_id = $2
		FOR UPDATE
	`, string(KindTopUp), orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	if t.Status != StatusPending {
		return nil, ErrAlreadySettled
	}

	status := StatusFailed
	if succeeded {
		balance, err := s.LockBalanceTx(ctx, tx, t.AccountID)
		if err != nil {
			return nil, err
		}
		if err := s.updateBalanceTx(ctx, tx, t.AccountID, balance.Add(t.Amount)); err != nil {
			return nil, err
		}
		status = StatusCompleted
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE wallet_transactions SET status = $1 WHERE id = $2
	`, string(status), t.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	t.Status = status
	return &t, nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var txs []Transaction
	err := s.db.SelectContext(ctx, &txs, `
		SELECT id, account_id, kind, amount, status, reference_id, created_at
		FROM wallet_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *PostgresStore) SumCompleted(ctx context.Context, ownerID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := s.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM wallet_transactions
		WHERE account_id = $1 AND status = $2
	`, ownerID, string(StatusCompleted))
	return sum, err
}
