// internal/repository/postgres/transaction_pg.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"cardvault/internal/domain"
	"cardvault/internal/repository"
	"cardvault/internal/util"
)

const transactionColumns = `t.id, t.reference, t.from_card_id, t.to_card_id, t.amount, t.type,
       t.status, t.description, t.user_id, u.username AS username, t.created_at, t.updated_at`

// TransactionRepository implements repository.TransactionRepository for PostgreSQL.
type TransactionRepository struct{}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db *sqlx.DB) repository.TransactionRepository {
	return &TransactionRepository{}
}

// CreateTransaction inserts a new transaction record using the provided DBExecutor.
func (r *TransactionRepository) CreateTransaction(ctx context.Context, q repository.DBExecutor, tx *domain.Transaction) error {
	query := `INSERT INTO transactions (reference, from_card_id, to_card_id, amount, type, status, description, user_id, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		tx.Reference, tx.FromCardID, tx.ToCardID, tx.Amount, tx.Type,
		tx.Status, tx.Description, tx.UserID, tx.CreatedAt, tx.UpdatedAt,
	).Scan(&tx.ID)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetTransactionByID retrieves a transaction by its ID.
func (r *TransactionRepository) GetTransactionByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Transaction, error) {
	var tx domain.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions t JOIN users u ON u.id = t.user_id WHERE t.id = $1`
	err := q.GetContext(ctx, &tx, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by ID %d: %w", id, err)
	}
	return &tx, nil
}

// UpdateStatus persists the transaction's current status and updated_at.
// The update only applies while the stored row is still PENDING: every legal
// transition leaves PENDING, so a zero row count means the transaction
// already reached a terminal state (or does not exist).
func (r *TransactionRepository) UpdateStatus(ctx context.Context, q repository.DBExecutor, tx *domain.Transaction) error {
	query := `UPDATE transactions SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := q.ExecContext(ctx, query, tx.Status, tx.UpdatedAt, tx.ID, domain.TransactionStatusPending)
	if err != nil {
		return fmt.Errorf("failed to update status for transaction %d: %w", tx.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for transaction %d: %w", tx.ID, err)
	}
	if rowsAffected == 0 {
		return util.ErrTransactionNotPending
	}
	return nil
}

// ListTransactions returns a filtered, paginated list plus the total count.
// Filters are optional and conjunctive.
func (r *TransactionRepository) ListTransactions(ctx context.Context, q repository.DBExecutor, filter repository.TransactionFilter, limit, offset int) ([]domain.Transaction, int64, error) {
	conditions := []string{"1 = 1"}
	args := []interface{}{}

	if filter.Type != nil {
		args = append(args, *filter.Type)
		conditions = append(conditions, fmt.Sprintf("t.type = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if filter.FromDate != nil {
		args = append(args, *filter.FromDate)
		conditions = append(conditions, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	if filter.ToDate != nil {
		args = append(args, *filter.ToDate)
		conditions = append(conditions, fmt.Sprintf("t.created_at <= $%d", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("t.user_id = $%d", len(args)))
	}
	if filter.Username != nil {
		args = append(args, *filter.Username)
		conditions = append(conditions, fmt.Sprintf("u.username = $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM transactions t JOIN users u ON u.id = t.user_id WHERE ` + where
	if err := q.GetContext(ctx, &totalCount, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM transactions t JOIN users u ON u.id = t.user_id WHERE %s
              ORDER BY t.created_at DESC LIMIT $%d OFFSET $%d`, transactionColumns, where, len(args)-1, len(args))

	transactions := []domain.Transaction{}
	if err := q.SelectContext(ctx, &transactions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, totalCount, nil
}

// ListStalePending returns PENDING transactions created before the cutoff.
func (r *TransactionRepository) ListStalePending(ctx context.Context, q repository.DBExecutor, cutoff time.Time) ([]domain.Transaction, error) {
	transactions := []domain.Transaction{}
	query := `SELECT ` + transactionColumns + ` FROM transactions t JOIN users u ON u.id = t.user_id
              WHERE t.status = $1 AND t.created_at < $2`
	if err := q.SelectContext(ctx, &transactions, query, domain.TransactionStatusPending, cutoff); err != nil {
		return nil, fmt.Errorf("failed to list stale pending transactions: %w", err)
	}
	return transactions, nil
}

// ExistsForCard reports whether any transaction references the card as either leg.
func (r *TransactionRepository) ExistsForCard(ctx context.Context, q repository.DBExecutor, cardID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM transactions WHERE from_card_id = $1 OR to_card_id = $1)`
	if err := q.GetContext(ctx, &exists, query, cardID); err != nil {
		return false, fmt.Errorf("failed to check transactions for card %d: %w", cardID, err)
	}
	return exists, nil
}
