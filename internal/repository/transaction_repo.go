// internal/repository/transaction_repo.go
package repository

import (
	"context"
	"time"

	"cardvault/internal/domain"
)

// TransactionFilter restricts transaction searches. Every field is optional;
// set fields are combined conjunctively.
type TransactionFilter struct {
	Type     *domain.TransactionType
	Status   *domain.TransactionStatus
	FromDate *time.Time
	ToDate   *time.Time
	UserID   *int64
	Username *string
}

// TransactionRepository defines the interface for transaction data operations.
type TransactionRepository interface {
	// CreateTransaction inserts a new transaction record and fills in its
	// generated ID.
	CreateTransaction(ctx context.Context, q DBExecutor, tx *domain.Transaction) error
	// GetTransactionByID retrieves a transaction by its ID.
	GetTransactionByID(ctx context.Context, q DBExecutor, id int64) (*domain.Transaction, error)
	// UpdateStatus persists the transaction's current status and updated_at.
	UpdateStatus(ctx context.Context, q DBExecutor, tx *domain.Transaction) error
	// ListTransactions returns a filtered, paginated list plus the total count.
	ListTransactions(ctx context.Context, q DBExecutor, filter TransactionFilter, limit, offset int) ([]domain.Transaction, int64, error)
	// ListStalePending returns PENDING transactions created before the cutoff.
	ListStalePending(ctx context.Context, q DBExecutor, cutoff time.Time) ([]domain.Transaction, error)
	// ExistsForCard reports whether any transaction references the card.
	ExistsForCard(ctx context.Context, q DBExecutor, cardID int64) (bool, error)
}
