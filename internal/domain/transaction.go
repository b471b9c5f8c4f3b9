// internal/domain/transaction.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cardvault/internal/util"
)

// TransactionType defines the type of a financial transaction.
type TransactionType string

const (
	TransactionTypeTransfer   TransactionType = "TRANSFER"
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
)

// TransactionStatus defines the status of a financial transaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

// Transaction represents a financial transaction record. For transfers both
// card references are set; deposits carry only the destination card and
// withdrawals only the source card.
type Transaction struct {
	ID          int64             `db:"id" json:"id"`
	Reference   string            `db:"reference" json:"reference"` // correlation id for audit trails
	FromCardID  *int64            `db:"from_card_id" json:"from_card_id"`
	ToCardID    *int64            `db:"to_card_id" json:"to_card_id"`
	Amount      decimal.Decimal   `db:"amount" json:"amount"` // NUMERIC(19, 2) in DB, always positive
	Type        TransactionType   `db:"type" json:"type"`
	Status      TransactionStatus `db:"status" json:"status"`
	Description *string           `db:"description" json:"description"`
	UserID      int64             `db:"user_id" json:"user_id"`
	Username    string            `db:"username" json:"username"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// NewTransaction creates a new Transaction instance in PENDING status.
func NewTransaction(fromCardID, toCardID *int64, amount decimal.Decimal, txType TransactionType, description *string, userID int64) *Transaction {
	now := time.Now().UTC()
	return &Transaction{
		Reference:   uuid.NewString(),
		FromCardID:  fromCardID,
		ToCardID:    toCardID,
		Amount:      amount,
		Type:        txType,
		Status:      TransactionStatusPending,
		Description: description,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsTerminal reports whether the transaction has reached a state from which
// no further transition is permitted.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted ||
		t.Status == TransactionStatusFailed ||
		t.Status == TransactionStatusCancelled
}

// transition moves the transaction to the given status. Only PENDING
// transactions may transition; terminal states are immutable.
func (t *Transaction) transition(to TransactionStatus) error {
	if t.Status != TransactionStatusPending {
		return util.ErrTransactionNotPending
	}
	t.Status = to
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Complete marks the transaction COMPLETED.
func (t *Transaction) Complete() error {
	return t.transition(TransactionStatusCompleted)
}

// Fail marks the transaction FAILED.
func (t *Transaction) Fail() error {
	return t.transition(TransactionStatusFailed)
}

// Cancel marks the transaction CANCELLED.
func (t *Transaction) Cancel() error {
	return t.transition(TransactionStatusCancelled)
}
