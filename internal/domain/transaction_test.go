// internal/domain/transaction_test.go
package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"cardvault/internal/util"
)

func TestNewTransaction(t *testing.T) {
	fromID, toID := int64(1), int64(2)
	tx := NewTransaction(&fromID, &toID, decimal.NewFromInt(40), TransactionTypeTransfer, nil, 7)

	assert.Equal(t, TransactionStatusPending, tx.Status)
	assert.False(t, tx.IsTerminal())
	assert.NotEmpty(t, tx.Reference)
	assert.Equal(t, int64(7), tx.UserID)
}

func TestTransactionTransitions(t *testing.T) {
	newPending := func() *Transaction {
		fromID, toID := int64(1), int64(2)
		return NewTransaction(&fromID, &toID, decimal.NewFromInt(40), TransactionTypeTransfer, nil, 7)
	}

	t.Run("CompleteFromPending", func(t *testing.T) {
		tx := newPending()
		assert.NoError(t, tx.Complete())
		assert.Equal(t, TransactionStatusCompleted, tx.Status)
		assert.True(t, tx.IsTerminal())
	})

	t.Run("FailFromPending", func(t *testing.T) {
		tx := newPending()
		assert.NoError(t, tx.Fail())
		assert.Equal(t, TransactionStatusFailed, tx.Status)
		assert.True(t, tx.IsTerminal())
	})

	t.Run("CancelFromPending", func(t *testing.T) {
		tx := newPending()
		assert.NoError(t, tx.Cancel())
		assert.Equal(t, TransactionStatusCancelled, tx.Status)
		assert.True(t, tx.IsTerminal())
	})

	t.Run("TerminalStatesAreImmutable", func(t *testing.T) {
		for _, terminal := range []func(*Transaction) error{
			(*Transaction).Complete,
			(*Transaction).Fail,
			(*Transaction).Cancel,
		} {
			tx := newPending()
			assert.NoError(t, terminal(tx))
			before := tx.Status

			assert.ErrorIs(t, tx.Complete(), util.ErrTransactionNotPending)
			assert.ErrorIs(t, tx.Fail(), util.ErrTransactionNotPending)
			assert.ErrorIs(t, tx.Cancel(), util.ErrTransactionNotPending)
			assert.Equal(t, before, tx.Status)
		}
	})
}
