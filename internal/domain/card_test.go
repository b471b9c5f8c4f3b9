// internal/domain/card_test.go
package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCardIsExpired(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	card := &Card{ExpiryDate: now.AddDate(1, 0, 0)}
	assert.False(t, card.IsExpired(now))

	card.ExpiryDate = now.AddDate(-1, 0, 0)
	assert.True(t, card.IsExpired(now))

	// The expiry instant itself is not yet expired.
	card.ExpiryDate = now
	assert.False(t, card.IsExpired(now))
}

func TestCardCanTransfer(t *testing.T) {
	now := time.Now().UTC()
	amount := decimal.NewFromInt(50)

	card := &Card{
		Status:     CardStatusActive,
		Balance:    decimal.NewFromInt(100),
		ExpiryDate: now.AddDate(1, 0, 0),
	}
	assert.True(t, card.CanTransfer(amount, now))

	// Exact balance is enough.
	assert.True(t, card.CanTransfer(decimal.NewFromInt(100), now))

	assert.False(t, card.CanTransfer(decimal.NewFromInt(101), now))

	blocked := *card
	blocked.Status = CardStatusBlocked
	assert.False(t, blocked.CanTransfer(amount, now))

	// An ACTIVE stored status does not save a date-expired card; expiry is
	// derived from the date at the moment of the check.
	expired := *card
	expired.ExpiryDate = now.AddDate(0, -1, 0)
	assert.False(t, expired.CanTransfer(amount, now))
}

func TestCardCanReceive(t *testing.T) {
	now := time.Now().UTC()

	card := &Card{
		Status:     CardStatusActive,
		Balance:    decimal.Zero,
		ExpiryDate: now.AddDate(1, 0, 0),
	}
	// The destination needs no balance.
	assert.True(t, card.CanReceive(now))

	blocked := *card
	blocked.Status = CardStatusBlocked
	assert.False(t, blocked.CanReceive(now))

	expired := *card
	expired.ExpiryDate = now.AddDate(0, -1, 0)
	assert.False(t, expired.CanReceive(now))
}

func TestNewCard(t *testing.T) {
	expiry := time.Now().UTC().AddDate(3, 0, 0)
	card := NewCard("enc", "digest", "JOHN DOE", expiry, 7)

	assert.Equal(t, CardStatusActive, card.Status)
	assert.True(t, card.Balance.IsZero())
	assert.Equal(t, int64(7), card.OwnerID)
	assert.Equal(t, expiry, card.ExpiryDate)
}
