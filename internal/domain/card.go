// internal/domain/card.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CardStatus defines the lifecycle status of a payment card.
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	CardStatusExpired CardStatus = "EXPIRED" // terminal, set only by the expiry sweep
)

// Card represents a payment card belonging to a user.
// NumberEncrypted holds the AES-encrypted card number; NumberDigest is an
// HMAC of the plaintext number used for uniqueness checks and lookups.
type Card struct {
	ID              int64           `db:"id" json:"id"`
	NumberEncrypted string          `db:"number_encrypted" json:"-"`
	NumberDigest    string          `db:"number_digest" json:"-"`
	Holder          string          `db:"holder" json:"holder"`
	ExpiryDate      time.Time       `db:"expiry_date" json:"expiry_date"`
	Status          CardStatus      `db:"status" json:"status"`
	Balance         decimal.Decimal `db:"balance" json:"balance"` // NUMERIC(19, 2) in DB, never negative
	OwnerID         int64           `db:"owner_id" json:"owner_id"`
	OwnerUsername   string          `db:"owner_username" json:"owner_username"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// NewCard creates a new Card instance in ACTIVE status with a zero balance.
func NewCard(numberEncrypted, numberDigest, holder string, expiryDate time.Time, ownerID int64) *Card {
	now := time.Now().UTC()
	return &Card{
		NumberEncrypted: numberEncrypted,
		NumberDigest:    numberDigest,
		Holder:          holder,
		ExpiryDate:      expiryDate,
		Status:          CardStatusActive,
		Balance:         decimal.Zero,
		OwnerID:         ownerID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// IsExpired reports whether the card's expiry date has passed as of now.
// Expiry is derived from the date, never from the persisted EXPIRED status:
// the stored status is only updated out-of-band by the expiry sweep.
func (c *Card) IsExpired(now time.Time) bool {
	return now.After(c.ExpiryDate)
}

// CanTransfer reports whether the card may be used as the source of a
// transfer of the given amount. It must be evaluated at the moment of
// transfer, under the card's lock.
func (c *Card) CanTransfer(amount decimal.Decimal, now time.Time) bool {
	return c.Status == CardStatusActive &&
		!c.IsExpired(now) &&
		c.Balance.GreaterThanOrEqual(amount)
}

// CanReceive reports whether the card may be the destination of a transfer.
// The destination needs no balance, only an ACTIVE, unexpired card.
func (c *Card) CanReceive(now time.Time) bool {
	return c.Status == CardStatusActive && !c.IsExpired(now)
}
