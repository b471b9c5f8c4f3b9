// internal/repository/card_repo.go
package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"cardvault/internal/domain"
)

// CardFilter restricts card searches. Every field is optional; set fields
// are combined conjunctively.
type CardFilter struct {
	Status        *domain.CardStatus
	Holder        *string // case-insensitive substring match
	OwnerID       *int64
	OwnerUsername *string
}

// CardRepository defines the interface for card data operations.
type CardRepository interface {
	// CreateCard inserts a new card and fills in its generated ID.
	CreateCard(ctx context.Context, q DBExecutor, card *domain.Card) error
	// GetCardByID retrieves a card by its ID.
	GetCardByID(ctx context.Context, q DBExecutor, id int64) (*domain.Card, error)
	// GetCardByDigest retrieves a card by its number digest.
	GetCardByDigest(ctx context.Context, q DBExecutor, digest string) (*domain.Card, error)
	// ExistsByDigest reports whether a card with the given number digest exists.
	ExistsByDigest(ctx context.Context, q DBExecutor, digest string) (bool, error)
	// AdjustBalance applies a signed delta to the card's balance. It returns
	// util.ErrNegativeBalance if the result would be negative.
	AdjustBalance(ctx context.Context, q DBExecutor, cardID int64, delta decimal.Decimal) error
	// UpdateStatus persists a new lifecycle status.
	UpdateStatus(ctx context.Context, q DBExecutor, cardID int64, status domain.CardStatus) error
	// ListCards returns a filtered, paginated card list plus the total count.
	ListCards(ctx context.Context, q DBExecutor, filter CardFilter, limit, offset int) ([]domain.Card, int64, error)
	// ListExpiring returns cards whose expiry date precedes asOf and whose
	// stored status is not yet EXPIRED.
	ListExpiring(ctx context.Context, q DBExecutor, asOf time.Time) ([]domain.Card, error)
	// DeleteCard removes a card.
	DeleteCard(ctx context.Context, q DBExecutor, id int64) error
}
