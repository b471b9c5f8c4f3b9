// internal/repository/postgres/card_pg.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"cardvault/internal/domain"
	"cardvault/internal/repository"
	"cardvault/internal/util"
)

const cardColumns = `c.id, c.number_encrypted, c.number_digest, c.holder, c.expiry_date,
       c.status, c.balance, c.owner_id, u.username AS owner_username,
       c.created_at, c.updated_at`

// CardRepository implements repository.CardRepository for PostgreSQL.
type CardRepository struct{}

// NewCardRepository creates a new CardRepository.
func NewCardRepository(db *sqlx.DB) repository.CardRepository {
	return &CardRepository{}
}

// CreateCard inserts a new card using the provided DBExecutor.
func (r *CardRepository) CreateCard(ctx context.Context, q repository.DBExecutor, card *domain.Card) error {
	query := `INSERT INTO cards (number_encrypted, number_digest, holder, expiry_date, status, balance, owner_id, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		card.NumberEncrypted, card.NumberDigest, card.Holder, card.ExpiryDate,
		card.Status, card.Balance, card.OwnerID, card.CreatedAt, card.UpdatedAt,
	).Scan(&card.ID)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// GetCardByID retrieves a card by its ID using the provided DBExecutor.
func (r *CardRepository) GetCardByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Card, error) {
	var card domain.Card
	query := `SELECT ` + cardColumns + ` FROM cards c JOIN users u ON u.id = c.owner_id WHERE c.id = $1`
	err := q.GetContext(ctx, &card, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card by ID %d: %w", id, err)
	}
	return &card, nil
}

// GetCardByDigest retrieves a card by its number digest.
func (r *CardRepository) GetCardByDigest(ctx context.Context, q repository.DBExecutor, digest string) (*domain.Card, error) {
	var card domain.Card
	query := `SELECT ` + cardColumns + ` FROM cards c JOIN users u ON u.id = c.owner_id WHERE c.number_digest = $1`
	err := q.GetContext(ctx, &card, query, digest)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card by digest: %w", err)
	}
	return &card, nil
}

// ExistsByDigest reports whether a card with the given number digest exists.
func (r *CardRepository) ExistsByDigest(ctx context.Context, q repository.DBExecutor, digest string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM cards WHERE number_digest = $1)`
	if err := q.GetContext(ctx, &exists, query, digest); err != nil {
		return false, fmt.Errorf("failed to check card existence: %w", err)
	}
	return exists, nil
}

// AdjustBalance applies a signed delta to the card's balance. The WHERE
// clause guards non-negativity in the database as well; a zero row count for
// an existing card means the delta would overdraw it.
func (r *CardRepository) AdjustBalance(ctx context.Context, q repository.DBExecutor, cardID int64, delta decimal.Decimal) error {
	query := `UPDATE cards SET balance = balance + $1, updated_at = $2 WHERE id = $3 AND balance + $1 >= 0`
	result, err := q.ExecContext(ctx, query, delta, time.Now().UTC(), cardID)
	if err != nil {
		return fmt.Errorf("failed to adjust balance for card %d: %w", cardID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for card %d: %w", cardID, err)
	}
	if rowsAffected == 0 {
		var exists bool
		if err := q.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM cards WHERE id = $1)`, cardID); err != nil {
			return fmt.Errorf("failed to check card %d after balance adjustment: %w", cardID, err)
		}
		if !exists {
			return util.ErrCardNotFound
		}
		return util.ErrNegativeBalance
	}
	return nil
}

// UpdateStatus persists a new lifecycle status.
func (r *CardRepository) UpdateStatus(ctx context.Context, q repository.DBExecutor, cardID int64, status domain.CardStatus) error {
	query := `UPDATE cards SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := q.ExecContext(ctx, query, status, time.Now().UTC(), cardID)
	if err != nil {
		return fmt.Errorf("failed to update status for card %d: %w", cardID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for card %d: %w", cardID, err)
	}
	if rowsAffected == 0 {
		return util.ErrCardNotFound
	}
	return nil
}

// ListCards returns a filtered, paginated card list plus the total count.
// Filters are optional and conjunctive.
func (r *CardRepository) ListCards(ctx context.Context, q repository.DBExecutor, filter repository.CardFilter, limit, offset int) ([]domain.Card, int64, error) {
	conditions := []string{"1 = 1"}
	args := []interface{}{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)))
	}
	if filter.Holder != nil {
		args = append(args, "%"+*filter.Holder+"%")
		conditions = append(conditions, fmt.Sprintf("c.holder ILIKE $%d", len(args)))
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		conditions = append(conditions, fmt.Sprintf("c.owner_id = $%d", len(args)))
	}
	if filter.OwnerUsername != nil {
		args = append(args, *filter.OwnerUsername)
		conditions = append(conditions, fmt.Sprintf("u.username = $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM cards c JOIN users u ON u.id = c.owner_id WHERE ` + where
	if err := q.GetContext(ctx, &totalCount, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count cards: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM cards c JOIN users u ON u.id = c.owner_id WHERE %s
              ORDER BY c.created_at DESC LIMIT $%d OFFSET $%d`, cardColumns, where, len(args)-1, len(args))

	cards := []domain.Card{}
	if err := q.SelectContext(ctx, &cards, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list cards: %w", err)
	}
	return cards, totalCount, nil
}

// ListExpiring returns cards whose expiry date precedes asOf and whose stored
// status is not yet EXPIRED.
func (r *CardRepository) ListExpiring(ctx context.Context, q repository.DBExecutor, asOf time.Time) ([]domain.Card, error) {
	cards := []domain.Card{}
	query := `SELECT ` + cardColumns + ` FROM cards c JOIN users u ON u.id = c.owner_id
              WHERE c.expiry_date < $1 AND c.status <> $2`
	if err := q.SelectContext(ctx, &cards, query, asOf, domain.CardStatusExpired); err != nil {
		return nil, fmt.Errorf("failed to list expiring cards: %w", err)
	}
	return cards, nil
}

// DeleteCard removes a card.
func (r *CardRepository) DeleteCard(ctx context.Context, q repository.DBExecutor, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected deleting card %d: %w", id, err)
	}
	if rowsAffected == 0 {
		return util.ErrCardNotFound
	}
	return nil
}
