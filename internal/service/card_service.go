// internal/service/card_service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"cardvault/internal/cardsec"
	"cardvault/internal/domain"
	"cardvault/internal/repository"
	"cardvault/internal/util"
	"cardvault/pkg/db"
	"cardvault/pkg/lock"
)

// CardView is a card as exposed outside the ledger: the number appears only
// in masked form.
type CardView struct {
	ID            int64             `json:"id"`
	MaskedNumber  string            `json:"masked_number"`
	Holder        string            `json:"holder"`
	ExpiryDate    time.Time         `json:"expiry_date"`
	Status        domain.CardStatus `json:"status"`
	Balance       decimal.Decimal   `json:"balance"`
	OwnerID       int64             `json:"owner_id"`
	OwnerUsername string            `json:"owner_username"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// CardService defines card lifecycle and ledger business logic: issuance,
// lookups, status transitions, balance adjustment and the expiry sweep.
type CardService interface {
	IssueCard(ctx context.Context, number, holder string, expiryDate time.Time, ownerID int64) (*CardView, error)
	GetCard(ctx context.Context, id int64, actor domain.Actor) (*CardView, error)
	GetCardByNumber(ctx context.Context, number string, actor domain.Actor) (*CardView, error)
	SearchCards(ctx context.Context, actor domain.Actor, filter repository.CardFilter, limit, offset int) ([]CardView, int64, error)
	Block(ctx context.Context, id int64, actor domain.Actor) (*CardView, error)
	Activate(ctx context.Context, id int64) (*CardView, error)
	Delete(ctx context.Context, id int64) error
	SweepExpired(ctx context.Context, asOf time.Time) (int, error)
}

type cardService struct {
	dbBeginner db.DBTxBeginner
	dbExecutor repository.DBExecutor
	cardRepo   repository.CardRepository
	txRepo     repository.TransactionRepository
	userRepo   repository.UserRepository
	cipher     *cardsec.Cipher
	locks      *lock.KeyedMutex
	guard      AuthorizationGuard
	beginTx    db.BeginTxFunc
	commitTx   db.CommitTxFunc
	rollbackTx db.RollbackTxFunc
	logger     *slog.Logger
}

// NewCardService creates a new instance of CardService.
func NewCardService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	cardRepo repository.CardRepository,
	txRepo repository.TransactionRepository,
	userRepo repository.UserRepository,
	cipher *cardsec.Cipher,
	locks *lock.KeyedMutex,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
	logger *slog.Logger,
) CardService {
	return &cardService{
		dbBeginner: dbBeginner,
		dbExecutor: dbExecutor,
		cardRepo:   cardRepo,
		txRepo:     txRepo,
		userRepo:   userRepo,
		cipher:     cipher,
		locks:      locks,
		beginTx:    beginTx,
		commitTx:   commitTx,
		rollbackTx: rollbackTx,
		logger:     logger,
	}
}

func (s *cardService) toView(card *domain.Card) (*CardView, error) {
	number, err := s.cipher.Decrypt(card.NumberEncrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt card number for card %d: %w", card.ID, err)
	}
	return &CardView{
		ID:            card.ID,
		MaskedNumber:  cardsec.Mask(number),
		Holder:        card.Holder,
		ExpiryDate:    card.ExpiryDate,
		Status:        card.Status,
		Balance:       card.Balance,
		OwnerID:       card.OwnerID,
		OwnerUsername: card.OwnerUsername,
		CreatedAt:     card.CreatedAt,
		UpdatedAt:     card.UpdatedAt,
	}, nil
}

// IssueCard creates a new ACTIVE card with a zero balance for the given
// owner. The plaintext number never reaches storage: the row carries the
// encrypted form plus an HMAC digest for uniqueness checks.
func (s *cardService) IssueCard(ctx context.Context, number, holder string, expiryDate time.Time, ownerID int64) (*CardView, error) {
	if !cardsec.ValidNumber(number) {
		return nil, fmt.Errorf("%w: card number must be 16 digits", util.ErrInvalidInput)
	}

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, fmt.Errorf("issue card: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, fmt.Errorf("issue card: transaction controller does not implement DBExecutor")
	}

	digest := s.cipher.Digest(number)
	exists, err := s.cardRepo.ExistsByDigest(ctx, txExecutor, digest)
	if err != nil {
		return nil, fmt.Errorf("issue card: failed to check number uniqueness: %w", err)
	}
	if exists {
		return nil, util.ErrDuplicateCardNumber
	}

	owner, err := s.userRepo.GetUserByID(ctx, txExecutor, ownerID)
	if err != nil {
		return nil, fmt.Errorf("issue card: failed to resolve owner %d: %w", ownerID, err)
	}

	encrypted, err := s.cipher.Encrypt(number)
	if err != nil {
		return nil, fmt.Errorf("issue card: failed to encrypt number: %w", err)
	}

	card := domain.NewCard(encrypted, digest, holder, expiryDate, owner.ID)
	if err := s.cardRepo.CreateCard(ctx, txExecutor, card); err != nil {
		return nil, fmt.Errorf("issue card: failed to create card: %w", err)
	}
	card.OwnerUsername = owner.Username

	if err := s.commitTx(txController); err != nil {
		return nil, fmt.Errorf("issue card: failed to commit transaction: %w", err)
	}

	s.logger.Info("card issued", "card_id", card.ID, "owner", owner.Username)
	return s.toView(card)
}

// GetCard retrieves a card. Non-privileged actors may only access their own
// cards.
func (s *cardService) GetCard(ctx context.Context, id int64, actor domain.Actor) (*CardView, error) {
	card, err := s.cardRepo.GetCardByID(ctx, s.dbExecutor, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireOwnerOrPrivileged(card, actor); err != nil {
		return nil, err
	}
	return s.toView(card)
}

// GetCardByNumber retrieves a card by its plaintext number, resolved through
// the HMAC digest.
func (s *cardService) GetCardByNumber(ctx context.Context, number string, actor domain.Actor) (*CardView, error) {
	card, err := s.cardRepo.GetCardByDigest(ctx, s.dbExecutor, s.cipher.Digest(number))
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireOwnerOrPrivileged(card, actor); err != nil {
		return nil, err
	}
	return s.toView(card)
}

// SearchCards returns a filtered, paginated card list. Non-privileged actors
// are always restricted to their own cards regardless of the filter.
func (s *cardService) SearchCards(ctx context.Context, actor domain.Actor, filter repository.CardFilter, limit, offset int) ([]CardView, int64, error) {
	if !actor.Privileged {
		filter.OwnerID = &actor.UserID
		filter.OwnerUsername = nil
	}

	cards, totalCount, err := s.cardRepo.ListCards(ctx, s.dbExecutor, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	views := make([]CardView, 0, len(cards))
	for i := range cards {
		view, err := s.toView(&cards[i])
		if err != nil {
			return nil, 0, err
		}
		views = append(views, *view)
	}
	return views, totalCount, nil
}

// Block sets the card BLOCKED. The owner may block their own card; a
// privileged actor may block any card. Blocking an already blocked card is a
// conflict.
func (s *cardService) Block(ctx context.Context, id int64, actor domain.Actor) (*CardView, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	card, err := s.cardRepo.GetCardByID(ctx, s.dbExecutor, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireOwnerOrPrivileged(card, actor); err != nil {
		return nil, err
	}
	if card.Status == domain.CardStatusBlocked {
		return nil, util.ErrCardAlreadyBlocked
	}

	if err := s.cardRepo.UpdateStatus(ctx, s.dbExecutor, id, domain.CardStatusBlocked); err != nil {
		return nil, fmt.Errorf("block card: failed to update status: %w", err)
	}
	card.Status = domain.CardStatusBlocked
	card.UpdatedAt = time.Now().UTC()

	s.logger.Info("card blocked", "card_id", id, "actor", actor.Username)
	return s.toView(card)
}

// Activate sets the card ACTIVE. Reactivation is rejected if the card's
// expiry date has passed; the privilege check is performed by the caller
// (admin-only route).
func (s *cardService) Activate(ctx context.Context, id int64) (*CardView, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	card, err := s.cardRepo.GetCardByID(ctx, s.dbExecutor, id)
	if err != nil {
		return nil, err
	}
	if card.IsExpired(time.Now().UTC()) {
		return nil, util.ErrCardExpired
	}
	if card.Status == domain.CardStatusActive {
		return s.toView(card)
	}

	if err := s.cardRepo.UpdateStatus(ctx, s.dbExecutor, id, domain.CardStatusActive); err != nil {
		return nil, fmt.Errorf("activate card: failed to update status: %w", err)
	}
	card.Status = domain.CardStatusActive
	card.UpdatedAt = time.Now().UTC()

	s.logger.Info("card activated", "card_id", id)
	return s.toView(card)
}

// Delete removes a card. A card referenced by transactions is never
// hard-deleted.
func (s *cardService) Delete(ctx context.Context, id int64) error {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	if _, err := s.cardRepo.GetCardByID(ctx, s.dbExecutor, id); err != nil {
		return err
	}

	referenced, err := s.txRepo.ExistsForCard(ctx, s.dbExecutor, id)
	if err != nil {
		return fmt.Errorf("delete card: failed to check references: %w", err)
	}
	if referenced {
		return util.ErrCardReferenced
	}

	if err := s.cardRepo.DeleteCard(ctx, s.dbExecutor, id); err != nil {
		return err
	}
	s.logger.Info("card deleted", "card_id", id)
	return nil
}

// SweepExpired marks cards whose expiry date precedes asOf as EXPIRED and
// returns the number of cards updated. The scan excludes already-EXPIRED
// cards, so a second run over the same input changes nothing.
func (s *cardService) SweepExpired(ctx context.Context, asOf time.Time) (int, error) {
	cards, err := s.cardRepo.ListExpiring(ctx, s.dbExecutor, asOf)
	if err != nil {
		return 0, fmt.Errorf("expiry sweep: %w", err)
	}

	swept := 0
	for i := range cards {
		card := &cards[i]
		// Same per-card serialization as request-driven writers.
		s.locks.Lock(card.ID)
		err := s.cardRepo.UpdateStatus(ctx, s.dbExecutor, card.ID, domain.CardStatusExpired)
		s.locks.Unlock(card.ID)
		if err != nil {
			s.logger.Error("expiry sweep: failed to expire card", "card_id", card.ID, "error", err)
			continue
		}
		swept++
	}

	if swept > 0 {
		s.logger.Info("expiry sweep completed", "expired", swept)
	}
	return swept, nil
}
