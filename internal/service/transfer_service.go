// internal/service/transfer_service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"cardvault/internal/domain"
	"cardvault/internal/repository"
	"cardvault/internal/util"
	"cardvault/pkg/db"
	"cardvault/pkg/lock"
)

// TransferService moves funds between two cards owned by the same actor as
// one logically atomic unit and records the outcome as a transaction.
//
// Transaction state machine: PENDING moves to COMPLETED on success, FAILED on
// a mutation error or stale timeout, CANCELLED when the initiator cancels.
// All three are terminal.
type TransferService interface {
	Transfer(ctx context.Context, fromCardID, toCardID int64, amount decimal.Decimal, description *string, actor domain.Actor) (*domain.Transaction, error)
	Cancel(ctx context.Context, transactionID int64, actor domain.Actor) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id int64, actor domain.Actor) (*domain.Transaction, error)
	SearchTransactions(ctx context.Context, actor domain.Actor, filter repository.TransactionFilter, limit, offset int) ([]domain.Transaction, int64, error)
	Deposit(ctx context.Context, cardID int64, amount decimal.Decimal, description *string, actor domain.Actor) (*domain.Transaction, error)
	Withdraw(ctx context.Context, cardID int64, amount decimal.Decimal, description *string, actor domain.Actor) (*domain.Transaction, error)
	SweepStalePending(ctx context.Context, olderThan time.Time) (int, error)
}

// completionPersistAttempts bounds the retries of the COMPLETED status write
// after both balance legs have applied.
const completionPersistAttempts = 3

type transferService struct {
	dbBeginner db.DBTxBeginner
	dbExecutor repository.DBExecutor
	cardRepo   repository.CardRepository
	txRepo     repository.TransactionRepository
	locks      *lock.KeyedMutex
	guard      AuthorizationGuard
	beginTx    db.BeginTxFunc
	commitTx   db.CommitTxFunc
	rollbackTx db.RollbackTxFunc
	logger     *slog.Logger
}

// NewTransferService creates a new instance of TransferService.
func NewTransferService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	cardRepo repository.CardRepository,
	txRepo repository.TransactionRepository,
	locks *lock.KeyedMutex,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
	logger *slog.Logger,
) TransferService {
	return &transferService{
		dbBeginner: dbBeginner,
		dbExecutor: dbExecutor,
		cardRepo:   cardRepo,
		txRepo:     txRepo,
		locks:      locks,
		beginTx:    beginTx,
		commitTx:   commitTx,
		rollbackTx: rollbackTx,
		logger:     logger,
	}
}

// Transfer debits the source card and credits the destination card,
// recording the outcome. The PENDING record is persisted before any balance
// mutation so a crash mid-operation leaves an auditable trail instead of
// silent loss. Both cards stay locked for the whole operation; once the
// PENDING record exists the operation always reaches a terminal status
// before returning.
func (s *transferService) Transfer(ctx context.Context, fromCardID, toCardID int64, amount decimal.Decimal, description *string, actor domain.Actor) (*domain.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", util.ErrInvalidInput)
	}

	s.locks.LockPair(fromCardID, toCardID)
	defer s.locks.UnlockPair(fromCardID, toCardID)

	fromCard, err := s.cardRepo.GetCardByID(ctx, s.dbExecutor, fromCardID)
	if err != nil {
		return nil, fmt.Errorf("transfer: source card %d: %w", fromCardID, err)
	}
	toCard, err := s.cardRepo.GetCardByID(ctx, s.dbExecutor, toCardID)
	if err != nil {
		return nil, fmt.Errorf("transfer: destination card %d: %w", toCardID, err)
	}

	if err := s.guard.RequireOwner(fromCard, actor); err != nil {
		return nil, err
	}
	if err := s.guard.RequireOwner(toCard, actor); err != nil {
		return nil, err
	}

	if fromCardID == toCardID {
		return nil, util.ErrSameCardTransfer
	}

	// The gate is recomputed here, under both locks, never cached.
	now := time.Now().UTC()
	if !fromCard.CanTransfer(amount, now) {
		return nil, util.ErrInsufficientFunds
	}
	if !toCard.CanReceive(now) {
		return nil, util.ErrCardUnavailable
	}

	transaction := domain.NewTransaction(&fromCardID, &toCardID, amount, domain.TransactionTypeTransfer, description, actor.UserID)
	if err := s.txRepo.CreateTransaction(ctx, s.dbExecutor, transaction); err != nil {
		return nil, fmt.Errorf("transfer: failed to create transaction record: %w", err)
	}
	transaction.Username = actor.Username

	if err := s.cardRepo.AdjustBalance(ctx, s.dbExecutor, fromCardID, amount.Neg()); err != nil {
		s.markFailed(ctx, transaction)
		return nil, fmt.Errorf("transfer: debit failed: %w", err)
	}

	if err := s.cardRepo.AdjustBalance(ctx, s.dbExecutor, toCardID, amount); err != nil {
		// Reverse the debit so the sum of balances is conserved; a transfer
		// must never apply only one leg.
		if revErr := s.cardRepo.AdjustBalance(ctx, s.dbExecutor, fromCardID, amount); revErr != nil {
			s.logger.Error("transfer: failed to reverse debit after credit failure",
				"transaction_id", transaction.ID, "card_id", fromCardID, "error", revErr)
		}
		s.markFailed(ctx, transaction)
		return nil, fmt.Errorf("transfer: credit failed: %w", err)
	}

	if err := transaction.Complete(); err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}
	// Both legs have applied, so losing this write would leave a PENDING row
	// for the stale sweep to brand FAILED. Retry transient errors before
	// giving up.
	var persistErr error
	for attempt := 1; attempt <= completionPersistAttempts; attempt++ {
		persistErr = s.txRepo.UpdateStatus(ctx, s.dbExecutor, transaction)
		if persistErr == nil || util.IsError(persistErr, util.ErrTransactionNotPending) {
			break
		}
		s.logger.Warn("transfer: retrying completion persist",
			"transaction_id", transaction.ID, "attempt", attempt, "error", persistErr)
	}
	if persistErr != nil {
		return nil, fmt.Errorf("transfer: failed to persist completion: %w", persistErr)
	}

	s.logger.Info("transfer completed",
		"transaction_id", transaction.ID, "from_card", fromCardID, "to_card", toCardID, "amount", amount.String())
	return transaction, nil
}

// markFailed records the FAILED outcome before the original error
// propagates. The transaction row is the durable audit trail of what was
// attempted and how it resolved.
func (s *transferService) markFailed(ctx context.Context, transaction *domain.Transaction) {
	if err := transaction.Fail(); err != nil {
		s.logger.Error("failed to mark transaction failed", "transaction_id", transaction.ID, "error", err)
		return
	}
	if err := s.txRepo.UpdateStatus(ctx, s.dbExecutor, transaction); err != nil {
		s.logger.Error("failed to persist failed status", "transaction_id", transaction.ID, "error", err)
	}
}

// Cancel moves a PENDING transaction to CANCELLED. Only the initiator may
// cancel, and only while the transaction is still PENDING. Cancel acquires
// the transaction's card locks, so it serializes behind an in-flight
// transfer of the same cards instead of racing its balance legs; by the time
// the locks are held the transfer has reached a terminal status and the
// cancel is rejected.
func (s *transferService) Cancel(ctx context.Context, transactionID int64, actor domain.Actor) (*domain.Transaction, error) {
	transaction, err := s.txRepo.GetTransactionByID(ctx, s.dbExecutor, transactionID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireInitiator(transaction, actor); err != nil {
		return nil, err
	}
	if transaction.IsTerminal() {
		return nil, util.ErrTransactionNotPending
	}

	unlock := s.lockCards(transaction)
	defer unlock()

	// Reload under the locks; the pre-lock snapshot may be stale.
	transaction, err = s.txRepo.GetTransactionByID(ctx, s.dbExecutor, transactionID)
	if err != nil {
		return nil, err
	}
	if err := transaction.Cancel(); err != nil {
		return nil, err
	}
	if err := s.txRepo.UpdateStatus(ctx, s.dbExecutor, transaction); err != nil {
		return nil, err
	}

	s.logger.Info("transaction cancelled", "transaction_id", transactionID, "actor", actor.Username)
	return transaction, nil
}

// lockCards locks the cards a transaction touches and returns the matching
// unlock. Transfers lock both cards, single-leg records lock one.
func (s *transferService) lockCards(t *domain.Transaction) func() {
	switch {
	case t.FromCardID != nil && t.ToCardID != nil:
		from, to := *t.FromCardID, *t.ToCardID
		s.locks.LockPair(from, to)
		return func() { s.locks.UnlockPair(from, to) }
	case t.FromCardID != nil:
		id := *t.FromCardID
		s.locks.Lock(id)
		return func() { s.locks.Unlock(id) }
	case t.ToCardID != nil:
		id := *t.ToCardID
		s.locks.Lock(id)
		return func() { s.locks.Unlock(id) }
	}
	return func() {}
}

// GetTransaction retrieves a transaction. Non-privileged actors may only
// access transactions they initiated.
func (s *transferService) GetTransaction(ctx context.Context, id int64, actor domain.Actor) (*domain.Transaction, error) {
	transaction, err := s.txRepo.GetTransactionByID(ctx, s.dbExecutor, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireInitiatorOrPrivileged(transaction, actor); err != nil {
		return nil, err
	}
	return transaction, nil
}

// SearchTransactions returns a filtered, paginated transaction list.
// Non-privileged actors are always restricted to their own transactions.
func (s *transferService) SearchTransactions(ctx context.Context, actor domain.Actor, filter repository.TransactionFilter, limit, offset int) ([]domain.Transaction, int64, error) {
	if !actor.Privileged {
		filter.UserID = &actor.UserID
		filter.Username = nil
	}
	return s.txRepo.ListTransactions(ctx, s.dbExecutor, filter, limit, offset)
}

// Deposit credits a card outside of a transfer. Privileged operation; it is
// the ledger's only way to add funds to the system.
func (s *transferService) Deposit(ctx context.Context, cardID int64, amount decimal.Decimal, description *string, actor domain.Actor) (*domain.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", util.ErrInvalidInput)
	}
	return s.adjust(ctx, cardID, amount, domain.TransactionTypeDeposit, description, actor)
}

// Withdraw debits a card outside of a transfer. Privileged operation; fails
// if the balance would go negative.
func (s *transferService) Withdraw(ctx context.Context, cardID int64, amount decimal.Decimal, description *string, actor domain.Actor) (*domain.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", util.ErrInvalidInput)
	}
	return s.adjust(ctx, cardID, amount.Neg(), domain.TransactionTypeWithdrawal, description, actor)
}

// adjust applies a single-leg balance change and records it as an
// immediately-completed transaction, atomically in one database transaction.
func (s *transferService) adjust(ctx context.Context, cardID int64, delta decimal.Decimal, txType domain.TransactionType, description *string, actor domain.Actor) (*domain.Transaction, error) {
	s.locks.Lock(cardID)
	defer s.locks.Unlock(cardID)

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", txType, err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, fmt.Errorf("%s: transaction controller does not implement DBExecutor", txType)
	}

	if _, err := s.cardRepo.GetCardByID(ctx, txExecutor, cardID); err != nil {
		return nil, err
	}

	if err := s.cardRepo.AdjustBalance(ctx, txExecutor, cardID, delta); err != nil {
		if util.IsError(err, util.ErrNegativeBalance) {
			return nil, util.ErrInsufficientFunds
		}
		return nil, fmt.Errorf("%s: failed to adjust balance: %w", txType, err)
	}

	var fromCardID, toCardID *int64
	if delta.IsNegative() {
		fromCardID = &cardID
	} else {
		toCardID = &cardID
	}

	transaction := domain.NewTransaction(fromCardID, toCardID, delta.Abs(), txType, description, actor.UserID)
	if err := transaction.Complete(); err != nil {
		return nil, err
	}
	if err := s.txRepo.CreateTransaction(ctx, txExecutor, transaction); err != nil {
		return nil, fmt.Errorf("%s: failed to create transaction record: %w", txType, err)
	}
	transaction.Username = actor.Username

	if err := s.commitTx(txController); err != nil {
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", txType, err)
	}

	s.logger.Info("balance adjusted", "type", txType, "card_id", cardID, "amount", delta.Abs().String())
	return transaction, nil
}

// SweepStalePending marks PENDING transactions created before the cutoff as
// FAILED and returns the number reconciled. Under the synchronous design a
// surviving PENDING row indicates a crash between record creation and the
// terminal update; the sweep does not infer or reverse partial balance
// changes, those are reconciled out-of-band.
func (s *transferService) SweepStalePending(ctx context.Context, olderThan time.Time) (int, error) {
	stale, err := s.txRepo.ListStalePending(ctx, s.dbExecutor, olderThan)
	if err != nil {
		return 0, fmt.Errorf("stale sweep: %w", err)
	}

	swept := 0
	for i := range stale {
		transaction := &stale[i]
		if err := transaction.Fail(); err != nil {
			continue
		}
		if err := s.txRepo.UpdateStatus(ctx, s.dbExecutor, transaction); err != nil {
			// Raced with a concurrent transition; the row is terminal either way.
			if !util.IsError(err, util.ErrTransactionNotPending) {
				s.logger.Error("stale sweep: failed to fail transaction", "transaction_id", transaction.ID, "error", err)
			}
			continue
		}
		swept++
	}

	if swept > 0 {
		s.logger.Warn("stale pending transactions reconciled to FAILED", "count", swept)
	}
	return swept, nil
}
