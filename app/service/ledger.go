package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/entity"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/repository"
)

type walletRepository interface {
	FindByOwner(ctx context.Context, tx repository.DBTX, ownerID string) (*entity.Wallet, error)
	FindByOwnerForUpdate(ctx context.Context, tx repository.DBTX, ownerID string) (*entity.Wallet, error)
	AdjustBalance(ctx context.Context, tx repository.DBTX, ownerID string, delta decimal.Decimal, now time.Time) error
}

type transactionRepository interface {
	Append(ctx context.Context, tx repository.DBTX, item *entity.Transaction) error
}

type transactor interface {
	WithinTransaction(ctx context.Context, fn func(tx repository.DBTX) error) error
}

// TransferInput moves Amount from one actor's wallet to another's.
type TransferInput struct {
	FromOwnerID       string
	ToOwnerID         string
	Amount            decimal.Decimal
	Description       string
	RelatedEntityID   string
	RelatedEntityType string
	// RequireFunds rejects the transfer when the source balance would go
	// negative. Platform-initiated movements leave it unset.
	RequireFunds bool
}

type TransferResult struct {
	Debit  *entity.Transaction
	Credit *entity.Transaction
}

// LedgerService pairs the wallet and ledger primitives: one debit, one
// credit, two ledger rows, all on the caller's transaction.
type LedgerService struct {
	wallets      walletRepository
	transactions transactionRepository
	now          func() time.Time
}

func NewLedgerService(wallets walletRepository, transactions transactionRepository) *LedgerService {
	return &LedgerService{
		wallets:      wallets,
		transactions: transactions,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *LedgerService) Transfer(ctx context.Context, tx repository.DBTX, in TransferInput) (*TransferResult, error) {
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	from, to, err := s.lockWallets(ctx, tx, in.FromOwnerID, in.ToOwnerID)
	if err != nil {
		return nil, err
	}
	if in.RequireFunds && from.Balance.LessThan(in.Amount) {
		return nil, ErrInsufficientBalance
	}

	now := s.now()
	if err := s.adjust(ctx, tx, from.OwnerID, in.Amount.Neg(), now); err != nil {
		return nil, err
	}
	if err := s.adjust(ctx, tx, to.OwnerID, in.Amount, now); err != nil {
		return nil, err
	}

	debit := &entity.Transaction{
		WalletID:          from.ID,
		Type:              entity.TransactionTypeDebit,
		Amount:            in.Amount,
		Description:       in.Description,
		RelatedEntityID:   in.RelatedEntityID,
		RelatedEntityType: in.RelatedEntityType,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.transactions.Append(ctx, tx, debit); err != nil {
		return nil, fmt.Errorf("append debit: %w", err)
	}

	credit := &entity.Transaction{
		WalletID:          to.ID,
		Type:              entity.TransactionTypeCredit,
		Amount:            in.Amount,
		Description:       in.Description,
		RelatedEntityID:   in.RelatedEntityID,
		RelatedEntityType: in.RelatedEntityType,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.transactions.Append(ctx, tx, credit); err != nil {
		return nil, fmt.Errorf("append credit: %w", err)
	}

	return &TransferResult{Debit: debit, Credit: credit}, nil
}

// lockWallets takes row locks in owner-id order so two transfers between the
// same pair of wallets cannot deadlock.
func (s *LedgerService) lockWallets(ctx context.Context, tx repository.DBTX, fromOwnerID, toOwnerID string) (*entity.Wallet, *entity.Wallet, error) {
	first, second := fromOwnerID, toOwnerID
	if second < first {
		first, second = second, first
	}

	locked := make(map[string]*entity.Wallet, 2)
	for _, ownerID := range []string{first, second} {
		if _, ok := locked[ownerID]; ok {
			continue
		}
		wallet, err := s.wallets.FindByOwnerForUpdate(ctx, tx, ownerID)
		if err != nil {
			return nil, nil, err
		}
		if wallet == nil {
			return nil, nil, fmt.Errorf("%w: owner %s", ErrWalletNotFound, ownerID)
		}
		locked[ownerID] = wallet
	}

	return locked[fromOwnerID], locked[toOwnerID], nil
}

func (s *LedgerService) adjust(ctx context.Context, tx repository.DBTX, ownerID string, delta decimal.Decimal, now time.Time) error {
	if err := s.wallets.AdjustBalance(ctx, tx, ownerID, delta, now); err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return fmt.Errorf("%w: owner %s", ErrWalletNotFound, ownerID)
		}
		return err
	}
	return nil
}
