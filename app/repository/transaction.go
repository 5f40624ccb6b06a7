package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/entity"
)

const (
	transactionIDPrefix      = "TXN-"
	transactionIDSuffixLen   = 10
	transactionIDMaxAttempts = 3
)

var (
	ErrInvalidTransactionAmount = errors.New("transaction amount must be positive")
	ErrInvalidTransactionType   = errors.New("transaction type must be credit or debit")
)

type TransactionRepository struct {
	db    DBTX
	newID func() string
}

func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db, newID: NewTransactionID}
}

// NewTransactionID returns a human-readable ledger code such as TXN-4F1C09A2B7.
func NewTransactionID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return transactionIDPrefix + strings.ToUpper(raw[:transactionIDSuffixLen])
}

// Append inserts one immutable ledger row. The sign of the movement is carried
// by Type; Amount is always positive. A fresh TransactionID is generated per
// row and regenerated on a unique-key collision.
func (r *TransactionRepository) Append(ctx context.Context, tx DBTX, item *entity.Transaction) error {
	if !item.Amount.IsPositive() {
		return ErrInvalidTransactionAmount
	}
	if item.Type != entity.TransactionTypeCredit && item.Type != entity.TransactionTypeDebit {
		return ErrInvalidTransactionType
	}

	query := `
		INSERT INTO transactions (
			wallet_id, type, amount, description, related_entity_id, related_entity_type,
			transaction_id, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	db := pick(tx, r.db)
	var lastErr error
	for attempt := 0; attempt < transactionIDMaxAttempts; attempt++ {
		item.TransactionID = r.newID()
		result, err := db.ExecContext(ctx, query,
			item.WalletID,
			item.Type,
			item.Amount,
			item.Description,
			item.RelatedEntityID,
			item.RelatedEntityType,
			item.TransactionID,
			item.CreatedAt,
			item.UpdatedAt,
		)
		if err != nil {
			if isDuplicateEntryError(err) {
				lastErr = err
				continue
			}
			return err
		}

		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		item.ID = uint64(id)
		return nil
	}

	return fmt.Errorf("generate unique transaction id: %w", lastErr)
}

func (r *TransactionRepository) ListByWallet(ctx context.Context, walletID uint64) ([]*entity.Transaction, error) {
	query := `
		SELECT id, wallet_id, type, amount, description, related_entity_id, related_entity_type,
		       transaction_id, created_at, updated_at
		FROM transactions
		WHERE wallet_id = ?
		ORDER BY id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, walletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.Transaction, 0)
	for rows.Next() {
		item := &entity.Transaction{}
		if err := rows.Scan(
			&item.ID,
			&item.WalletID,
			&item.Type,
			&item.Amount,
			&item.Description,
			&item.RelatedEntityID,
			&item.RelatedEntityType,
			&item.TransactionID,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
