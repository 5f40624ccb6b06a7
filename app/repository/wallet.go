package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/entity"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrWalletAlreadyExists = errors.New("wallet already exists")
)

const walletColumns = `id, owner_id, balance, created_at, updated_at`

type WalletRepository struct {
	db DBTX
}

func NewWalletRepository(db DBTX) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) Create(ctx context.Context, tx DBTX, wallet *entity.Wallet) error {
	query := `
		INSERT INTO wallets (owner_id, balance, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`

	result, err := pick(tx, r.db).ExecContext(ctx, query, wallet.OwnerID, wallet.Balance, wallet.CreatedAt, wallet.UpdatedAt)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrWalletAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	wallet.ID = uint64(id)
	return nil
}

func (r *WalletRepository) FindByOwner(ctx context.Context, tx DBTX, ownerID string) (*entity.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_id = ?`
	return r.findOne(ctx, pick(tx, r.db), query, ownerID)
}

func (r *WalletRepository) FindByOwnerForUpdate(ctx context.Context, tx DBTX, ownerID string) (*entity.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_id = ? FOR UPDATE`
	return r.findOne(ctx, pick(tx, r.db), query, ownerID)
}

// AdjustBalance applies delta (positive or negative) to exactly one wallet.
// It enforces no pairing; callers write the opposite half themselves.
func (r *WalletRepository) AdjustBalance(ctx context.Context, tx DBTX, ownerID string, delta decimal.Decimal, now time.Time) error {
	query := `
		UPDATE wallets
		SET balance = balance + ?, updated_at = ?
		WHERE owner_id = ?
	`

	result, err := pick(tx, r.db).ExecContext(ctx, query, delta, now, ownerID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (r *WalletRepository) findOne(ctx context.Context, db DBTX, query string, args ...interface{}) (*entity.Wallet, error) {
	item := &entity.Wallet{}
	err := db.QueryRowContext(ctx, query, args...).Scan(
		&item.ID,
		&item.OwnerID,
		&item.Balance,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}
