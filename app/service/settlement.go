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

var DefaultPlatformFeeRate = decimal.RequireFromString("0.10")

type bookingRepository interface {
	ListUnsettled(ctx context.Context, tx repository.DBTX) ([]*entity.Booking, error)
	MarkSettled(ctx context.Context, tx repository.DBTX, bookingID string, settledAt time.Time) error
}

type SettlementResult struct {
	Evaluated int
	Settled   int
	Skipped   int
	TotalFees decimal.Decimal
}

// SettlementService skims the platform commission from completed bookings
// into the admin wallet. A run is all-or-nothing: if one booking fails,
// nothing from that run is committed.
type SettlementService struct {
	tx          transactor
	bookingRepo bookingRepository
	userRepo    userRepository
	walletRepo  walletRepository
	ledger      transferer
	outbox      outbox
	feeRate     decimal.Decimal
	now         func() time.Time
}

func NewSettlementService(
	tx transactor,
	bookingRepo bookingRepository,
	userRepo userRepository,
	walletRepo walletRepository,
	ledger transferer,
	n notifier,
	feeRate decimal.Decimal,
) *SettlementService {
	if !feeRate.IsPositive() {
		feeRate = DefaultPlatformFeeRate
	}
	return &SettlementService{
		tx:          tx,
		bookingRepo: bookingRepo,
		userRepo:    userRepo,
		walletRepo:  walletRepo,
		ledger:      ledger,
		outbox:      newOutbox(n, "settlement"),
		feeRate:     feeRate,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *SettlementService) PlatformFee(totalPrice decimal.Decimal) decimal.Decimal {
	return totalPrice.Mul(s.feeRate).Round(2)
}

func (s *SettlementService) SettlePlatformFees(ctx context.Context) (*SettlementResult, error) {
	result := &SettlementResult{TotalFees: decimal.Zero}
	var pending []pendingNotification

	err := s.tx.WithinTransaction(ctx, func(tx repository.DBTX) error {
		bookings, err := s.bookingRepo.ListUnsettled(ctx, tx)
		if err != nil {
			return err
		}
		if len(bookings) == 0 {
			return nil
		}

		admin, err := s.userRepo.FindAdmin(ctx, tx)
		if err != nil {
			return err
		}
		if admin == nil {
			return ErrAdminWalletMissing
		}
		adminWallet, err := s.walletRepo.FindByOwner(ctx, tx, admin.ID)
		if err != nil {
			return err
		}
		if adminWallet == nil {
			return ErrAdminWalletMissing
		}

		now := s.now()
		for _, booking := range bookings {
			result.Evaluated++

			vendorWallet, err := s.walletRepo.FindByOwner(ctx, tx, booking.VendorID)
			if err != nil {
				return err
			}
			if vendorWallet == nil {
				result.Skipped++
				continue
			}

			fee := s.PlatformFee(booking.TotalPrice)
			if !fee.IsPositive() {
				result.Skipped++
				continue
			}

			_, err = s.ledger.Transfer(ctx, tx, TransferInput{
				FromOwnerID:       booking.VendorID,
				ToOwnerID:         admin.ID,
				Amount:            fee,
				Description:       fmt.Sprintf("Platform fee for booking %s", booking.ID),
				RelatedEntityID:   booking.ID,
				RelatedEntityType: entity.RelatedEntityBooking,
			})
			if err != nil {
				return fmt.Errorf("settle booking %s: %w", booking.ID, err)
			}

			if err := s.bookingRepo.MarkSettled(ctx, tx, booking.ID, now); err != nil {
				if errors.Is(err, repository.ErrBookingAlreadySettled) {
					return fmt.Errorf("settle booking %s: %w", booking.ID, ErrNoRowsWritten)
				}
				return fmt.Errorf("settle booking %s: %w", booking.ID, err)
			}

			result.Settled++
			result.TotalFees = result.TotalFees.Add(fee)
			pending = append(pending,
				pendingNotification{
					userID:  admin.ID,
					title:   "Platform fee received",
					message: fmt.Sprintf("Platform fee of %s received for booking %s.", fee.StringFixed(2), booking.ID),
				},
				pendingNotification{
					userID:  booking.VendorID,
					title:   "Platform fee deducted",
					message: fmt.Sprintf("Platform fee of %s was deducted for booking %s.", fee.StringFixed(2), booking.ID),
				},
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.outbox.flush(ctx, pending)
	return result, nil
}
