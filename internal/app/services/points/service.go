// Package points implements the marketplace points ledger. Every mutation runs
// against a caller-supplied store handle so debits and credits can join the
// atomic unit of the surrounding transaction.
package points

import (
	"context"
	"fmt"

	"github.com/rewear/service_layer/internal/app/domain/errs"
	"github.com/rewear/service_layer/internal/app/storage"
	"github.com/rewear/service_layer/pkg/logger"
)

// Service is the points ledger.
type Service struct {
	store storage.UserStore
	log   *logger.Logger
}

// New constructs a ledger over the root store. Balance reads go through it;
// mutations go through whatever store handle the caller passes in.
func New(store storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("points")
	}
	return &Service{store: store, log: log}
}

// Debit removes amount from the user's balance within the supplied atomic
// unit and returns the new balance. The balance never goes negative; a debit
// beyond the current balance fails with errs.ErrInsufficientFunds.
func (s *Service) Debit(ctx context.Context, tx storage.UserStore, userID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount must be positive, got %d: %w", amount, errs.ErrInvalidState)
	}
	balance, err := tx.AdjustUserPoints(ctx, userID, -amount)
	if err != nil {
		return 0, err
	}
	s.log.WithField("user_id", userID).
		WithField("amount", amount).
		WithField("balance", balance).
		Debug("points debited")
	return balance, nil
}

// Credit adds amount to the user's balance within the supplied atomic unit.
func (s *Service) Credit(ctx context.Context, tx storage.UserStore, userID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %d: %w", amount, errs.ErrInvalidState)
	}
	balance, err := tx.AdjustUserPoints(ctx, userID, amount)
	if err != nil {
		return 0, err
	}
	s.log.WithField("user_id", userID).
		WithField("amount", amount).
		WithField("balance", balance).
		Debug("points credited")
	return balance, nil
}

// Balance returns the user's current balance.
func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.Points, nil
}
