// Package redemptions implements the atomic points-for-item exchange.
package redemptions

import (
	"context"
	"fmt"

	"github.com/rewear/service_layer/internal/app/domain/errs"
	"github.com/rewear/service_layer/internal/app/domain/item"
	"github.com/rewear/service_layer/internal/app/domain/redemption"
	"github.com/rewear/service_layer/internal/app/domain/user"
	"github.com/rewear/service_layer/internal/app/metrics"
	"github.com/rewear/service_layer/internal/app/services/items"
	"github.com/rewear/service_layer/internal/app/services/points"
	"github.com/rewear/service_layer/internal/app/storage"
	"github.com/rewear/service_layer/pkg/logger"
)

// Service processes redemptions.
type Service struct {
	store  storage.Store
	ledger *points.Service
	items  *items.Service
	log    *logger.Logger
}

// New constructs a redemption service.
func New(store storage.Store, ledger *points.Service, itemSvc *items.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("redemptions")
	}
	return &Service{store: store, ledger: ledger, items: itemSvc, log: log}
}

// Redeem exchanges pointsUsed for the item. The debit, the item status flip
// and the redemption record commit as one unit or not at all. Of two
// concurrent redemptions of the same item exactly one succeeds; the other
// fails with errs.ErrItemUnavailable or errs.ErrConflict.
func (s *Service) Redeem(ctx context.Context, userID, itemID string, pointsUsed int64) (redemption.Redemption, int64, error) {
	if pointsUsed <= 0 {
		return redemption.Redemption{}, 0, fmt.Errorf("points used must be positive: %w", errs.ErrInvalidState)
	}

	var (
		rec     redemption.Redemption
		balance int64
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		it, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}

		if it.Status != item.StatusAvailable {
			return fmt.Errorf("item %s is %s: %w", itemID, it.Status, errs.ErrItemUnavailable)
		}
		if pointsUsed != it.PointsValue {
			return fmt.Errorf("item %s costs %d, offered %d: %w", itemID, it.PointsValue, pointsUsed, errs.ErrPointsMismatch)
		}

		balance, err = s.ledger.Debit(ctx, tx, userID, pointsUsed)
		if err != nil {
			return err
		}

		if err := s.items.SetStatus(ctx, tx, itemID, item.StatusAvailable, item.StatusRedeemed); err != nil {
			return err
		}

		rec, err = tx.CreateRedemption(ctx, redemption.Redemption{
			UserID:     userID,
			ItemID:     itemID,
			PointsUsed: pointsUsed,
			Status:     redemption.StatusCompleted,
		})
		return err
	})
	if err != nil {
		return redemption.Redemption{}, 0, err
	}

	metrics.RecordRedemption(pointsUsed)
	s.items.InvalidateListings(ctx)
	s.log.WithField("redemption_id", rec.ID).
		WithField("user_id", userID).
		WithField("item_id", itemID).
		WithField("points_used", pointsUsed).
		Info("item redeemed")
	return rec, balance, nil
}

// Get returns a redemption to its redeemer or an administrator.
func (s *Service) Get(ctx context.Context, actingUser string, actingRole user.Role, id string) (redemption.Redemption, error) {
	rec, err := s.store.GetRedemption(ctx, id)
	if err != nil {
		return redemption.Redemption{}, err
	}
	if rec.UserID != actingUser && actingRole != user.RoleAdmin {
		return redemption.Redemption{}, errs.Forbidden("redemption " + id + " belongs to another user")
	}
	return rec, nil
}

// ListForUser returns a user's redemptions, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]redemption.Redemption, error) {
	return s.store.ListRedemptionsForUser(ctx, userID)
}
