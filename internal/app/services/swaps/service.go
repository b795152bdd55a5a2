// Package swaps implements the swap lifecycle state machine and its side
// effects on item availability.
package swaps

import (
	"context"
	"errors"
	"fmt"

	"github.com/rewear/service_layer/internal/app/domain/errs"
	"github.com/rewear/service_layer/internal/app/domain/item"
	"github.com/rewear/service_layer/internal/app/domain/swap"
	"github.com/rewear/service_layer/internal/app/metrics"
	"github.com/rewear/service_layer/internal/app/services/items"
	"github.com/rewear/service_layer/internal/app/storage"
	"github.com/rewear/service_layer/pkg/logger"
)

// Service manages swap proposals and transitions.
type Service struct {
	store storage.Store
	items *items.Service
	log   *logger.Logger
}

// New constructs a swap service.
func New(store storage.Store, itemSvc *items.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("swaps")
	}
	return &Service{store: store, items: itemSvc, log: log}
}

// CreateParams describe a swap proposal.
type CreateParams struct {
	ReceiverID      string
	InitiatorItemID string
	ReceiverItemID  string
	Message         string
}

// Create validates and records a swap proposal. Creation never touches item
// status; items stay available until the receiver accepts.
func (s *Service) Create(ctx context.Context, initiatorID string, p CreateParams) (swap.Swap, error) {
	if p.ReceiverID == "" || p.InitiatorItemID == "" || p.ReceiverItemID == "" {
		return swap.Swap{}, fmt.Errorf("receiver and both items are required: %w", errs.ErrInvalidState)
	}
	if initiatorID == p.ReceiverID {
		return swap.Swap{}, errs.Forbidden("cannot swap with yourself")
	}

	var created swap.Swap
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		initiatorItem, err := tx.GetItem(ctx, p.InitiatorItemID)
		if err != nil {
			return err
		}
		receiverItem, err := tx.GetItem(ctx, p.ReceiverItemID)
		if err != nil {
			return err
		}

		if initiatorItem.Status != item.StatusAvailable {
			return fmt.Errorf("item %s: %w", initiatorItem.ID, errs.ErrItemUnavailable)
		}
		if receiverItem.Status != item.StatusAvailable {
			return fmt.Errorf("item %s: %w", receiverItem.ID, errs.ErrItemUnavailable)
		}
		if initiatorItem.OwnerID != initiatorID {
			return errs.Forbidden("offered item not owned by initiator")
		}
		if receiverItem.OwnerID != p.ReceiverID {
			return errs.Forbidden("requested item not owned by receiver")
		}

		// The reversed pairing counts as the same proposal.
		if _, err := tx.FindPendingSwapForPair(ctx, p.InitiatorItemID, p.ReceiverItemID); err == nil {
			return fmt.Errorf("pending swap already exists for these items: %w", errs.ErrConflict)
		} else if !errors.Is(err, errs.ErrNotFound) {
			return err
		}

		created, err = tx.CreateSwap(ctx, swap.Swap{
			InitiatorID:     initiatorID,
			ReceiverID:      p.ReceiverID,
			InitiatorItemID: p.InitiatorItemID,
			ReceiverItemID:  p.ReceiverItemID,
			Status:          swap.StatusPending,
			Message:         p.Message,
		})
		return err
	})
	if err != nil {
		return swap.Swap{}, err
	}

	s.log.WithField("swap_id", created.ID).
		WithField("initiator_id", initiatorID).
		WithField("receiver_id", p.ReceiverID).
		Info("swap requested")
	return created, nil
}

// Get returns a swap to one of its participants.
func (s *Service) Get(ctx context.Context, actingUser, id string) (swap.Swap, error) {
	sw, err := s.store.GetSwap(ctx, id)
	if err != nil {
		return swap.Swap{}, err
	}
	if sw.RoleOf(actingUser) == swap.RoleNone {
		return swap.Swap{}, errs.Forbidden("not a participant of swap " + id)
	}
	return sw, nil
}

// Transition moves a swap to target and applies the item side effects, all in
// one atomic unit. Of two concurrent transitions on the same swap exactly one
// wins; the loser fails with errs.ErrConflict.
func (s *Service) Transition(ctx context.Context, actingUser, swapID string, target swap.Status) (swap.Swap, error) {
	if !target.Valid() {
		return swap.Swap{}, fmt.Errorf("unknown swap status %q: %w", target, errs.ErrInvalidState)
	}

	var updated swap.Swap
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		sw, err := tx.GetSwap(ctx, swapID)
		if err != nil {
			return err
		}

		role := sw.RoleOf(actingUser)
		if role == swap.RoleNone {
			return errs.Forbidden("not a participant of swap " + swapID)
		}

		rule, ok := swap.RuleFor(sw.Status, target)
		if !ok {
			return &errs.TransitionError{From: string(sw.Status), To: string(target), Role: string(role)}
		}
		if rule.ReceiverOnly && role != swap.RoleReceiver {
			return &errs.TransitionError{From: string(sw.Status), To: string(target), Role: string(role)}
		}

		updated, err = tx.UpdateSwapStatus(ctx, swapID, target, sw.Version)
		if err != nil {
			return err
		}

		return s.applyItemEffects(ctx, tx, sw, rule)
	})
	if err != nil {
		return swap.Swap{}, err
	}

	metrics.RecordSwapTransition(string(target))
	s.items.InvalidateListings(ctx)
	s.log.WithField("swap_id", swapID).
		WithField("actor_id", actingUser).
		WithField("status", target).
		Info("swap transitioned")
	return updated, nil
}

// applyItemEffects moves both referenced items per the transition rule.
// Every move is guarded on the item's expected status, so an item that was
// redeemed or claimed elsewhere in the meantime is never dragged back.
func (s *Service) applyItemEffects(ctx context.Context, tx storage.Tx, sw swap.Swap, rule swap.Rule) error {
	if !rule.TouchesItems() {
		return nil
	}
	for _, itemID := range []string{sw.InitiatorItemID, sw.ReceiverItemID} {
		if err := s.items.SetStatus(ctx, tx, itemID, rule.ItemFrom, rule.ItemTo); err != nil {
			return fmt.Errorf("move item %s to %s: %w", itemID, rule.ItemTo, err)
		}
	}
	return nil
}

// ListForUser returns every swap the user participates in, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]swap.Swap, error) {
	return s.store.ListSwapsForUser(ctx, userID)
}

// ListPendingForUser returns pending swaps awaiting the user's decision.
func (s *Service) ListPendingForUser(ctx context.Context, userID string) ([]swap.Swap, error) {
	return s.store.ListPendingSwapsForReceiver(ctx, userID)
}
