package swaps

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rewear/service_layer/internal/app/domain/errs"
	"github.com/rewear/service_layer/internal/app/domain/item"
	"github.com/rewear/service_layer/internal/app/domain/swap"
	"github.com/rewear/service_layer/internal/app/domain/user"
	"github.com/rewear/service_layer/internal/app/services/items"
	"github.com/rewear/service_layer/internal/app/storage/memory"
)

type fixture struct {
	store     *memory.Store
	svc       *Service
	initiator user.User
	receiver  user.User
	offered   item.Item
	requested item.Item
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	ctx := context.Background()

	initiator, err := store.CreateUser(ctx, user.User{Email: "init@example.com"})
	if err != nil {
		t.Fatalf("create initiator: %v", err)
	}
	receiver, _ := store.CreateUser(ctx, user.User{Email: "recv@example.com"})
	offered, _ := store.CreateItem(ctx, item.Item{OwnerID: initiator.ID, Title: "jacket"})
	requested, _ := store.CreateItem(ctx, item.Item{OwnerID: receiver.ID, Title: "boots"})

	svc := New(store, items.New(store, nil), nil)
	return fixture{store: store, svc: svc, initiator: initiator, receiver: receiver, offered: offered, requested: requested}
}

func (f fixture) propose(t *testing.T) swap.Swap {
	t.Helper()
	sw, err := f.svc.Create(context.Background(), f.initiator.ID, CreateParams{
		ReceiverID:      f.receiver.ID,
		InitiatorItemID: f.offered.ID,
		ReceiverItemID:  f.requested.ID,
	})
	if err != nil {
		t.Fatalf("create swap: %v", err)
	}
	return sw
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, f.initiator.ID, CreateParams{
		ReceiverID: f.initiator.ID, InitiatorItemID: f.offered.ID, ReceiverItemID: f.requested.ID,
	}); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("self swap: expected forbidden, got %v", err)
	}

	if _, err := f.svc.Create(ctx, f.initiator.ID, CreateParams{
		ReceiverID: f.receiver.ID, InitiatorItemID: f.requested.ID, ReceiverItemID: f.offered.ID,
	}); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("wrong ownership: expected forbidden, got %v", err)
	}

	f.store.SetItemStatus(ctx, f.requested.ID, item.StatusSwapped)
	if _, err := f.svc.Create(ctx, f.initiator.ID, CreateParams{
		ReceiverID: f.receiver.ID, InitiatorItemID: f.offered.ID, ReceiverItemID: f.requested.ID,
	}); !errors.Is(err, errs.ErrItemUnavailable) {
		t.Fatalf("unavailable item: expected item unavailable, got %v", err)
	}
}

func TestCreate_DuplicatePendingPair(t *testing.T) {
	f := newFixture(t)
	f.propose(t)

	_, err := f.svc.Create(context.Background(), f.initiator.ID, CreateParams{
		ReceiverID:      f.receiver.ID,
		InitiatorItemID: f.offered.ID,
		ReceiverItemID:  f.requested.ID,
	})
	if !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreate_LeavesItemsAvailable(t *testing.T) {
	f := newFixture(t)
	f.propose(t)

	got, _ := f.store.GetItem(context.Background(), f.offered.ID)
	if got.Status != item.StatusAvailable {
		t.Fatalf("proposal changed item status to %s", got.Status)
	}
}

func TestTransition_AcceptThenComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sw := f.propose(t)

	accepted, err := f.svc.Transition(ctx, f.receiver.ID, sw.ID, swap.StatusAccepted)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != swap.StatusAccepted {
		t.Fatalf("expected accepted, got %s", accepted.Status)
	}
	offered, _ := f.store.GetItem(ctx, f.offered.ID)
	if offered.Status != item.StatusPending {
		t.Fatalf("accept left offered item %s", offered.Status)
	}

	completed, err := f.svc.Transition(ctx, f.initiator.ID, sw.ID, swap.StatusCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != swap.StatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}
	requested, _ := f.store.GetItem(ctx, f.requested.ID)
	if requested.Status != item.StatusSwapped {
		t.Fatalf("complete left requested item %s", requested.Status)
	}
}

func TestTransition_ReceiverOnlyEdges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sw := f.propose(t)

	_, err := f.svc.Transition(ctx, f.initiator.ID, sw.ID, swap.StatusAccepted)
	if !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("initiator accept: expected invalid transition, got %v", err)
	}
	_, err = f.svc.Transition(ctx, f.initiator.ID, sw.ID, swap.StatusRejected)
	if !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("initiator reject: expected invalid transition, got %v", err)
	}

	// Either side may cancel a pending swap.
	if _, err := f.svc.Transition(ctx, f.initiator.ID, sw.ID, swap.StatusCancelled); err != nil {
		t.Fatalf("initiator cancel: %v", err)
	}
}

func TestTransition_RejectRestoresAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sw := f.propose(t)

	if _, err := f.svc.Transition(ctx, f.receiver.ID, sw.ID, swap.StatusRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	offered, _ := f.store.GetItem(ctx, f.offered.ID)
	requested, _ := f.store.GetItem(ctx, f.requested.ID)
	if offered.Status != item.StatusAvailable || requested.Status != item.StatusAvailable {
		t.Fatalf("reject left items %s/%s", offered.Status, requested.Status)
	}
}

func TestTransition_RejectLeavesRedeemedItemAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sw := f.propose(t)

	// A pending proposal never claims its items, so the offered item can be
	// redeemed out from under it.
	f.store.SetItemStatus(ctx, f.offered.ID, item.StatusRedeemed)

	if _, err := f.svc.Transition(ctx, f.receiver.ID, sw.ID, swap.StatusRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	got, _ := f.store.GetItem(ctx, f.offered.ID)
	if got.Status != item.StatusRedeemed {
		t.Fatalf("reject moved redeemed item to %s", got.Status)
	}
}

func TestTransition_CancelLeavesOtherSwapsClaims(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other, _ := f.store.CreateUser(ctx, user.User{Email: "other@example.com"})
	otherItem, _ := f.store.CreateItem(ctx, item.Item{OwnerID: other.ID, Title: "scarf"})

	first := f.propose(t)
	second, err := f.svc.Create(ctx, f.initiator.ID, CreateParams{
		ReceiverID:      other.ID,
		InitiatorItemID: f.offered.ID,
		ReceiverItemID:  otherItem.ID,
	})
	if err != nil {
		t.Fatalf("create second swap: %v", err)
	}

	if _, err := f.svc.Transition(ctx, f.receiver.ID, first.ID, swap.StatusAccepted); err != nil {
		t.Fatalf("accept first: %v", err)
	}
	if _, err := f.svc.Transition(ctx, f.initiator.ID, second.ID, swap.StatusCancelled); err != nil {
		t.Fatalf("cancel second: %v", err)
	}

	offered, _ := f.store.GetItem(ctx, f.offered.ID)
	if offered.Status != item.StatusPending {
		t.Fatalf("cancelling an unrelated swap released the item to %s", offered.Status)
	}
}

func TestTransition_CancelAcceptedReleasesItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sw := f.propose(t)

	if _, err := f.svc.Transition(ctx, f.receiver.ID, sw.ID, swap.StatusAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.svc.Transition(ctx, f.receiver.ID, sw.ID, swap.StatusCancelled); err != nil {
		t.Fatalf("cancel accepted: %v", err)
	}
	offered, _ := f.store.GetItem(ctx, f.offered.ID)
	if offered.Status != item.StatusAvailable {
		t.Fatalf("cancel left offered item %s", offered.Status)
	}
}

func TestTransition_TerminalStatesAreFinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sw := f.propose(t)

	if _, err := f.svc.Transition(ctx, f.receiver.ID, sw.ID, swap.StatusRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	for _, target := range []swap.Status{swap.StatusAccepted, swap.StatusCompleted, swap.StatusCancelled, swap.StatusPending} {
		if _, err := f.svc.Transition(ctx, f.receiver.ID, sw.ID, target); !errors.Is(err, errs.ErrInvalidTransition) {
			t.Fatalf("rejected→%s: expected invalid transition, got %v", target, err)
		}
	}
}

func TestTransition_NonParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sw := f.propose(t)

	outsider, _ := f.store.CreateUser(ctx, user.User{Email: "out@example.com"})
	if _, err := f.svc.Transition(ctx, outsider.ID, sw.ID, swap.StatusAccepted); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.svc.Get(ctx, outsider.ID, sw.ID); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("get: expected forbidden, got %v", err)
	}
}

func TestTransition_ConcurrentOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sw := f.propose(t)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := f.svc.Transition(ctx, f.receiver.ID, sw.ID, swap.StatusAccepted)
		results <- err
	}()
	go func() {
		defer wg.Done()
		_, err := f.svc.Transition(ctx, f.receiver.ID, sw.ID, swap.StatusRejected)
		results <- err
	}()
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		if err == nil {
			wins++
		} else if errors.Is(err, errs.ErrConflict) || errors.Is(err, errs.ErrInvalidTransition) {
			losses++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("expected exactly one winner, got %d wins %d losses", wins, losses)
	}

	got, _ := f.store.GetSwap(ctx, sw.ID)
	if got.Status != swap.StatusAccepted && got.Status != swap.StatusRejected {
		t.Fatalf("swap ended in %s", got.Status)
	}
}

func TestListPendingForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.propose(t)

	pending, err := f.svc.ListPendingForUser(ctx, f.receiver.ID)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending swap, got %d", len(pending))
	}
	none, _ := f.svc.ListPendingForUser(ctx, f.initiator.ID)
	if len(none) != 0 {
		t.Fatalf("initiator should have no pending decisions, got %d", len(none))
	}
}
