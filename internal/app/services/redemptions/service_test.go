package redemptions

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rewear/service_layer/internal/app/domain/errs"
	"github.com/rewear/service_layer/internal/app/domain/item"
	"github.com/rewear/service_layer/internal/app/domain/redemption"
	"github.com/rewear/service_layer/internal/app/domain/user"
	"github.com/rewear/service_layer/internal/app/services/items"
	"github.com/rewear/service_layer/internal/app/services/points"
	"github.com/rewear/service_layer/internal/app/storage/memory"
)

func newService(store *memory.Store) *Service {
	return New(store, points.New(store, nil), items.New(store, nil), nil)
}

func TestRedeem_HappyPath(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	svc := newService(store)

	buyer, _ := store.CreateUser(ctx, user.User{Email: "buyer@example.com", Points: 120})
	seller, _ := store.CreateUser(ctx, user.User{Email: "seller@example.com"})
	it, _ := store.CreateItem(ctx, item.Item{OwnerID: seller.ID, Title: "scarf", PointsValue: 80})

	rec, balance, err := svc.Redeem(ctx, buyer.ID, it.ID, 80)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if rec.Status != redemption.StatusCompleted {
		t.Fatalf("expected completed, got %s", rec.Status)
	}
	if balance != 40 {
		t.Fatalf("expected balance 40, got %d", balance)
	}
	got, _ := store.GetItem(ctx, it.ID)
	if got.Status != item.StatusRedeemed {
		t.Fatalf("item left %s", got.Status)
	}
}

func TestRedeem_PointsMismatch(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	svc := newService(store)

	buyer, _ := store.CreateUser(ctx, user.User{Email: "buyer@example.com", Points: 120})
	it, _ := store.CreateItem(ctx, item.Item{OwnerID: "seller", Title: "scarf", PointsValue: 80})

	if _, _, err := svc.Redeem(ctx, buyer.ID, it.ID, 79); !errors.Is(err, errs.ErrPointsMismatch) {
		t.Fatalf("expected points mismatch, got %v", err)
	}
	got, _ := store.GetUser(ctx, buyer.ID)
	if got.Points != 120 {
		t.Fatalf("failed redemption touched balance: %d", got.Points)
	}
}

func TestRedeem_InsufficientFunds(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	svc := newService(store)

	buyer, _ := store.CreateUser(ctx, user.User{Email: "buyer@example.com", Points: 50})
	it, _ := store.CreateItem(ctx, item.Item{OwnerID: "seller", Title: "scarf", PointsValue: 80})

	if _, _, err := svc.Redeem(ctx, buyer.ID, it.ID, 80); !errors.Is(err, errs.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	got, _ := store.GetItem(ctx, it.ID)
	if got.Status != item.StatusAvailable {
		t.Fatalf("failed redemption touched item: %s", got.Status)
	}
	u, _ := store.GetUser(ctx, buyer.ID)
	if u.Points != 50 {
		t.Fatalf("failed redemption touched balance: %d", u.Points)
	}
}

func TestRedeem_ItemUnavailable(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	svc := newService(store)

	buyer, _ := store.CreateUser(ctx, user.User{Email: "buyer@example.com", Points: 200})
	it, _ := store.CreateItem(ctx, item.Item{OwnerID: "seller", Title: "scarf", PointsValue: 80})
	store.SetItemStatus(ctx, it.ID, item.StatusPending)

	if _, _, err := svc.Redeem(ctx, buyer.ID, it.ID, 80); !errors.Is(err, errs.ErrItemUnavailable) {
		t.Fatalf("expected item unavailable, got %v", err)
	}
}

func TestRedeem_ConcurrentOneWinner(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	svc := newService(store)

	a, _ := store.CreateUser(ctx, user.User{Email: "a@example.com", Points: 100})
	b, _ := store.CreateUser(ctx, user.User{Email: "b@example.com", Points: 100})
	it, _ := store.CreateItem(ctx, item.Item{OwnerID: "seller", Title: "scarf", PointsValue: 100})

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, buyer := range []string{a.ID, b.ID} {
		wg.Add(1)
		go func(buyerID string) {
			defer wg.Done()
			_, _, err := svc.Redeem(ctx, buyerID, it.ID, 100)
			results <- err
		}(buyer)
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		if err == nil {
			wins++
		} else if errors.Is(err, errs.ErrItemUnavailable) || errors.Is(err, errs.ErrConflict) {
			losses++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("expected exactly one winner, got %d wins %d losses", wins, losses)
	}

	balanceA, _ := store.GetUser(ctx, a.ID)
	balanceB, _ := store.GetUser(ctx, b.ID)
	if balanceA.Points+balanceB.Points != 100 {
		t.Fatalf("exactly one balance should be debited: a=%d b=%d", balanceA.Points, balanceB.Points)
	}
}

func TestGet_Authorization(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	svc := newService(store)

	buyer, _ := store.CreateUser(ctx, user.User{Email: "buyer@example.com", Points: 100})
	it, _ := store.CreateItem(ctx, item.Item{OwnerID: "seller", Title: "scarf", PointsValue: 100})
	rec, _, err := svc.Redeem(ctx, buyer.ID, it.ID, 100)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}

	if _, err := svc.Get(ctx, buyer.ID, user.RoleUser, rec.ID); err != nil {
		t.Fatalf("redeemer get: %v", err)
	}
	if _, err := svc.Get(ctx, "someone-else", user.RoleUser, rec.ID); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("stranger get: expected forbidden, got %v", err)
	}
	if _, err := svc.Get(ctx, "admin-id", user.RoleAdmin, rec.ID); err != nil {
		t.Fatalf("admin get: %v", err)
	}
}
