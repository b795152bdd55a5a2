// Package storage declares the persistence contracts for the marketplace.
// Implementations must report errs.ErrNotFound, errs.ErrConflict,
// errs.ErrInsufficientFunds, errs.ErrDuplicateRating and errs.ErrDuplicateEmail
// so services stay engine-agnostic.
package storage

import (
	"context"

	"github.com/rewear/service_layer/internal/app/domain/item"
	"github.com/rewear/service_layer/internal/app/domain/rating"
	"github.com/rewear/service_layer/internal/app/domain/redemption"
	"github.com/rewear/service_layer/internal/app/domain/swap"
	"github.com/rewear/service_layer/internal/app/domain/user"
)

// UserStore persists user records.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)

	// GetUserForUpdate returns the user and claims it for the rest of the
	// atomic unit: concurrent units reading the same user this way serialize
	// behind each other. Outside an atomic unit it behaves like GetUser.
	GetUserForUpdate(ctx context.Context, id string) (user.User, error)

	// AdjustUserPoints applies delta to the user's balance and returns the new
	// balance. A debit that would drive the balance negative fails with
	// errs.ErrInsufficientFunds and leaves the balance untouched.
	AdjustUserPoints(ctx context.Context, id string, delta int64) (int64, error)

	// SetUserRating overwrites the stored rating aggregate.
	SetUserRating(ctx context.Context, id string, average float64, count int64) error
}

// ItemStore persists item records.
type ItemStore interface {
	CreateItem(ctx context.Context, it item.Item) (item.Item, error)
	GetItem(ctx context.Context, id string) (item.Item, error)
	UpdateItem(ctx context.Context, it item.Item) (item.Item, error)
	DeleteItem(ctx context.Context, id string) error
	ListAvailableItems(ctx context.Context, f item.Filter) ([]item.Item, error)
	ListItemsByOwner(ctx context.Context, ownerID string) ([]item.Item, error)

	// SetItemStatus unconditionally moves the item to a status.
	SetItemStatus(ctx context.Context, id string, to item.Status) error

	// SetItemStatusFrom moves the item to a status only when it currently holds
	// from; otherwise it fails with errs.ErrConflict without mutating anything.
	SetItemStatusFrom(ctx context.Context, id string, from, to item.Status) error
}

// SwapStore persists swap records.
type SwapStore interface {
	CreateSwap(ctx context.Context, s swap.Swap) (swap.Swap, error)
	GetSwap(ctx context.Context, id string) (swap.Swap, error)

	// UpdateSwapStatus moves the swap to a status only when its version still
	// equals expectVersion; a lost race fails with errs.ErrConflict.
	UpdateSwapStatus(ctx context.Context, id string, to swap.Status, expectVersion int64) (swap.Swap, error)

	// FindPendingSwapForPair looks for a pending swap referencing the two items
	// in either direction. errs.ErrNotFound when none exists.
	FindPendingSwapForPair(ctx context.Context, itemA, itemB string) (swap.Swap, error)

	ListSwapsForUser(ctx context.Context, userID string) ([]swap.Swap, error)
	ListPendingSwapsForReceiver(ctx context.Context, userID string) ([]swap.Swap, error)
}

// RedemptionStore persists redemption records.
type RedemptionStore interface {
	CreateRedemption(ctx context.Context, r redemption.Redemption) (redemption.Redemption, error)
	GetRedemption(ctx context.Context, id string) (redemption.Redemption, error)
	ListRedemptionsForUser(ctx context.Context, userID string) ([]redemption.Redemption, error)
}

// RatingStore persists rating records.
type RatingStore interface {
	// CreateRating fails with errs.ErrDuplicateRating when a rating already
	// exists for the same (rater, rated user, transaction type, transaction id)
	// with a transaction link present.
	CreateRating(ctx context.Context, r rating.Rating) (rating.Rating, error)
	GetRating(ctx context.Context, id string) (rating.Rating, error)
	ListRatingsGiven(ctx context.Context, raterID string) ([]rating.Rating, error)
	ListRatingsReceived(ctx context.Context, ratedUserID string) ([]rating.Rating, error)

	// RatingAggregate returns the count and sum of scores received by a user.
	RatingAggregate(ctx context.Context, ratedUserID string) (count int64, sum int64, err error)
}

// Tx bundles the entity stores inside one atomic unit. Every mutation issued
// through a Tx commits or rolls back as a whole.
type Tx interface {
	UserStore
	ItemStore
	SwapStore
	RedemptionStore
	RatingStore
}

// Transactor runs a function within an atomic unit providing at least
// read-committed isolation with no lost updates on the guarded writes.
type Transactor interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Store is the full persistence surface the application wires against.
type Store interface {
	Tx
	Transactor
}
