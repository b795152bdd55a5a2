// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rewear/service_layer/internal/app/domain/errs"
	"github.com/rewear/service_layer/internal/app/domain/item"
	"github.com/rewear/service_layer/internal/app/domain/rating"
	"github.com/rewear/service_layer/internal/app/domain/redemption"
	"github.com/rewear/service_layer/internal/app/domain/swap"
	"github.com/rewear/service_layer/internal/app/domain/user"
	"github.com/rewear/service_layer/internal/app/storage"

	"sync"
)

// Store is the in-memory store. A single write lock serializes every atomic
// unit, so transactional callers observe the same no-lost-update semantics the
// postgres store provides with row guards.
type Store struct {
	mu           sync.RWMutex
	nextID       int64
	users        map[string]user.User
	usersByEmail map[string]string
	items        map[string]item.Item
	swaps        map[string]swap.Swap
	redemptions  map[string]redemption.Redemption
	ratings      map[string]rating.Rating
	ratingKeys   map[string]string // dedup key -> rating ID
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:       1,
		users:        make(map[string]user.User),
		usersByEmail: make(map[string]string),
		items:        make(map[string]item.Item),
		swaps:        make(map[string]swap.Swap),
		redemptions:  make(map[string]redemption.Redemption),
		ratings:      make(map[string]rating.Rating),
		ratingKeys:   make(map[string]string),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// InTx runs fn while holding the write lock and rolls every map back to its
// pre-transaction snapshot when fn fails.
func (s *Store) InTx(_ context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked()
	if err := fn(&txView{s: s}); err != nil {
		s.restoreLocked(snap)
		return err
	}
	return nil
}

type snapshot struct {
	nextID       int64
	users        map[string]user.User
	usersByEmail map[string]string
	items        map[string]item.Item
	swaps        map[string]swap.Swap
	redemptions  map[string]redemption.Redemption
	ratings      map[string]rating.Rating
	ratingKeys   map[string]string
}

func (s *Store) snapshotLocked() snapshot {
	return snapshot{
		nextID:       s.nextID,
		users:        cloneMap(s.users),
		usersByEmail: cloneMap(s.usersByEmail),
		items:        cloneMap(s.items),
		swaps:        cloneMap(s.swaps),
		redemptions:  cloneMap(s.redemptions),
		ratings:      cloneMap(s.ratings),
		ratingKeys:   cloneMap(s.ratingKeys),
	}
}

func (s *Store) restoreLocked(snap snapshot) {
	s.nextID = snap.nextID
	s.users = snap.users
	s.usersByEmail = snap.usersByEmail
	s.items = snap.items
	s.swaps = snap.swaps
	s.redemptions = snap.redemptions
	s.ratings = snap.ratings
	s.ratingKeys = snap.ratingKeys
}

func cloneMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneItem(it item.Item) item.Item {
	it.Tags = cloneStrings(it.Tags)
	it.ImageURLs = cloneStrings(it.ImageURLs)
	return it
}

// txView exposes the locked implementations as a storage.Tx. The write lock is
// held by InTx for the view's whole lifetime.
type txView struct {
	s *Store
}

var _ storage.Tx = (*txView)(nil)

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createUserLocked(u)
}

func (v *txView) CreateUser(_ context.Context, u user.User) (user.User, error) {
	return v.s.createUserLocked(u)
}

func (s *Store) createUserLocked(u user.User) (user.User, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if _, exists := s.usersByEmail[email]; exists {
		return user.User{}, fmt.Errorf("user %s: %w", email, errs.ErrDuplicateEmail)
	}
	if u.ID == "" {
		u.ID = s.nextIDLocked()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, fmt.Errorf("user %s: %w", u.ID, errs.ErrConflict)
	}
	now := time.Now().UTC()
	u.Email = email
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = user.RoleUser
	}
	s.users[u.ID] = u
	s.usersByEmail[email] = u.ID
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getUserLocked(id)
}

func (v *txView) GetUser(_ context.Context, id string) (user.User, error) {
	return v.s.getUserLocked(id)
}

func (s *Store) getUserLocked(id string) (user.User, error) {
	u, ok := s.users[id]
	if !ok {
		return user.User{}, errs.NotFound("user", id)
	}
	return u, nil
}

// GetUserForUpdate degrades to a plain read: the store-wide write lock held
// for the whole atomic unit already serializes concurrent units.
func (s *Store) GetUserForUpdate(ctx context.Context, id string) (user.User, error) {
	return s.GetUser(ctx, id)
}

func (v *txView) GetUserForUpdate(_ context.Context, id string) (user.User, error) {
	return v.s.getUserLocked(id)
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getUserByEmailLocked(email)
}

func (v *txView) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	return v.s.getUserByEmailLocked(email)
}

func (s *Store) getUserByEmailLocked(email string) (user.User, error) {
	id, ok := s.usersByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return user.User{}, errs.NotFound("user", email)
	}
	return s.users[id], nil
}

func (s *Store) AdjustUserPoints(_ context.Context, id string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustUserPointsLocked(id, delta)
}

func (v *txView) AdjustUserPoints(_ context.Context, id string, delta int64) (int64, error) {
	return v.s.adjustUserPointsLocked(id, delta)
}

func (s *Store) adjustUserPointsLocked(id string, delta int64) (int64, error) {
	u, ok := s.users[id]
	if !ok {
		return 0, errs.NotFound("user", id)
	}
	next := u.Points + delta
	if next < 0 {
		return u.Points, fmt.Errorf("balance %d, need %d: %w", u.Points, -delta, errs.ErrInsufficientFunds)
	}
	u.Points = next
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return next, nil
}

func (s *Store) SetUserRating(_ context.Context, id string, average float64, count int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setUserRatingLocked(id, average, count)
}

func (v *txView) SetUserRating(_ context.Context, id string, average float64, count int64) error {
	return v.s.setUserRatingLocked(id, average, count)
}

func (s *Store) setUserRatingLocked(id string, average float64, count int64) error {
	u, ok := s.users[id]
	if !ok {
		return errs.NotFound("user", id)
	}
	u.RatingAverage = average
	u.RatingCount = count
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return nil
}

// ItemStore implementation ----------------------------------------------------

func (s *Store) CreateItem(_ context.Context, it item.Item) (item.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createItemLocked(it)
}

func (v *txView) CreateItem(_ context.Context, it item.Item) (item.Item, error) {
	return v.s.createItemLocked(it)
}

func (s *Store) createItemLocked(it item.Item) (item.Item, error) {
	if it.ID == "" {
		it.ID = s.nextIDLocked()
	} else if _, exists := s.items[it.ID]; exists {
		return item.Item{}, fmt.Errorf("item %s: %w", it.ID, errs.ErrConflict)
	}
	now := time.Now().UTC()
	it.CreatedAt = now
	it.UpdatedAt = now
	if it.Status == "" {
		it.Status = item.StatusAvailable
	}
	s.items[it.ID] = cloneItem(it)
	return it, nil
}

func (s *Store) GetItem(_ context.Context, id string) (item.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getItemLocked(id)
}

func (v *txView) GetItem(_ context.Context, id string) (item.Item, error) {
	return v.s.getItemLocked(id)
}

func (s *Store) getItemLocked(id string) (item.Item, error) {
	it, ok := s.items[id]
	if !ok {
		return item.Item{}, errs.NotFound("item", id)
	}
	return cloneItem(it), nil
}

func (s *Store) UpdateItem(_ context.Context, it item.Item) (item.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateItemLocked(it)
}

func (v *txView) UpdateItem(_ context.Context, it item.Item) (item.Item, error) {
	return v.s.updateItemLocked(it)
}

func (s *Store) updateItemLocked(it item.Item) (item.Item, error) {
	original, ok := s.items[it.ID]
	if !ok {
		return item.Item{}, errs.NotFound("item", it.ID)
	}
	it.OwnerID = original.OwnerID
	it.Status = original.Status
	it.CreatedAt = original.CreatedAt
	it.UpdatedAt = time.Now().UTC()
	s.items[it.ID] = cloneItem(it)
	return it, nil
}

func (s *Store) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteItemLocked(id)
}

func (v *txView) DeleteItem(_ context.Context, id string) error {
	return v.s.deleteItemLocked(id)
}

func (s *Store) deleteItemLocked(id string) error {
	if _, ok := s.items[id]; !ok {
		return errs.NotFound("item", id)
	}
	delete(s.items, id)
	return nil
}

func (s *Store) ListAvailableItems(_ context.Context, f item.Filter) ([]item.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listAvailableItemsLocked(f)
}

func (v *txView) ListAvailableItems(_ context.Context, f item.Filter) ([]item.Item, error) {
	return v.s.listAvailableItemsLocked(f)
}

func (s *Store) listAvailableItemsLocked(f item.Filter) ([]item.Item, error) {
	var result []item.Item
	for _, it := range s.items {
		if it.Status != item.StatusAvailable {
			continue
		}
		if !matchesFilter(it, f) {
			continue
		}
		result = append(result, cloneItem(it))
	}
	sortItemsNewestFirst(result)
	return result, nil
}

func matchesFilter(it item.Item, f item.Filter) bool {
	if f.Category != "" && it.Category != f.Category {
		return false
	}
	if f.Size != "" && it.Size != f.Size {
		return false
	}
	if f.Condition != "" && it.Condition != f.Condition {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if strings.Contains(strings.ToLower(it.Title), needle) {
			return true
		}
		if strings.Contains(strings.ToLower(it.Description), needle) {
			return true
		}
		for _, tag := range it.Tags {
			if strings.Contains(strings.ToLower(tag), needle) {
				return true
			}
		}
		return false
	}
	return true
}

func sortItemsNewestFirst(items []item.Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

func (s *Store) ListItemsByOwner(_ context.Context, ownerID string) ([]item.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listItemsByOwnerLocked(ownerID)
}

func (v *txView) ListItemsByOwner(_ context.Context, ownerID string) ([]item.Item, error) {
	return v.s.listItemsByOwnerLocked(ownerID)
}

func (s *Store) listItemsByOwnerLocked(ownerID string) ([]item.Item, error) {
	var result []item.Item
	for _, it := range s.items {
		if it.OwnerID == ownerID {
			result = append(result, cloneItem(it))
		}
	}
	sortItemsNewestFirst(result)
	return result, nil
}

func (s *Store) SetItemStatus(_ context.Context, id string, to item.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setItemStatusLocked(id, to)
}

func (v *txView) SetItemStatus(_ context.Context, id string, to item.Status) error {
	return v.s.setItemStatusLocked(id, to)
}

func (s *Store) setItemStatusLocked(id string, to item.Status) error {
	it, ok := s.items[id]
	if !ok {
		return errs.NotFound("item", id)
	}
	it.Status = to
	it.UpdatedAt = time.Now().UTC()
	s.items[id] = it
	return nil
}

func (s *Store) SetItemStatusFrom(_ context.Context, id string, from, to item.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setItemStatusFromLocked(id, from, to)
}

func (v *txView) SetItemStatusFrom(_ context.Context, id string, from, to item.Status) error {
	return v.s.setItemStatusFromLocked(id, from, to)
}

func (s *Store) setItemStatusFromLocked(id string, from, to item.Status) error {
	it, ok := s.items[id]
	if !ok {
		return errs.NotFound("item", id)
	}
	if it.Status != from {
		return fmt.Errorf("item %s is %s, expected %s: %w", id, it.Status, from, errs.ErrConflict)
	}
	it.Status = to
	it.UpdatedAt = time.Now().UTC()
	s.items[id] = it
	return nil
}

// SwapStore implementation ----------------------------------------------------

func (s *Store) CreateSwap(_ context.Context, sw swap.Swap) (swap.Swap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createSwapLocked(sw)
}

func (v *txView) CreateSwap(_ context.Context, sw swap.Swap) (swap.Swap, error) {
	return v.s.createSwapLocked(sw)
}

func (s *Store) createSwapLocked(sw swap.Swap) (swap.Swap, error) {
	if sw.ID == "" {
		sw.ID = s.nextIDLocked()
	} else if _, exists := s.swaps[sw.ID]; exists {
		return swap.Swap{}, fmt.Errorf("swap %s: %w", sw.ID, errs.ErrConflict)
	}
	now := time.Now().UTC()
	sw.CreatedAt = now
	sw.UpdatedAt = now
	if sw.Status == "" {
		sw.Status = swap.StatusPending
	}
	sw.Version = 1
	s.swaps[sw.ID] = sw
	return sw, nil
}

func (s *Store) GetSwap(_ context.Context, id string) (swap.Swap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSwapLocked(id)
}

func (v *txView) GetSwap(_ context.Context, id string) (swap.Swap, error) {
	return v.s.getSwapLocked(id)
}

func (s *Store) getSwapLocked(id string) (swap.Swap, error) {
	sw, ok := s.swaps[id]
	if !ok {
		return swap.Swap{}, errs.NotFound("swap", id)
	}
	return sw, nil
}

func (s *Store) UpdateSwapStatus(_ context.Context, id string, to swap.Status, expectVersion int64) (swap.Swap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateSwapStatusLocked(id, to, expectVersion)
}

func (v *txView) UpdateSwapStatus(_ context.Context, id string, to swap.Status, expectVersion int64) (swap.Swap, error) {
	return v.s.updateSwapStatusLocked(id, to, expectVersion)
}

func (s *Store) updateSwapStatusLocked(id string, to swap.Status, expectVersion int64) (swap.Swap, error) {
	sw, ok := s.swaps[id]
	if !ok {
		return swap.Swap{}, errs.NotFound("swap", id)
	}
	if sw.Version != expectVersion {
		return swap.Swap{}, fmt.Errorf("swap %s version %d, expected %d: %w", id, sw.Version, expectVersion, errs.ErrConflict)
	}
	sw.Status = to
	sw.Version++
	sw.UpdatedAt = time.Now().UTC()
	s.swaps[id] = sw
	return sw, nil
}

func (s *Store) FindPendingSwapForPair(_ context.Context, itemA, itemB string) (swap.Swap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findPendingSwapForPairLocked(itemA, itemB)
}

func (v *txView) FindPendingSwapForPair(_ context.Context, itemA, itemB string) (swap.Swap, error) {
	return v.s.findPendingSwapForPairLocked(itemA, itemB)
}

func (s *Store) findPendingSwapForPairLocked(itemA, itemB string) (swap.Swap, error) {
	for _, sw := range s.swaps {
		if sw.Status != swap.StatusPending {
			continue
		}
		forward := sw.InitiatorItemID == itemA && sw.ReceiverItemID == itemB
		reversed := sw.InitiatorItemID == itemB && sw.ReceiverItemID == itemA
		if forward || reversed {
			return sw, nil
		}
	}
	return swap.Swap{}, fmt.Errorf("pending swap for items %s/%s: %w", itemA, itemB, errs.ErrNotFound)
}

func (s *Store) ListSwapsForUser(_ context.Context, userID string) ([]swap.Swap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listSwapsForUserLocked(userID)
}

func (v *txView) ListSwapsForUser(_ context.Context, userID string) ([]swap.Swap, error) {
	return v.s.listSwapsForUserLocked(userID)
}

func (s *Store) listSwapsForUserLocked(userID string) ([]swap.Swap, error) {
	var result []swap.Swap
	for _, sw := range s.swaps {
		if sw.InitiatorID == userID || sw.ReceiverID == userID {
			result = append(result, sw)
		}
	}
	sortSwapsNewestFirst(result)
	return result, nil
}

func (s *Store) ListPendingSwapsForReceiver(_ context.Context, userID string) ([]swap.Swap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPendingSwapsForReceiverLocked(userID)
}

func (v *txView) ListPendingSwapsForReceiver(_ context.Context, userID string) ([]swap.Swap, error) {
	return v.s.listPendingSwapsForReceiverLocked(userID)
}

func (s *Store) listPendingSwapsForReceiverLocked(userID string) ([]swap.Swap, error) {
	var result []swap.Swap
	for _, sw := range s.swaps {
		if sw.ReceiverID == userID && sw.Status == swap.StatusPending {
			result = append(result, sw)
		}
	}
	sortSwapsNewestFirst(result)
	return result, nil
}

func sortSwapsNewestFirst(swaps []swap.Swap) {
	sort.Slice(swaps, func(i, j int) bool {
		if swaps[i].CreatedAt.Equal(swaps[j].CreatedAt) {
			return swaps[i].ID > swaps[j].ID
		}
		return swaps[i].CreatedAt.After(swaps[j].CreatedAt)
	})
}

// RedemptionStore implementation ----------------------------------------------

func (s *Store) CreateRedemption(_ context.Context, r redemption.Redemption) (redemption.Redemption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createRedemptionLocked(r)
}

func (v *txView) CreateRedemption(_ context.Context, r redemption.Redemption) (redemption.Redemption, error) {
	return v.s.createRedemptionLocked(r)
}

func (s *Store) createRedemptionLocked(r redemption.Redemption) (redemption.Redemption, error) {
	if r.ID == "" {
		r.ID = s.nextIDLocked()
	} else if _, exists := s.redemptions[r.ID]; exists {
		return redemption.Redemption{}, fmt.Errorf("redemption %s: %w", r.ID, errs.ErrConflict)
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	if r.Status == "" {
		r.Status = redemption.StatusCompleted
	}
	s.redemptions[r.ID] = r
	return r, nil
}

func (s *Store) GetRedemption(_ context.Context, id string) (redemption.Redemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getRedemptionLocked(id)
}

func (v *txView) GetRedemption(_ context.Context, id string) (redemption.Redemption, error) {
	return v.s.getRedemptionLocked(id)
}

func (s *Store) getRedemptionLocked(id string) (redemption.Redemption, error) {
	r, ok := s.redemptions[id]
	if !ok {
		return redemption.Redemption{}, errs.NotFound("redemption", id)
	}
	return r, nil
}

func (s *Store) ListRedemptionsForUser(_ context.Context, userID string) ([]redemption.Redemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listRedemptionsForUserLocked(userID)
}

func (v *txView) ListRedemptionsForUser(_ context.Context, userID string) ([]redemption.Redemption, error) {
	return v.s.listRedemptionsForUserLocked(userID)
}

func (s *Store) listRedemptionsForUserLocked(userID string) ([]redemption.Redemption, error) {
	var result []redemption.Redemption
	for _, r := range s.redemptions {
		if r.UserID == userID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// RatingStore implementation ---------------------------------------------------

func ratingKey(r rating.Rating) string {
	return r.RaterID + "|" + r.RatedUserID + "|" + string(r.TransactionType) + "|" + r.TransactionID
}

func (s *Store) CreateRating(_ context.Context, r rating.Rating) (rating.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createRatingLocked(r)
}

func (v *txView) CreateRating(_ context.Context, r rating.Rating) (rating.Rating, error) {
	return v.s.createRatingLocked(r)
}

func (s *Store) createRatingLocked(r rating.Rating) (rating.Rating, error) {
	if r.Linked() {
		if _, exists := s.ratingKeys[ratingKey(r)]; exists {
			return rating.Rating{}, fmt.Errorf("rating for %s %s: %w", r.TransactionType, r.TransactionID, errs.ErrDuplicateRating)
		}
	}
	if r.ID == "" {
		r.ID = s.nextIDLocked()
	} else if _, exists := s.ratings[r.ID]; exists {
		return rating.Rating{}, fmt.Errorf("rating %s: %w", r.ID, errs.ErrConflict)
	}
	r.CreatedAt = time.Now().UTC()
	s.ratings[r.ID] = r
	if r.Linked() {
		s.ratingKeys[ratingKey(r)] = r.ID
	}
	return r, nil
}

func (s *Store) GetRating(_ context.Context, id string) (rating.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getRatingLocked(id)
}

func (v *txView) GetRating(_ context.Context, id string) (rating.Rating, error) {
	return v.s.getRatingLocked(id)
}

func (s *Store) getRatingLocked(id string) (rating.Rating, error) {
	r, ok := s.ratings[id]
	if !ok {
		return rating.Rating{}, errs.NotFound("rating", id)
	}
	return r, nil
}

func (s *Store) ListRatingsGiven(_ context.Context, raterID string) ([]rating.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listRatingsLocked(func(r rating.Rating) bool { return r.RaterID == raterID })
}

func (v *txView) ListRatingsGiven(_ context.Context, raterID string) ([]rating.Rating, error) {
	return v.s.listRatingsLocked(func(r rating.Rating) bool { return r.RaterID == raterID })
}

func (s *Store) ListRatingsReceived(_ context.Context, ratedUserID string) ([]rating.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listRatingsLocked(func(r rating.Rating) bool { return r.RatedUserID == ratedUserID })
}

func (v *txView) ListRatingsReceived(_ context.Context, ratedUserID string) ([]rating.Rating, error) {
	return v.s.listRatingsLocked(func(r rating.Rating) bool { return r.RatedUserID == ratedUserID })
}

func (s *Store) listRatingsLocked(match func(rating.Rating) bool) ([]rating.Rating, error) {
	var result []rating.Rating
	for _, r := range s.ratings {
		if match(r) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) RatingAggregate(_ context.Context, ratedUserID string) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ratingAggregateLocked(ratedUserID)
}

func (v *txView) RatingAggregate(_ context.Context, ratedUserID string) (int64, int64, error) {
	return v.s.ratingAggregateLocked(ratedUserID)
}

func (s *Store) ratingAggregateLocked(ratedUserID string) (int64, int64, error) {
	var count, sum int64
	for _, r := range s.ratings {
		if r.RatedUserID == ratedUserID {
			count++
			sum += int64(r.Score)
		}
	}
	return count, sum, nil
}
