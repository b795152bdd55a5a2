// Package items implements the item registry: listing creation, lookup,
// filtered browsing and the guarded status mutation surface used by the
// transaction services.
package items

import (
	"context"
	"fmt"
	"strings"

	"github.com/rewear/service_layer/internal/app/domain/errs"
	"github.com/rewear/service_layer/internal/app/domain/item"
	"github.com/rewear/service_layer/internal/app/storage"
	"github.com/rewear/service_layer/pkg/logger"
)

// ListingCache invalidates cached available-item listings. Implemented by the
// redis cache; nil disables caching.
type ListingCache interface {
	GetListing(ctx context.Context, f item.Filter) ([]item.Item, bool)
	PutListing(ctx context.Context, f item.Filter, items []item.Item)
	Invalidate(ctx context.Context)
}

// Service manages item records.
type Service struct {
	store storage.Store
	cache ListingCache
	log   *logger.Logger
}

// New constructs an item registry.
func New(store storage.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("items")
	}
	return &Service{store: store, log: log}
}

// WithCache attaches a listing cache.
func (s *Service) WithCache(cache ListingCache) *Service {
	s.cache = cache
	return s
}

var sizes = map[string]bool{
	"XS": true, "S": true, "M": true, "L": true, "XL": true, "XXL": true,
	"2XL": true, "3XL": true, "4XL": true, "5XL": true, "one size": true,
}

// CreateParams are the owner-supplied listing attributes.
type CreateParams struct {
	Title       string
	Description string
	Category    item.Category
	Condition   item.Condition
	Size        string
	Tags        []string
	ImageURLs   []string
	PointsValue int64
}

func (p CreateParams) validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("title is required: %w", errs.ErrInvalidState)
	}
	if !p.Category.Valid() {
		return fmt.Errorf("unknown category %q: %w", p.Category, errs.ErrInvalidState)
	}
	if !p.Condition.Valid() {
		return fmt.Errorf("unknown condition %q: %w", p.Condition, errs.ErrInvalidState)
	}
	if !sizes[p.Size] {
		return fmt.Errorf("unknown size %q: %w", p.Size, errs.ErrInvalidState)
	}
	if p.PointsValue < 0 {
		return fmt.Errorf("points value must not be negative: %w", errs.ErrInvalidState)
	}
	return nil
}

// Create lists a new item for owner. Items always start available.
func (s *Service) Create(ctx context.Context, ownerID string, p CreateParams) (item.Item, error) {
	if err := p.validate(); err != nil {
		return item.Item{}, err
	}
	if _, err := s.store.GetUser(ctx, ownerID); err != nil {
		return item.Item{}, err
	}

	created, err := s.store.CreateItem(ctx, item.Item{
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(p.Title),
		Description: p.Description,
		Category:    p.Category,
		Condition:   p.Condition,
		Size:        p.Size,
		Tags:        p.Tags,
		ImageURLs:   p.ImageURLs,
		Status:      item.StatusAvailable,
		PointsValue: p.PointsValue,
	})
	if err != nil {
		return item.Item{}, err
	}

	s.invalidate(ctx)
	s.log.WithField("item_id", created.ID).
		WithField("owner_id", ownerID).
		Info("item listed")
	return created, nil
}

// Get returns one item.
func (s *Service) Get(ctx context.Context, id string) (item.Item, error) {
	return s.store.GetItem(ctx, id)
}

// ListAvailable returns available items matching the filter, newest first.
func (s *Service) ListAvailable(ctx context.Context, f item.Filter) ([]item.Item, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetListing(ctx, f); ok {
			return cached, nil
		}
	}
	result, err := s.store.ListAvailableItems(ctx, f)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.PutListing(ctx, f, result)
	}
	return result, nil
}

// ListByUser returns every item listed by a user regardless of status.
func (s *Service) ListByUser(ctx context.Context, ownerID string) ([]item.Item, error) {
	if _, err := s.store.GetUser(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.store.ListItemsByOwner(ctx, ownerID)
}

// AssertOwnedBy fails with errs.ErrForbidden unless userID owns the item.
func (s *Service) AssertOwnedBy(ctx context.Context, id, userID string) (item.Item, error) {
	it, err := s.store.GetItem(ctx, id)
	if err != nil {
		return item.Item{}, err
	}
	if it.OwnerID != userID {
		return item.Item{}, errs.Forbidden("item " + id + " not owned by caller")
	}
	return it, nil
}

// Update applies owner edits. Only the owner may edit, and only while the item
// is still available; once a transaction references it the attributes freeze.
func (s *Service) Update(ctx context.Context, actingUser string, it item.Item) (item.Item, error) {
	current, err := s.AssertOwnedBy(ctx, it.ID, actingUser)
	if err != nil {
		return item.Item{}, err
	}
	if current.Status != item.StatusAvailable {
		return item.Item{}, fmt.Errorf("item %s is %s: %w", it.ID, current.Status, errs.ErrInvalidState)
	}
	updated, err := s.store.UpdateItem(ctx, it)
	if err != nil {
		return item.Item{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// Delete removes a listing. Owner only, available only.
func (s *Service) Delete(ctx context.Context, actingUser, id string) error {
	current, err := s.AssertOwnedBy(ctx, id, actingUser)
	if err != nil {
		return err
	}
	if current.Status != item.StatusAvailable {
		return fmt.Errorf("item %s is %s: %w", id, current.Status, errs.ErrInvalidState)
	}
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.log.WithField("item_id", id).Info("item removed")
	return nil
}

// SetStatus is the status mutation surface reserved for the swap and
// redemption services. The guarded form refuses to move an item that already
// left the expected state.
func (s *Service) SetStatus(ctx context.Context, tx storage.ItemStore, id string, from, to item.Status) error {
	if !to.Valid() {
		return fmt.Errorf("unknown item status %q: %w", to, errs.ErrInvalidState)
	}
	if from == "" {
		return tx.SetItemStatus(ctx, id, to)
	}
	return tx.SetItemStatusFrom(ctx, id, from, to)
}

// InvalidateListings drops any cached listings. Called by the transaction
// services after they flip item status.
func (s *Service) InvalidateListings(ctx context.Context) {
	s.invalidate(ctx)
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}
