// Package ratings implements counterparty ratings and the per-user aggregate.
package ratings

import (
	"context"
	"fmt"

	"github.com/rewear/service_layer/internal/app/domain/errs"
	"github.com/rewear/service_layer/internal/app/domain/rating"
	"github.com/rewear/service_layer/internal/app/domain/user"
	"github.com/rewear/service_layer/internal/app/metrics"
	"github.com/rewear/service_layer/internal/app/storage"
	"github.com/rewear/service_layer/pkg/logger"
)

// Service records ratings and keeps the rated user's aggregate consistent.
type Service struct {
	store storage.Store
	log   *logger.Logger
}

// New constructs a rating service.
func New(store storage.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("ratings")
	}
	return &Service{store: store, log: log}
}

// RateParams describe one rating.
type RateParams struct {
	RatedUserID     string
	Score           int
	Comment         string
	TransactionType rating.TransactionType
	TransactionID   string
}

// Aggregate is the rated user's recomputed rating summary.
type Aggregate struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

// Rate inserts the rating and recomputes the rated user's aggregate inside
// one atomic unit, so concurrent raters never fold a stale count into the
// average.
func (s *Service) Rate(ctx context.Context, raterID string, p RateParams) (rating.Rating, Aggregate, error) {
	if p.Score < rating.MinScore || p.Score > rating.MaxScore {
		return rating.Rating{}, Aggregate{}, fmt.Errorf("score %d outside [%d,%d]: %w",
			p.Score, rating.MinScore, rating.MaxScore, errs.ErrInvalidRating)
	}
	if raterID == p.RatedUserID {
		return rating.Rating{}, Aggregate{}, errs.ErrSelfRating
	}
	if (p.TransactionType == "") != (p.TransactionID == "") {
		return rating.Rating{}, Aggregate{}, fmt.Errorf("transaction type and id must be supplied together: %w", errs.ErrInvalidState)
	}
	if p.TransactionType != "" && !p.TransactionType.Valid() {
		return rating.Rating{}, Aggregate{}, fmt.Errorf("unknown transaction type %q: %w", p.TransactionType, errs.ErrInvalidState)
	}

	var (
		created rating.Rating
		agg     Aggregate
	)
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		// Claim the rated user's row so concurrent raters recompute in
		// sequence and each count sees every earlier rating.
		if _, err := tx.GetUserForUpdate(ctx, p.RatedUserID); err != nil {
			return err
		}

		var err error
		created, err = tx.CreateRating(ctx, rating.Rating{
			RaterID:         raterID,
			RatedUserID:     p.RatedUserID,
			Score:           p.Score,
			Comment:         p.Comment,
			TransactionType: p.TransactionType,
			TransactionID:   p.TransactionID,
		})
		if err != nil {
			return err
		}

		count, sum, err := tx.RatingAggregate(ctx, p.RatedUserID)
		if err != nil {
			return err
		}
		agg = Aggregate{Count: count}
		if count > 0 {
			agg.Average = float64(sum) / float64(count)
		}
		return tx.SetUserRating(ctx, p.RatedUserID, agg.Average, agg.Count)
	})
	if err != nil {
		return rating.Rating{}, Aggregate{}, err
	}

	metrics.RecordRating(p.Score)
	s.log.WithField("rating_id", created.ID).
		WithField("rater_id", raterID).
		WithField("rated_user_id", p.RatedUserID).
		WithField("score", p.Score).
		Info("rating recorded")
	return created, agg, nil
}

// Get returns a rating to its rater, the rated user or an administrator.
func (s *Service) Get(ctx context.Context, actingUser string, actingRole user.Role, id string) (rating.Rating, error) {
	r, err := s.store.GetRating(ctx, id)
	if err != nil {
		return rating.Rating{}, err
	}
	if r.RaterID != actingUser && r.RatedUserID != actingUser && actingRole != user.RoleAdmin {
		return rating.Rating{}, errs.Forbidden("rating " + id + " does not involve caller")
	}
	return r, nil
}

// ListGiven returns ratings the user has written, newest first.
func (s *Service) ListGiven(ctx context.Context, raterID string) ([]rating.Rating, error) {
	return s.store.ListRatingsGiven(ctx, raterID)
}

// ListReceived returns ratings the user has received, newest first.
func (s *Service) ListReceived(ctx context.Context, ratedUserID string) ([]rating.Rating, error) {
	return s.store.ListRatingsReceived(ctx, ratedUserID)
}
