// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/rewear/service_layer/internal/app/domain/errs"
	"github.com/rewear/service_layer/internal/app/domain/item"
	"github.com/rewear/service_layer/internal/app/domain/rating"
	"github.com/rewear/service_layer/internal/app/domain/redemption"
	"github.com/rewear/service_layer/internal/app/domain/swap"
	"github.com/rewear/service_layer/internal/app/domain/user"
	"github.com/rewear/service_layer/internal/app/storage"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements storage.Store backed by PostgreSQL. Atomic units map to
// database transactions; guarded updates rely on conditional UPDATE row counts
// so concurrent writers cannot lose updates.
type Store struct {
	db *sql.DB
	q  dbtx
}

var _ storage.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// InTx runs fn inside a database transaction and rolls back on failure.
func (s *Store) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	view := &Store{db: s.db, q: sqlTx}
	if err := fn(view); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const (
	constraintUsersEmail   = "users_email_key"
	constraintRatingTriple = "ratings_transaction_unique"
	constraintPendingPair  = "swaps_pending_pair_unique"
)

func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		switch pqErr.Constraint {
		case constraintUsersEmail:
			return errs.ErrDuplicateEmail
		case constraintRatingTriple:
			return errs.ErrDuplicateRating
		case constraintPendingPair:
			return errs.ErrConflict
		}
		return errs.ErrConflict
	}
	return nil
}

// --- UserStore ---------------------------------------------------------------

const userColumns = `id, email, password_hash, first_name, last_name, avatar, bio,
	city, country, points, role, active, rating_average, rating_count, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Avatar, &u.Bio, &u.City, &u.Country, &u.Points, &u.Role, &u.Active,
		&u.RatingAverage, &u.RatingCount, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = user.RoleUser
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, avatar, bio,
			city, country, points, role, active, rating_average, rating_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Avatar, u.Bio,
		u.City, u.Country, u.Points, u.Role, u.Active, u.RatingAverage, u.RatingCount,
		u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return user.User{}, fmt.Errorf("user %s: %w", u.Email, mapped)
		}
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, errs.NotFound("user", id)
	}
	return u, err
}

func (s *Store) GetUserForUpdate(ctx context.Context, id string) (user.User, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, errs.NotFound("user", id)
	}
	return u, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, errs.NotFound("user", email)
	}
	return u, err
}

func (s *Store) AdjustUserPoints(ctx context.Context, id string, delta int64) (int64, error) {
	row := s.q.QueryRowContext(ctx, `
		UPDATE users
		SET points = points + $2, updated_at = $3
		WHERE id = $1 AND points + $2 >= 0
		RETURNING points
	`, id, delta, time.Now().UTC())

	var balance int64
	if err := row.Scan(&balance); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		// Distinguish a missing user from a guard failure.
		if _, getErr := s.GetUser(ctx, id); getErr != nil {
			return 0, getErr
		}
		return 0, fmt.Errorf("debit %d from user %s: %w", -delta, id, errs.ErrInsufficientFunds)
	}
	return balance, nil
}

func (s *Store) SetUserRating(ctx context.Context, id string, average float64, count int64) error {
	result, err := s.q.ExecContext(ctx, `
		UPDATE users SET rating_average = $2, rating_count = $3, updated_at = $4 WHERE id = $1
	`, id, average, count, time.Now().UTC())
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errs.NotFound("user", id)
	}
	return nil
}

// --- ItemStore ---------------------------------------------------------------

const itemColumns = `id, owner_id, title, description, category, condition, size,
	tags, image_urls, status, points_value, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (item.Item, error) {
	var it item.Item
	var tags, urls pq.StringArray
	err := row.Scan(&it.ID, &it.OwnerID, &it.Title, &it.Description, &it.Category,
		&it.Condition, &it.Size, &tags, &urls, &it.Status, &it.PointsValue,
		&it.CreatedAt, &it.UpdatedAt)
	it.Tags = []string(tags)
	it.ImageURLs = []string(urls)
	return it, err
}

func (s *Store) CreateItem(ctx context.Context, it item.Item) (item.Item, error) {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	it.CreatedAt = now
	it.UpdatedAt = now
	if it.Status == "" {
		it.Status = item.StatusAvailable
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO items (id, owner_id, title, description, category, condition, size,
			tags, image_urls, status, points_value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, it.ID, it.OwnerID, it.Title, it.Description, it.Category, it.Condition, it.Size,
		pq.Array(it.Tags), pq.Array(it.ImageURLs), it.Status, it.PointsValue,
		it.CreatedAt, it.UpdatedAt)
	if err != nil {
		return item.Item{}, err
	}
	return it, nil
}

func (s *Store) GetItem(ctx context.Context, id string) (item.Item, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return item.Item{}, errs.NotFound("item", id)
	}
	return it, err
}

func (s *Store) UpdateItem(ctx context.Context, it item.Item) (item.Item, error) {
	it.UpdatedAt = time.Now().UTC()
	result, err := s.q.ExecContext(ctx, `
		UPDATE items
		SET title = $2, description = $3, category = $4, condition = $5, size = $6,
			tags = $7, image_urls = $8, points_value = $9, updated_at = $10
		WHERE id = $1
	`, it.ID, it.Title, it.Description, it.Category, it.Condition, it.Size,
		pq.Array(it.Tags), pq.Array(it.ImageURLs), it.PointsValue, it.UpdatedAt)
	if err != nil {
		return item.Item{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return item.Item{}, errs.NotFound("item", it.ID)
	}
	return s.GetItem(ctx, it.ID)
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errs.NotFound("item", id)
	}
	return nil
}

func (s *Store) ListAvailableItems(ctx context.Context, f item.Filter) ([]item.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE status = 'available'`
	var args []any

	addArg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Category != "" {
		query += ` AND category = ` + addArg(f.Category)
	}
	if f.Size != "" {
		query += ` AND size = ` + addArg(f.Size)
	}
	if f.Condition != "" {
		query += ` AND condition = ` + addArg(f.Condition)
	}
	if f.Search != "" {
		pattern := addArg("%" + f.Search + "%")
		query += ` AND (title ILIKE ` + pattern +
			` OR description ILIKE ` + pattern +
			` OR EXISTS (SELECT 1 FROM unnest(tags) AS t WHERE t ILIKE ` + pattern + `))`
	}
	query += ` ORDER BY created_at DESC`

	return s.queryItems(ctx, query, args...)
}

func (s *Store) ListItemsByOwner(ctx context.Context, ownerID string) ([]item.Item, error) {
	return s.queryItems(ctx, `
		SELECT `+itemColumns+` FROM items WHERE owner_id = $1 ORDER BY created_at DESC
	`, ownerID)
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]item.Item, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []item.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, it)
	}
	return result, rows.Err()
}

func (s *Store) SetItemStatus(ctx context.Context, id string, to item.Status) error {
	result, err := s.q.ExecContext(ctx, `
		UPDATE items SET status = $2, updated_at = $3 WHERE id = $1
	`, id, to, time.Now().UTC())
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errs.NotFound("item", id)
	}
	return nil
}

func (s *Store) SetItemStatusFrom(ctx context.Context, id string, from, to item.Status) error {
	result, err := s.q.ExecContext(ctx, `
		UPDATE items SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2
	`, id, from, to, time.Now().UTC())
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		if _, getErr := s.GetItem(ctx, id); getErr != nil {
			return getErr
		}
		return fmt.Errorf("item %s not %s: %w", id, from, errs.ErrConflict)
	}
	return nil
}

// --- SwapStore ---------------------------------------------------------------

const swapColumns = `id, initiator_id, receiver_id, initiator_item_id, receiver_item_id,
	status, message, version, created_at, updated_at`

func scanSwap(row interface{ Scan(...any) error }) (swap.Swap, error) {
	var sw swap.Swap
	err := row.Scan(&sw.ID, &sw.InitiatorID, &sw.ReceiverID, &sw.InitiatorItemID,
		&sw.ReceiverItemID, &sw.Status, &sw.Message, &sw.Version, &sw.CreatedAt, &sw.UpdatedAt)
	return sw, err
}

func (s *Store) CreateSwap(ctx context.Context, sw swap.Swap) (swap.Swap, error) {
	if sw.ID == "" {
		sw.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sw.CreatedAt = now
	sw.UpdatedAt = now
	if sw.Status == "" {
		sw.Status = swap.StatusPending
	}
	sw.Version = 1

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO swaps (id, initiator_id, receiver_id, initiator_item_id, receiver_item_id,
			status, message, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, sw.ID, sw.InitiatorID, sw.ReceiverID, sw.InitiatorItemID, sw.ReceiverItemID,
		sw.Status, sw.Message, sw.Version, sw.CreatedAt, sw.UpdatedAt)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return swap.Swap{}, fmt.Errorf("pending swap for items %s/%s: %w",
				sw.InitiatorItemID, sw.ReceiverItemID, mapped)
		}
		return swap.Swap{}, err
	}
	return sw, nil
}

func (s *Store) GetSwap(ctx context.Context, id string) (swap.Swap, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+swapColumns+` FROM swaps WHERE id = $1`, id)
	sw, err := scanSwap(row)
	if errors.Is(err, sql.ErrNoRows) {
		return swap.Swap{}, errs.NotFound("swap", id)
	}
	return sw, err
}

func (s *Store) UpdateSwapStatus(ctx context.Context, id string, to swap.Status, expectVersion int64) (swap.Swap, error) {
	row := s.q.QueryRowContext(ctx, `
		UPDATE swaps
		SET status = $2, version = version + 1, updated_at = $4
		WHERE id = $1 AND version = $3
		RETURNING `+swapColumns+`
	`, id, to, expectVersion, time.Now().UTC())

	sw, err := scanSwap(row)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.GetSwap(ctx, id); getErr != nil {
			return swap.Swap{}, getErr
		}
		return swap.Swap{}, fmt.Errorf("swap %s modified concurrently: %w", id, errs.ErrConflict)
	}
	return sw, err
}

func (s *Store) FindPendingSwapForPair(ctx context.Context, itemA, itemB string) (swap.Swap, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+swapColumns+` FROM swaps
		WHERE status = 'pending'
		AND ((initiator_item_id = $1 AND receiver_item_id = $2)
			OR (initiator_item_id = $2 AND receiver_item_id = $1))
		LIMIT 1
	`, itemA, itemB)

	sw, err := scanSwap(row)
	if errors.Is(err, sql.ErrNoRows) {
		return swap.Swap{}, fmt.Errorf("pending swap for items %s/%s: %w", itemA, itemB, errs.ErrNotFound)
	}
	return sw, err
}

func (s *Store) ListSwapsForUser(ctx context.Context, userID string) ([]swap.Swap, error) {
	return s.querySwaps(ctx, `
		SELECT `+swapColumns+` FROM swaps
		WHERE initiator_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC
	`, userID)
}

func (s *Store) ListPendingSwapsForReceiver(ctx context.Context, userID string) ([]swap.Swap, error) {
	return s.querySwaps(ctx, `
		SELECT `+swapColumns+` FROM swaps
		WHERE receiver_id = $1 AND status = 'pending'
		ORDER BY created_at DESC
	`, userID)
}

func (s *Store) querySwaps(ctx context.Context, query string, args ...any) ([]swap.Swap, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []swap.Swap
	for rows.Next() {
		sw, err := scanSwap(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sw)
	}
	return result, rows.Err()
}

// --- RedemptionStore ---------------------------------------------------------

const redemptionColumns = `id, user_id, item_id, points_used, status, created_at, updated_at`

func scanRedemption(row interface{ Scan(...any) error }) (redemption.Redemption, error) {
	var r redemption.Redemption
	err := row.Scan(&r.ID, &r.UserID, &r.ItemID, &r.PointsUsed, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (s *Store) CreateRedemption(ctx context.Context, r redemption.Redemption) (redemption.Redemption, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	if r.Status == "" {
		r.Status = redemption.StatusCompleted
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO redemptions (id, user_id, item_id, points_used, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.ID, r.UserID, r.ItemID, r.PointsUsed, r.Status, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return redemption.Redemption{}, err
	}
	return r, nil
}

func (s *Store) GetRedemption(ctx context.Context, id string) (redemption.Redemption, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+redemptionColumns+` FROM redemptions WHERE id = $1`, id)
	r, err := scanRedemption(row)
	if errors.Is(err, sql.ErrNoRows) {
		return redemption.Redemption{}, errs.NotFound("redemption", id)
	}
	return r, err
}

func (s *Store) ListRedemptionsForUser(ctx context.Context, userID string) ([]redemption.Redemption, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+redemptionColumns+` FROM redemptions WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []redemption.Redemption
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// --- RatingStore -------------------------------------------------------------

const ratingColumns = `id, rater_id, rated_user_id, score, comment, transaction_type, transaction_id, created_at`

func scanRating(row interface{ Scan(...any) error }) (rating.Rating, error) {
	var r rating.Rating
	var txType, txID sql.NullString
	err := row.Scan(&r.ID, &r.RaterID, &r.RatedUserID, &r.Score, &r.Comment, &txType, &txID, &r.CreatedAt)
	r.TransactionType = rating.TransactionType(txType.String)
	r.TransactionID = txID.String
	return r, err
}

func (s *Store) CreateRating(ctx context.Context, r rating.Rating) (rating.Rating, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = time.Now().UTC()

	var txType, txID any
	if r.Linked() {
		txType = string(r.TransactionType)
		txID = r.TransactionID
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO ratings (id, rater_id, rated_user_id, score, comment, transaction_type, transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.ID, r.RaterID, r.RatedUserID, r.Score, r.Comment, txType, txID, r.CreatedAt)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return rating.Rating{}, fmt.Errorf("rating for %s %s: %w", r.TransactionType, r.TransactionID, mapped)
		}
		return rating.Rating{}, err
	}
	return r, nil
}

func (s *Store) GetRating(ctx context.Context, id string) (rating.Rating, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE id = $1`, id)
	r, err := scanRating(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rating.Rating{}, errs.NotFound("rating", id)
	}
	return r, err
}

func (s *Store) ListRatingsGiven(ctx context.Context, raterID string) ([]rating.Rating, error) {
	return s.queryRatings(ctx, `
		SELECT `+ratingColumns+` FROM ratings WHERE rater_id = $1 ORDER BY created_at DESC
	`, raterID)
}

func (s *Store) ListRatingsReceived(ctx context.Context, ratedUserID string) ([]rating.Rating, error) {
	return s.queryRatings(ctx, `
		SELECT `+ratingColumns+` FROM ratings WHERE rated_user_id = $1 ORDER BY created_at DESC
	`, ratedUserID)
}

func (s *Store) queryRatings(ctx context.Context, query string, args ...any) ([]rating.Rating, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []rating.Rating
	for rows.Next() {
		r, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *Store) RatingAggregate(ctx context.Context, ratedUserID string) (int64, int64, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(score), 0) FROM ratings WHERE rated_user_id = $1
	`, ratedUserID)

	var count, sum int64
	if err := row.Scan(&count, &sum); err != nil {
		return 0, 0, err
	}
	return count, sum, nil
}
