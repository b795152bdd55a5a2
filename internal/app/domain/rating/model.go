// Package rating holds the peer reputation model.
package rating

import "time"

// TransactionType links a rating to the exchange it came from.
type TransactionType string

const (
	TransactionSwap       TransactionType = "swap"
	TransactionRedemption TransactionType = "redemption"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionSwap || t == TransactionRedemption
}

// Score bounds, inclusive.
const (
	MinScore = 1
	MaxScore = 5
)

// Rating is one user scoring another. TransactionType and TransactionID
// are either both set or both empty; when set, at most one rating may
// exist per (rater, rated, transaction).
type Rating struct {
	ID              string
	RaterID         string
	RatedUserID     string
	Score           int
	Comment         string
	TransactionType TransactionType
	TransactionID   string
	CreatedAt       time.Time
}

// Linked reports whether the rating is tied to a transaction.
func (r Rating) Linked() bool {
	return r.TransactionType != "" && r.TransactionID != ""
}
