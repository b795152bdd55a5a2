// Package item holds the clothing listing model.
package item

import "time"

// Status tracks where a listing sits in its lifecycle. Only available
// items can be offered, requested, or redeemed; pending items are claimed
// by an accepted swap.
type Status string

const (
	StatusAvailable Status = "available"
	StatusPending   Status = "pending"
	StatusSwapped   Status = "swapped"
	StatusRedeemed  Status = "redeemed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusPending, StatusSwapped, StatusRedeemed:
		return true
	}
	return false
}

// Category classifies a listing.
type Category string

const (
	CategoryTops        Category = "tops"
	CategoryBottoms     Category = "bottoms"
	CategoryDresses     Category = "dresses"
	CategoryOuterwear   Category = "outerwear"
	CategoryShoes       Category = "shoes"
	CategoryAccessories Category = "accessories"
	CategoryActivewear  Category = "activewear"
	CategoryFormal      Category = "formal"
	CategorySleepwear   Category = "sleepwear"
	CategoryOther       Category = "other"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryTops, CategoryBottoms, CategoryDresses, CategoryOuterwear,
		CategoryShoes, CategoryAccessories, CategoryActivewear,
		CategoryFormal, CategorySleepwear, CategoryOther:
		return true
	}
	return false
}

// Condition grades the wear of a listing.
type Condition string

const (
	ConditionNew      Condition = "new"
	ConditionLikeNew  Condition = "like_new"
	ConditionGood     Condition = "good"
	ConditionWellWorn Condition = "well_worn"
)

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionWellWorn:
		return true
	}
	return false
}

// Item is one clothing listing. PointsValue is the redemption price in
// points.
type Item struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Category    Category
	Condition   Condition
	Size        string
	Tags        []string
	ImageURLs   []string
	Status      Status
	PointsValue int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Filter narrows a browse query. Zero fields match everything; Search
// matches title, description, or tags case-insensitively.
type Filter struct {
	Category  Category
	Size      string
	Condition Condition
	Search    string
}
