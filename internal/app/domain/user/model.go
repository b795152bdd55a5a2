// Package user holds the account model.
package user

import "time"

// Role separates ordinary members from platform admins.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// SignupGrant is the points balance credited to every new account.
const SignupGrant int64 = 100

// User is a registered account. Points is the spendable balance and is
// never negative; RatingAverage and RatingCount are the denormalized
// reputation aggregate maintained by the ratings service.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	Avatar        string
	Bio           string
	City          string
	Country       string
	Points        int64
	Role          Role
	Active        bool
	RatingAverage float64
	RatingCount   int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Profile is the externally visible view of a user.
type Profile struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Avatar        string    `json:"avatar,omitempty"`
	Bio           string    `json:"bio,omitempty"`
	City          string    `json:"city,omitempty"`
	Country       string    `json:"country,omitempty"`
	Points        int64     `json:"points"`
	Role          Role      `json:"role"`
	RatingAverage float64   `json:"rating_average"`
	RatingCount   int64     `json:"rating_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Public strips the credential fields.
func (u User) Public() Profile {
	return Profile{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Avatar:        u.Avatar,
		Bio:           u.Bio,
		City:          u.City,
		Country:       u.Country,
		Points:        u.Points,
		Role:          u.Role,
		RatingAverage: u.RatingAverage,
		RatingCount:   u.RatingCount,
		CreatedAt:     u.CreatedAt,
	}
}
