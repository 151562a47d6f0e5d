package models

import (
	"strings"
	"time"
)

// Customer is an identity from the upstream customer roster. Fern never mutates it.
type Customer struct {
	ID        int64      `json:"customer_id" db:"customer_id"`
	FirstName string     `json:"first_name" db:"first_name"`
	LastName  string     `json:"last_name" db:"last_name"`
	Email     string     `json:"email" db:"email"`
	Phone     string     `json:"phone" db:"phone"`
	Birthdate *time.Time `json:"birthdate,omitempty" db:"birthdate"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// FullName returns "first last" exactly as stored.
func (c Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

// Age returns the whole-year age at now, or false when the birthdate is unknown.
func (c Customer) Age(now time.Time) (int, bool) {
	if c.Birthdate == nil || c.Birthdate.IsZero() {
		return 0, false
	}
	days := now.Sub(*c.Birthdate).Hours() / 24
	return int(days / 365.25), true
}

// IsMinor reports whether the customer is known to be under 18 at now.
func (c Customer) IsMinor(now time.Time) bool {
	age, ok := c.Age(now)
	return ok && age < 18
}

// IsAdult reports whether the customer is known to be 18 or older at now.
func (c Customer) IsAdult(now time.Time) bool {
	age, ok := c.Age(now)
	return ok && age >= 18
}

// CustomerLess orders customers by creation time then id. Ties between candidates
// always resolve to the earliest-created customer.
func CustomerLess(a, b Customer) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// MatchesName reports a case-sensitive exact match on the full name.
func (c Customer) MatchesName(fullName string) bool {
	return c.FullName() == strings.TrimSpace(fullName)
}
