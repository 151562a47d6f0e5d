package models

import (
	"encoding/json"
	"time"
)

// InteractionType is the mechanism that produced an interaction.
type InteractionType string

const (
	InteractionSharedPass        InteractionType = "shared_pass"
	InteractionSamePurchaseGroup InteractionType = "same_purchase_group"
	InteractionSameDayCheckin    InteractionType = "same_day_checkin"
	InteractionFamilyMembership  InteractionType = "family_membership"
	InteractionFrequentGuest     InteractionType = "frequent_guest"
)

// InteractionTypes lists every type in extraction order.
var InteractionTypes = []InteractionType{
	InteractionSharedPass,
	InteractionSamePurchaseGroup,
	InteractionSameDayCheckin,
	InteractionFamilyMembership,
	InteractionFrequentGuest,
}

// Interaction is one dated, typed event between two customers.
// CustomerID1 is always smaller than CustomerID2.
type Interaction struct {
	ID              string          `json:"interaction_id" db:"interaction_id"`
	InteractionDate time.Time       `json:"interaction_date" db:"interaction_date"`
	InteractionType InteractionType `json:"interaction_type" db:"interaction_type"`
	CustomerID1     int64           `json:"customer_id_1" db:"customer_id_1"`
	CustomerID2     int64           `json:"customer_id_2" db:"customer_id_2"`
	Metadata        json.RawMessage `json:"metadata" db:"metadata"`
}

// Date returns the interaction date in YYYY-MM-DD form.
func (i Interaction) Date() string {
	return i.InteractionDate.Format(DateLayout)
}

// Pair returns the canonical customer pair.
func (i Interaction) Pair() Pair {
	return Pair{CustomerID1: i.CustomerID1, CustomerID2: i.CustomerID2}
}

// Pair is an undirected customer pair in canonical order.
type Pair struct {
	CustomerID1 int64
	CustomerID2 int64
}

// NewPair orders a and b so the smaller id comes first.
func NewPair(a, b int64) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{CustomerID1: a, CustomerID2: b}
}

// IsSelf reports whether both sides are the same customer.
func (p Pair) IsSelf() bool {
	return p.CustomerID1 == p.CustomerID2
}

// Less orders pairs by first then second id.
func (p Pair) Less(o Pair) bool {
	if p.CustomerID1 != o.CustomerID1 {
		return p.CustomerID1 < o.CustomerID1
	}
	return p.CustomerID2 < o.CustomerID2
}
