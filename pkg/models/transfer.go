package models

import "time"

// TransferType distinguishes shared entry passes from guest passes.
type TransferType string

const (
	TransferTypeEntryPass TransferType = "entry_pass"
	TransferTypeGuestPass TransferType = "guest_pass"
)

// MatchMethod records which strategy resolved a purchaser.
type MatchMethod string

const (
	MatchMethodTransactionLink MatchMethod = "transaction_link"
	MatchMethodNameMatch       MatchMethod = "name_match"
	MatchMethodNoMatch         MatchMethod = "no_match"
)

// Transfer is a pass used by one customer that was bought by someone named in the
// check-in description.
type Transfer struct {
	CheckInID           int64        `json:"checkin_id" db:"checkin_id"`
	CheckedInAt         time.Time    `json:"checkin_datetime" db:"checkin_datetime"`
	TransferType        TransferType `json:"transfer_type" db:"transfer_type"`
	PassType            string       `json:"pass_type" db:"pass_type"`
	PurchaserName       string       `json:"purchaser_name" db:"purchaser_name"`
	UserCustomerID      int64        `json:"user_customer_id" db:"user_customer_id"`
	RemainingCount      *int         `json:"remaining_count,omitempty" db:"remaining_count"`
	IsPunchPass         bool         `json:"is_punch_pass" db:"is_punch_pass"`
	IsYouthPass         bool         `json:"is_youth_pass" db:"is_youth_pass"`
	Location            string       `json:"location_name" db:"location_name"`
	PurchaserCustomerID *int64       `json:"purchaser_customer_id,omitempty" db:"purchaser_customer_id"`
	MatchMethod         MatchMethod  `json:"match_method" db:"match_method"`
	MatchConfidence     int          `json:"match_confidence" db:"match_confidence"`
}

// Date returns the calendar date the pass was used.
func (t Transfer) Date() time.Time {
	return DateOf(t.CheckedInAt)
}

// IsResolved reports whether the purchaser was matched to a customer.
func (t Transfer) IsResolved() bool {
	return t.PurchaserCustomerID != nil
}

// Resolution is the purchaser identity attached to a transfer.
type Resolution struct {
	CustomerID *int64      `json:"customer_id,omitempty"`
	Method     MatchMethod `json:"match_method"`
	Confidence int         `json:"match_confidence"`
}

// NoMatch is the resolution for an unresolvable purchaser.
func NoMatch() Resolution {
	return Resolution{Method: MatchMethodNoMatch}
}

// Resolution returns the identity currently attached to the transfer.
func (t Transfer) Resolution() Resolution {
	return Resolution{CustomerID: t.PurchaserCustomerID, Method: t.MatchMethod, Confidence: t.MatchConfidence}
}

// WithResolution returns a copy of the transfer carrying r.
func (t Transfer) WithResolution(r Resolution) Transfer {
	t.PurchaserCustomerID = r.CustomerID
	t.MatchMethod = r.Method
	t.MatchConfidence = r.Confidence
	return t
}

// Transaction is a row from the payment log.
type Transaction struct {
	ID          int64     `json:"transaction_id" db:"transaction_id"`
	CustomerID  *int64    `json:"customer_id,omitempty" db:"customer_id"`
	Date        time.Time `json:"date" db:"date"`
	Description string    `json:"description" db:"description"`
	Amount      float64   `json:"amount" db:"amount"`
}
