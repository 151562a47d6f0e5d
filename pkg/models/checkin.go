package models

import (
	"strings"
	"time"
)

// EntryMethod is how a customer was admitted on a check-in.
type EntryMethod string

const (
	EntryMethodEntryPass EntryMethod = "entry_pass"
	EntryMethodGuestPass EntryMethod = "guest_pass"
)

// ParseEntryMethod normalizes upstream codes (ENT, GUE) and spelled-out forms.
// Unknown values are returned lowercased as-is.
func ParseEntryMethod(raw string) EntryMethod {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ent", "entry pass", "entry_pass":
		return EntryMethodEntryPass
	case "gue", "guest", "guest pass", "guest_pass":
		return EntryMethodGuestPass
	default:
		return EntryMethod(strings.ToLower(strings.TrimSpace(raw)))
	}
}

// CheckIn is one append-only admission event.
type CheckIn struct {
	ID          int64     `json:"checkin_id" db:"checkin_id"`
	CustomerID  int64     `json:"customer_id" db:"customer_id"`
	CheckedInAt time.Time `json:"checkin_datetime" db:"checkin_datetime"`
	Location    string    `json:"location_name" db:"location_name"`
	EntryMethod string    `json:"entry_method" db:"entry_method"`
	Description string    `json:"entry_method_description" db:"entry_method_description"`
}

// Method returns the normalized entry method.
func (c CheckIn) Method() EntryMethod {
	return ParseEntryMethod(c.EntryMethod)
}

// Date returns the calendar date of the check-in.
func (c CheckIn) Date() time.Time {
	return DateOf(c.CheckedInAt)
}

// DateOf truncates t to midnight UTC of its calendar day in t's own location.
// Callers move t into the venue timezone first.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"
