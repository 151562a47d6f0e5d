package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Connection summarizes every interaction recorded for one customer pair.
type Connection struct {
	CustomerID1          int64              `json:"customer_id_1" db:"customer_id_1"`
	CustomerID2          int64              `json:"customer_id_2" db:"customer_id_2"`
	InteractionCount     int                `json:"interaction_count" db:"interaction_count"`
	StrengthScore        int                `json:"strength_score" db:"strength_score"`
	FirstInteractionDate time.Time          `json:"first_interaction_date" db:"first_interaction_date"`
	LastInteractionDate  time.Time          `json:"last_interaction_date" db:"last_interaction_date"`
	InteractionTypes     pq.StringArray     `json:"interaction_types" db:"interaction_types"`
	Metadata             ConnectionMetadata `json:"metadata" db:"metadata"`
}

// ConnectionMetadata carries per-type counts and the date range as strings.
type ConnectionMetadata struct {
	TypeCounts map[string]int `json:"type_counts"`
	FirstDate  string         `json:"first_date"`
	LastDate   string         `json:"last_date"`
}

// Scan implements sql.Scanner for the JSONB metadata column.
func (m *ConnectionMetadata) Scan(src any) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("ConnectionMetadata.Scan: expected []byte, got %T", src)
	}
	return json.Unmarshal(b, m)
}

// Value implements driver.Valuer. lib/pq sends []byte as bytea, so the JSON
// goes out as text.
func (m ConnectionMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Other returns the customer on the opposite side of id.
func (c Connection) Other(id int64) int64 {
	if c.CustomerID1 == id {
		return c.CustomerID2
	}
	return c.CustomerID1
}
