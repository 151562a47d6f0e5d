package models

import "time"

// FlagAction is a transition recorded in the flag history.
type FlagAction string

const (
	FlagActionSet   FlagAction = "set"
	FlagActionClear FlagAction = "clear"
)

// CustomerFlag is the current state row for a flagged customer. A row exists
// only while the flag is set.
type CustomerFlag struct {
	CustomerID  int64     `json:"customer_id" db:"customer_id"`
	FlagName    string    `json:"flag_name" db:"flag_name"`
	FlaggedAt   time.Time `json:"flagged_at" db:"flagged_at"`
	CriteriaMet bool      `json:"criteria_met" db:"criteria_met"`
}

// FlagHistoryEntry is one append-only set or clear event.
type FlagHistoryEntry struct {
	ID         string     `json:"entry_id" db:"entry_id"`
	CustomerID int64      `json:"customer_id" db:"customer_id"`
	FlagName   string     `json:"flag_name" db:"flag_name"`
	Action     FlagAction `json:"action" db:"action"`
	Timestamp  time.Time  `json:"timestamp" db:"timestamp"`
}

// FlagChange is a pending transition for one customer and flag.
type FlagChange struct {
	CustomerID int64
	FlagName   string
	Action     FlagAction
	Timestamp  time.Time
}

// MessageDirection is inbound or outbound.
type MessageDirection string

const (
	MessageInbound  MessageDirection = "inbound"
	MessageOutbound MessageDirection = "outbound"
)

// Message is a row from the messaging log.
type Message struct {
	ID         string           `json:"message_id" db:"message_id"`
	Direction  MessageDirection `json:"direction" db:"direction"`
	FromNumber string           `json:"from_number" db:"from_number"`
	ToNumber   string           `json:"to_number" db:"to_number"`
	Body       string           `json:"body" db:"body"`
	SentAt     time.Time        `json:"sent_at" db:"sent_at"`
}

// FlagRule is a declarative, pure-AND predicate plus the events to publish on
// set and clear. Rules are loaded from a versioned YAML rule file.
type FlagRule struct {
	FlagName    string       `yaml:"flag_name" json:"flag_name" validate:"required"`
	Description string       `yaml:"description" json:"description"`
	Version     int          `yaml:"version" json:"version" validate:"gte=1"`
	Enabled     bool         `yaml:"enabled" json:"enabled"`
	Criteria    FlagCriteria `yaml:"criteria" json:"criteria"`
	Actions     FlagActions  `yaml:"actions" json:"actions"`
	OnClear     FlagActions  `yaml:"on_clear" json:"on_clear"`
}

// FlagCriteria holds every supported criterion. Zero values leave a criterion out.
type FlagCriteria struct {
	TextedKeyword     string `yaml:"texted_keyword,omitempty" json:"texted_keyword,omitempty"`
	HasDayPassCheckin bool   `yaml:"has_day_pass_checkin,omitempty" json:"has_day_pass_checkin,omitempty"`
	DayPassPattern    string `yaml:"day_pass_pattern,omitempty" json:"day_pass_pattern,omitempty"`
	IsNotActiveMember bool   `yaml:"is_not_active_member,omitempty" json:"is_not_active_member,omitempty"`
	NoRecentFlagDays  *int   `yaml:"no_recent_flag_days,omitempty" json:"no_recent_flag_days,omitempty" validate:"omitempty,gte=0"`
}

// IsEmpty reports whether no criterion is configured.
func (c FlagCriteria) IsEmpty() bool {
	return c.TextedKeyword == "" && !c.HasDayPassCheckin && !c.IsNotActiveMember && c.NoRecentFlagDays == nil
}

// FlagActions lists the side effects of a transition.
type FlagActions struct {
	LogEvent LogEventAction `yaml:"log_event" json:"log_event"`
}

// LogEventAction publishes a flag event when enabled.
type LogEventAction struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	EventType   string `yaml:"event_type" json:"event_type" validate:"required_if=Enabled true"`
	EventSource string `yaml:"event_source" json:"event_source"`
}
