// Package events announces customer flag transitions on Kafka.
package events

import (
	"context"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

type EventType string

const (
	EventTypeFlagSet     EventType = "flag.set"
	EventTypeFlagCleared EventType = "flag.cleared"
)

// FlagEvent is the message body for one flag transition.
type FlagEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	// RuleEventType is the event_type configured on the rule's log_event action.
	RuleEventType string    `json:"rule_event_type"`
	EventSource   string    `json:"event_source,omitempty"`
	EntryID       string    `json:"entry_id"`
	CustomerID    int64     `json:"customer_id"`
	FlagName      string    `json:"flag_name"`
	RuleVersion   int       `json:"rule_version"`
	Timestamp     time.Time `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, records ...kafka.Record) error
}

// Emitter publishes flag events keyed by customer id so a customer's
// transitions stay ordered on one partition.
type Emitter struct {
	producer Publisher
	logger   ectologger.Logger
}

func NewEmitter(producer Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// PublishFlagChange emits flag.set or flag.cleared for entry using the action
// block of rule that matches the transition.
func (e *Emitter) PublishFlagChange(ctx context.Context, rule models.FlagRule, entry models.FlagHistoryEntry) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.PublishFlagChange")
	defer span.End()

	event := NewFlagEvent(rule, entry)
	record := kafka.Record{
		Key: strconv.FormatInt(entry.CustomerID, 10),
		Headers: map[string]string{
			"event_type":     string(event.EventType),
			"flag_name":      entry.FlagName,
			"schema_version": SchemaVersion,
		},
		Value: event,
	}

	if err := e.producer.Publish(ctx, record); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type":  event.EventType,
			"customer_id": entry.CustomerID,
			"flag_name":   entry.FlagName,
		}).Errorf("Failed to emit %s event", event.EventType)
		return err
	}
	return nil
}

func NewFlagEvent(rule models.FlagRule, entry models.FlagHistoryEntry) FlagEvent {
	eventType := EventTypeFlagSet
	action := rule.Actions.LogEvent
	if entry.Action == models.FlagActionClear {
		eventType = EventTypeFlagCleared
		action = rule.OnClear.LogEvent
	}

	return FlagEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		RuleEventType: action.EventType,
		EventSource:   action.EventSource,
		EntryID:       entry.ID,
		CustomerID:    entry.CustomerID,
		FlagName:      entry.FlagName,
		RuleVersion:   rule.Version,
		Timestamp:     entry.Timestamp,
	}
}
