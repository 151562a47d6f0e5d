package flags

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type memoryStore struct {
	history []models.FlagHistoryEntry
	current map[flagKey]models.CustomerFlag
	failOn  int64
}

func newMemoryStore(current ...models.CustomerFlag) *memoryStore {
	s := &memoryStore{current: make(map[flagKey]models.CustomerFlag)}
	for _, f := range current {
		s.current[flagKey{customerID: f.CustomerID, flagName: f.FlagName}] = f
	}
	return s
}

func (s *memoryStore) ApplyFlagChange(_ context.Context, entry models.FlagHistoryEntry) error {
	if s.failOn != 0 && entry.CustomerID == s.failOn {
		return errors.New("connection reset")
	}
	s.history = append(s.history, entry)
	key := flagKey{customerID: entry.CustomerID, flagName: entry.FlagName}
	if entry.Action == models.FlagActionSet {
		s.current[key] = models.CustomerFlag{CustomerID: entry.CustomerID, FlagName: entry.FlagName, FlaggedAt: entry.Timestamp, CriteriaMet: true}
	} else {
		delete(s.current, key)
	}
	return nil
}

type recordingPublisher struct {
	events []string
	err    error
}

func (p *recordingPublisher) PublishFlagChange(_ context.Context, rule models.FlagRule, entry models.FlagHistoryEntry) error {
	eventType := rule.Actions.LogEvent.EventType
	if entry.Action == models.FlagActionClear {
		eventType = rule.OnClear.LogEvent.EventType
	}
	p.events = append(p.events, eventType)
	return p.err
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func waiverRule(days int) models.FlagRule {
	set, err := ParseRules(defaultRules)
	if err != nil {
		panic(err)
	}
	rule := set.Rules[0]
	rule.Criteria.NoRecentFlagDays = &days
	return rule
}

// visitor is a customer who texted waiver from an international-format phone,
// has one day pass check-in and no membership.
func visitorInput() Input {
	return Input{
		Customers: []models.Customer{
			{ID: 1, FirstName: "Dana", LastName: "Fox", Phone: "2817998018"},
			{ID: 2, FirstName: "Eli", LastName: "Ng", Phone: "7135550000"},
		},
		CheckIns: []models.CheckIn{
			{ID: 10, CustomerID: 1, Description: "Day Pass", EntryMethod: "ENT"},
			{ID: 11, CustomerID: 2, Description: "Day Pass", EntryMethod: "ENT"},
		},
		Messages: []models.Message{
			{ID: "m1", Direction: models.MessageInbound, FromNumber: "+12817998018", Body: "waiver please"},
			{ID: "m2", Direction: models.MessageOutbound, FromNumber: "+17135550000", Body: "Reply WAIVER to sign"},
		},
		Memberships: []models.Membership{},
	}
}

func TestEvaluate_SecondVisitOffer(t *testing.T) {
	t.Run("flagged 200 days ago is eligible again", func(t *testing.T) {
		in := visitorInput()
		in.History = []models.FlagHistoryEntry{
			{ID: "a", CustomerID: 1, FlagName: "second_visit_offer_eligible", Action: models.FlagActionSet, Timestamp: now.AddDate(0, 0, -200)},
			{ID: "b", CustomerID: 1, FlagName: "second_visit_offer_eligible", Action: models.FlagActionClear, Timestamp: now.AddDate(0, 0, -199)},
		}

		store := newMemoryStore()
		engine := NewEngine([]models.FlagRule{waiverRule(180)}, store, nil, Options{Now: func() time.Time { return now }}, testLogger())
		result, stats, err := engine.Run(context.Background(), in)

		require.NoError(t, err)
		require.Len(t, result.Rules, 1)
		assert.Equal(t, []int64{1}, result.Rules[0].Eligible)
		require.Len(t, store.history, 1)
		assert.Equal(t, models.FlagActionSet, store.history[0].Action)
		assert.Equal(t, int64(1), store.history[0].CustomerID)
		assert.NotEmpty(t, store.history[0].ID)
		assert.Equal(t, 1, stats.Breakdown["set"])
	})

	t.Run("flagged 100 days ago is cleared", func(t *testing.T) {
		in := visitorInput()
		in.History = []models.FlagHistoryEntry{
			{ID: "a", CustomerID: 1, FlagName: "second_visit_offer_eligible", Action: models.FlagActionSet, Timestamp: now.AddDate(0, 0, -100)},
		}
		in.Current = Replay(in.History)

		store := newMemoryStore(in.Current...)
		engine := NewEngine([]models.FlagRule{waiverRule(180)}, store, nil, Options{Now: func() time.Time { return now }}, testLogger())
		result, _, err := engine.Run(context.Background(), in)

		require.NoError(t, err)
		assert.Empty(t, result.Rules[0].Eligible)
		assert.Equal(t, []int64{1}, result.Rules[0].ToClear)
		require.Len(t, store.history, 1)
		assert.Equal(t, models.FlagActionClear, store.history[0].Action)
		assert.Empty(t, store.current)
	})
}

func TestEvaluate_Criteria(t *testing.T) {
	days := 30
	base := models.FlagRule{FlagName: "f", Version: 1, Enabled: true}

	t.Run("keyword is case insensitive and inbound only", func(t *testing.T) {
		rule := base
		rule.Criteria = models.FlagCriteria{TextedKeyword: "WAIVER"}
		ids, skipped, err := Evaluate(rule, visitorInput(), now)
		require.NoError(t, err)
		assert.Empty(t, skipped)
		assert.Equal(t, []int64{1}, ids)
	})

	t.Run("day pass pattern", func(t *testing.T) {
		rule := base
		rule.Criteria = models.FlagCriteria{HasDayPassCheckin: true}
		in := visitorInput()
		in.CheckIns[1].Description = "Guest Pass from Dana Fox"
		ids, _, err := Evaluate(rule, in, now)
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, ids)

		rule.Criteria.DayPassPattern = `(?i)guest`
		ids, _, err = Evaluate(rule, in, now)
		require.NoError(t, err)
		assert.Equal(t, []int64{2}, ids)
	})

	t.Run("active owners are excluded", func(t *testing.T) {
		rule := base
		rule.Criteria = models.FlagCriteria{IsNotActiveMember: true}
		in := visitorInput()
		in.Memberships = []models.Membership{
			{ID: 1, OwnerID: 1, Status: "ACT"},
			{ID: 2, OwnerID: 2, Status: "EXP"},
		}
		ids, _, err := Evaluate(rule, in, now)
		require.NoError(t, err)
		assert.Equal(t, []int64{2}, ids)
	})

	t.Run("only set entries of the same flag count as recent", func(t *testing.T) {
		rule := base
		rule.Criteria = models.FlagCriteria{NoRecentFlagDays: &days}
		in := visitorInput()
		in.History = []models.FlagHistoryEntry{
			{CustomerID: 1, FlagName: "other", Action: models.FlagActionSet, Timestamp: now.AddDate(0, 0, -1)},
			{CustomerID: 2, FlagName: "f", Action: models.FlagActionClear, Timestamp: now.AddDate(0, 0, -1)},
		}
		ids, _, err := Evaluate(rule, in, now)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, ids)
	})

	t.Run("absent source skips the rule", func(t *testing.T) {
		rule := base
		rule.Criteria = models.FlagCriteria{TextedKeyword: "WAIVER", IsNotActiveMember: true}
		in := visitorInput()
		in.Memberships = nil
		ids, skipped, err := Evaluate(rule, in, now)
		require.NoError(t, err)
		assert.Nil(t, ids)
		assert.Contains(t, skipped, "memberships")
	})
}

func TestDiff(t *testing.T) {
	current := []models.CustomerFlag{
		{CustomerID: 5, FlagName: "f"},
		{CustomerID: 3, FlagName: "f"},
		{CustomerID: 1, FlagName: "f"},
		{CustomerID: 9, FlagName: "other"},
	}
	changes := Diff("f", []int64{4, 1, 2}, current, now)

	require.Len(t, changes, 4)
	assert.Equal(t, models.FlagChange{CustomerID: 2, FlagName: "f", Action: models.FlagActionSet, Timestamp: now}, changes[0])
	assert.Equal(t, int64(4), changes[1].CustomerID)
	assert.Equal(t, models.FlagChange{CustomerID: 3, FlagName: "f", Action: models.FlagActionClear, Timestamp: now}, changes[2])
	assert.Equal(t, int64(5), changes[3].CustomerID)
}

func TestEngine_Run(t *testing.T) {
	clock := now
	opts := Options{Now: func() time.Time { return clock }}

	t.Run("dry run writes nothing", func(t *testing.T) {
		store := newMemoryStore()
		pub := &recordingPublisher{}
		engine := NewEngine([]models.FlagRule{waiverRule(180)}, store, pub, Options{Now: opts.Now, DryRun: true}, testLogger())

		result, stats, err := engine.Run(context.Background(), visitorInput())
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, result.Rules[0].ToSet)
		assert.Empty(t, result.Applied)
		assert.Empty(t, store.history)
		assert.Empty(t, pub.events)
		assert.Equal(t, 1, stats.Produced)
	})

	t.Run("disabled rules are ignored", func(t *testing.T) {
		rule := waiverRule(180)
		rule.Enabled = false
		engine := NewEngine([]models.FlagRule{rule}, newMemoryStore(), nil, opts, testLogger())
		result, _, err := engine.Run(context.Background(), visitorInput())
		require.NoError(t, err)
		assert.Empty(t, result.Rules)
	})

	t.Run("publishes configured event types", func(t *testing.T) {
		store := newMemoryStore(models.CustomerFlag{CustomerID: 2, FlagName: "second_visit_offer_eligible"})
		pub := &recordingPublisher{err: errors.New("broker down")}
		engine := NewEngine([]models.FlagRule{waiverRule(180)}, store, pub, opts, testLogger())

		in := visitorInput()
		in.Current = []models.CustomerFlag{{CustomerID: 2, FlagName: "second_visit_offer_eligible"}}
		result, _, err := engine.Run(context.Background(), in)

		require.NoError(t, err)
		assert.Len(t, result.Applied, 2)
		assert.Equal(t, []string{"flag_set_second_visit_offer", "flag_cleared_second_visit_offer"}, pub.events)
	})

	t.Run("store failure stops the run", func(t *testing.T) {
		store := newMemoryStore()
		store.failOn = 1
		engine := NewEngine([]models.FlagRule{waiverRule(180)}, store, nil, opts, testLogger())
		_, _, err := engine.Run(context.Background(), visitorInput())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "customer 1")
		assert.Empty(t, store.history)
	})

	t.Run("set clear set cycles replay to the current state", func(t *testing.T) {
		store := newMemoryStore()
		rule := waiverRule(0)
		engine := NewEngine([]models.FlagRule{rule}, store, nil, opts, testLogger())
		in := visitorInput()

		run := func() {
			in.History = store.history
			in.Current = Replay(store.history)
			_, _, err := engine.Run(context.Background(), in)
			require.NoError(t, err)
		}

		run() // set
		in.Messages = []models.Message{}
		clock = clock.Add(time.Hour)
		run() // clear
		in.Messages = visitorInput().Messages
		clock = clock.Add(time.Hour)
		run() // set again

		require.Len(t, store.history, 3)
		actions := []models.FlagAction{store.history[0].Action, store.history[1].Action, store.history[2].Action}
		assert.Equal(t, []models.FlagAction{models.FlagActionSet, models.FlagActionClear, models.FlagActionSet}, actions)

		replayed := Replay(store.history)
		require.Len(t, replayed, 1)
		assert.Equal(t, store.current[flagKey{customerID: 1, flagName: rule.FlagName}], replayed[0])
	})
}
