package flags

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRules_Default(t *testing.T) {
	set, err := LoadRules("")
	require.NoError(t, err)
	require.Len(t, set.Rules, 1)

	rule := set.Rules[0]
	assert.Equal(t, "second_visit_offer_eligible", rule.FlagName)
	assert.True(t, rule.Enabled)
	assert.Equal(t, "WAIVER", rule.Criteria.TextedKeyword)
	assert.True(t, rule.Criteria.HasDayPassCheckin)
	assert.True(t, rule.Criteria.IsNotActiveMember)
	require.NotNil(t, rule.Criteria.NoRecentFlagDays)
	assert.Equal(t, 180, *rule.Criteria.NoRecentFlagDays)
	assert.Equal(t, "flag_set_second_visit_offer", rule.Actions.LogEvent.EventType)
	assert.Equal(t, "flag_cleared_second_visit_offer", rule.OnClear.LogEvent.EventType)
}

func TestLoadRules_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
version: 2
rules:
  - flag_name: lapsed
    version: 1
    enabled: false
    criteria:
      is_not_active_member: true
  - flag_name: day_pass
    version: 3
    enabled: true
    criteria:
      has_day_pass_checkin: true
      day_pass_pattern: "(?i)punch"
`), 0o644))

	set, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Version)
	enabled := set.Enabled()
	require.Len(t, enabled, 1)
	assert.Equal(t, "day_pass", enabled[0].FlagName)
}

func TestParseRules_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown criterion", "version: 1\nrules:\n  - flag_name: a\n    version: 1\n    criteria:\n      visited_twice: true\n"},
		{"missing flag name", "version: 1\nrules:\n  - version: 1\n    criteria:\n      is_not_active_member: true\n"},
		{"no criteria", "version: 1\nrules:\n  - flag_name: a\n    version: 1\n"},
		{"duplicate names", "version: 1\nrules:\n  - flag_name: a\n    version: 1\n    criteria: {is_not_active_member: true}\n  - flag_name: a\n    version: 1\n    criteria: {is_not_active_member: true}\n"},
		{"bad pattern", "version: 1\nrules:\n  - flag_name: a\n    version: 1\n    criteria: {has_day_pass_checkin: true, day_pass_pattern: \"([\"}\n"},
		{"event without type", "version: 1\nrules:\n  - flag_name: a\n    version: 1\n    criteria: {is_not_active_member: true}\n    actions:\n      log_event: {enabled: true}\n"},
		{"missing file version", "rules:\n  - flag_name: a\n    version: 1\n    criteria: {is_not_active_member: true}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestReplay(t *testing.T) {
	history := []models.FlagHistoryEntry{
		{CustomerID: 2, FlagName: "f", Action: models.FlagActionSet, Timestamp: now.AddDate(0, 0, -3)},
		{CustomerID: 1, FlagName: "f", Action: models.FlagActionSet, Timestamp: now.AddDate(0, 0, -3)},
		{CustomerID: 1, FlagName: "f", Action: models.FlagActionClear, Timestamp: now.AddDate(0, 0, -2)},
		{CustomerID: 2, FlagName: "f", Action: models.FlagActionSet, Timestamp: now.AddDate(0, 0, -1)},
		{CustomerID: 1, FlagName: "g", Action: models.FlagActionSet, Timestamp: now},
	}

	flags := Replay(history)

	require.Len(t, flags, 2)
	assert.Equal(t, models.CustomerFlag{CustomerID: 2, FlagName: "f", FlaggedAt: now.AddDate(0, 0, -1), CriteriaMet: true}, flags[0])
	assert.Equal(t, models.CustomerFlag{CustomerID: 1, FlagName: "g", FlaggedAt: now, CriteriaMet: true}, flags[1])
}
