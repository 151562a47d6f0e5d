package models

import "fmt"

// StageStats counts what one pipeline stage did.
type StageStats struct {
	Stage     string `json:"stage"`
	Processed int    `json:"processed"`
	Produced  int    `json:"produced"`
	Skipped   int    `json:"skipped"`
	// Breakdown counts produced records by kind when a stage emits more than one.
	Breakdown map[string]int `json:"breakdown,omitempty"`
	// Notes holds skipped sub-steps and other warnings worth surfacing.
	Notes []string `json:"notes,omitempty"`
}

// Fields returns the stats as log fields.
func (s StageStats) Fields() map[string]any {
	return map[string]any{
		"stage":     s.Stage,
		"processed": s.Processed,
		"produced":  s.Produced,
		"skipped":   s.Skipped,
	}
}

func (s StageStats) String() string {
	return fmt.Sprintf("%s: processed=%d produced=%d skipped=%d", s.Stage, s.Processed, s.Produced, s.Skipped)
}
