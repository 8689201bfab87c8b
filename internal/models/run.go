package models

import "time"

// RunSummary aggregates the outcome of one grading run.
type RunSummary struct {
	RunID                string    `json:"run_id"`
	GatedOff             bool      `json:"gated_off"`
	WindowStart          time.Time `json:"window_start"`
	WindowEnd            time.Time `json:"window_end"`
	DryRun               bool      `json:"dry_run"`
	AssignmentsProcessed int       `json:"assignments_processed"`
	Updates              int       `json:"updates"`
	UnchangedSkips       int       `json:"unchanged_skips"`
	Errors               int       `json:"errors"`
}

// ExitCode maps the summary onto the process exit convention: a live run with
// at least one counted error exits 2, everything else 0.
func (s RunSummary) ExitCode() int {
	if !s.DryRun && s.Errors > 0 {
		return 2
	}
	return 0
}
