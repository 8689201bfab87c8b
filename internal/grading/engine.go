// Package grading holds the pure decision logic for completion grading:
// computing the eligibility window, filtering assignments and deriving the
// grade a submission should carry. Nothing here performs I/O, so a rerun over
// unchanged remote state always decides zero writes.
package grading

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/canvas-autograder/internal/models"
)

// Recognized binary completion grade literals.
const (
	GradeComplete   = "complete"
	GradeIncomplete = "incomplete"
)

// Window is the half-open local-time interval [Start, End) an assignment's
// due date must fall in to be graded this run.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// ComputeWindow derives the eligibility window from the current local time:
// assignments due between (grace+window) days ago and grace days ago.
func ComputeWindow(now time.Time, graceDays, windowDays int) Window {
	return Window{
		Start: now.AddDate(0, 0, -(graceDays + windowDays)),
		End:   now.AddDate(0, 0, -graceDays),
	}
}

// ParseTimestamp parses a Canvas ISO 8601 timestamp. Nil, empty or
// unparseable input reports ok=false.
func ParseTimestamp(raw *string) (time.Time, bool) {
	if raw == nil || *raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Filter describes the optional eligibility restrictions.
type Filter struct {
	AssignmentGroupID         string
	RequireCompleteIncomplete bool
}

// Eligible reports whether the assignment should be graded this run. An
// assignment without a parseable due date is never eligible.
func Eligible(a models.Assignment, w Window, f Filter) bool {
	due, ok := ParseTimestamp(a.DueAt)
	if !ok {
		return false
	}
	if f.AssignmentGroupID != "" {
		if a.AssignmentGroupID == nil || strconv.FormatInt(*a.AssignmentGroupID, 10) != f.AssignmentGroupID {
			return false
		}
	}
	if f.RequireCompleteIncomplete && a.GradingType != models.GradingTypeCompleteIncomplete {
		return false
	}
	return w.Contains(due)
}

// EligibleAssignments filters assignments against the window and sorts the
// survivors by due date ascending.
func EligibleAssignments(assignments []models.Assignment, w Window, f Filter) []models.Assignment {
	var eligible []models.Assignment
	for _, a := range assignments {
		if Eligible(a, w, f) {
			eligible = append(eligible, a)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		ti, _ := ParseTimestamp(eligible[i].DueAt)
		tj, _ := ParseTimestamp(eligible[j].DueAt)
		return ti.Before(tj)
	})
	return eligible
}

// DesiredGrade computes the grade the submission should carry. For
// complete_incomplete assignments that is one of the two literals; for
// point-based ones it is the stringified full point value (truncated,
// defaulting to 1 when points_possible is null) or "0".
func DesiredGrade(a models.Assignment, s models.Submission) string {
	_, submitted := ParseTimestamp(s.SubmittedAt)

	if a.GradingType == models.GradingTypeCompleteIncomplete {
		if submitted {
			return GradeComplete
		}
		return GradeIncomplete
	}

	if !submitted {
		return "0"
	}
	fullPoints := 1
	if a.PointsPossible != nil {
		fullPoints = int(*a.PointsPossible)
	}
	return strconv.Itoa(fullPoints)
}

// NormalizeBinaryGrade lowercases and trims a grade string, recognizing only
// the two completion literals. Anything else, including a numeric grade left
// over from a grading-type change, reports as unrecognized, which forces a
// rewrite against a complete/incomplete desired value.
func NormalizeBinaryGrade(raw *string) string {
	if raw == nil {
		return ""
	}
	v := strings.ToLower(strings.TrimSpace(*raw))
	if v == GradeComplete || v == GradeIncomplete {
		return v
	}
	return ""
}

// CurrentGrade normalizes the grade currently on the submission, preferring
// the posted grade over the provisional one.
func CurrentGrade(s models.Submission) string {
	if g := NormalizeBinaryGrade(s.PostedGrade); g != "" {
		return g
	}
	return NormalizeBinaryGrade(s.Grade)
}

// NeedsWrite is the idempotence gate: write only when the desired grade
// differs from the current one.
func NeedsWrite(current, desired string) bool {
	return current != desired
}
