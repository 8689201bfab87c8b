package models

// GradingTypeCompleteIncomplete marks assignments scored as a binary
// complete/incomplete outcome rather than points.
const GradingTypeCompleteIncomplete = "complete_incomplete"

// Assignment is a Canvas assignment as returned by the course assignments
// endpoint. Only the fields the grader reads are mapped.
type Assignment struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	DueAt             *string  `json:"due_at"`
	GradingType       string   `json:"grading_type"`
	AssignmentGroupID *int64   `json:"assignment_group_id"`
	PointsPossible    *float64 `json:"points_possible"`
}
