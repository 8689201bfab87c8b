package models

// Submission is one student's submission state for an assignment. A non-nil
// SubmittedAt means "submitted"; lateness is irrelevant to the grader.
type Submission struct {
	UserID      *int64          `json:"user_id"`
	SubmittedAt *string         `json:"submitted_at"`
	PostedGrade *string         `json:"posted_grade"`
	Grade       *string         `json:"grade"`
	User        *SubmissionUser `json:"user,omitempty"`
}

// SubmissionUser is the submitter identity included via include[]=user.
type SubmissionUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
