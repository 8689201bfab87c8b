package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/noah-isme/canvas-autograder/internal/models"
	apierrors "github.com/noah-isme/canvas-autograder/pkg/errors"
)

const pageSize = "100"

// ListAssignments fetches every assignment in the course.
func (c *Client) ListAssignments(ctx context.Context, courseID string) ([]models.Assignment, error) {
	path := fmt.Sprintf("/api/v1/courses/%s/assignments", courseID)
	query := url.Values{"per_page": {pageSize}}

	var assignments []models.Assignment
	err := c.eachRecord(ctx, path, query, func(raw json.RawMessage) error {
		var a models.Assignment
		if err := json.Unmarshal(raw, &a); err != nil {
			return err
		}
		assignments = append(assignments, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

// ListSubmissions fetches every submission for an assignment, including the
// submitter identity.
func (c *Client) ListSubmissions(ctx context.Context, courseID string, assignmentID int64) ([]models.Submission, error) {
	path := fmt.Sprintf("/api/v1/courses/%s/assignments/%d/submissions", courseID, assignmentID)
	query := url.Values{
		"per_page":  {pageSize},
		"include[]": {"user"},
	}

	var submissions []models.Submission
	err := c.eachRecord(ctx, path, query, func(raw json.RawMessage) error {
		var s models.Submission
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		submissions = append(submissions, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

// UpdateSubmissionGrade posts a grade for one (assignment, user) pair. A
// non-success response is an error for this update only.
func (c *Client) UpdateSubmissionGrade(ctx context.Context, courseID string, assignmentID, userID int64, postedGrade string) error {
	path := fmt.Sprintf("/api/v1/courses/%s/assignments/%d/submissions/%d", courseID, assignmentID, userID)
	form := url.Values{"submission[posted_grade]": {postedGrade}}

	resp, err := c.Do(ctx, http.MethodPut, path, nil, form)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return apierrors.FromResponse(http.MethodPut, path, resp.StatusCode, resp.Body)
	}
	return nil
}
