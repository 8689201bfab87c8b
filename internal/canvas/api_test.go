package canvas

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListAssignmentsFollowsPagination(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/api/v1/courses/101/assignments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		w.Header().Set("Link", fmt.Sprintf(`<%s/page2>; rel="next"`, srv.URL))
		w.Write([]byte(`[{"id":1,"name":"HW 1","grading_type":"complete_incomplete"},{"id":2,"name":"HW 2"}]`))
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":3,"name":"HW 3","points_possible":5}]`))
	})

	c := New(srv.URL, "t")

	assignments, err := c.ListAssignments(context.Background(), "101")
	require.NoError(t, err)
	require.Len(t, assignments, 3)
	assert.Equal(t, "HW 1", assignments[0].Name)
	assert.Equal(t, "complete_incomplete", assignments[0].GradingType)
	require.NotNil(t, assignments[2].PointsPossible)
	assert.Equal(t, 5.0, *assignments[2].PointsPossible)
}

func TestListSubmissionsIncludesUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/courses/101/assignments/9/submissions", r.URL.Path)
		assert.Equal(t, "user", r.URL.Query().Get("include[]"))
		w.Write([]byte(`[{"user_id":55,"submitted_at":"2024-05-10T03:00:00Z","user":{"id":55,"name":"Ada"}},{"user_id":56}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "t")

	submissions, err := c.ListSubmissions(context.Background(), "101", 9)
	require.NoError(t, err)
	require.Len(t, submissions, 2)
	require.NotNil(t, submissions[0].User)
	assert.Equal(t, "Ada", submissions[0].User.Name)
	assert.Nil(t, submissions[1].SubmittedAt)
}

func TestUpdateSubmissionGrade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/courses/101/assignments/9/submissions/55", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "complete", r.PostForm.Get("submission[posted_grade]"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "t")

	err := c.UpdateSubmissionGrade(context.Background(), "101", 9, 55, "complete")
	require.NoError(t, err)
}

func TestUpdateSubmissionGradeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":[{"message":"invalid token"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "t")

	err := c.UpdateSubmissionGrade(context.Background(), "101", 9, 55, "complete")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
