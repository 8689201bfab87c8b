package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/canvas-autograder/internal/grading"
	"github.com/noah-isme/canvas-autograder/internal/models"
	"github.com/noah-isme/canvas-autograder/pkg/clock"
	"github.com/noah-isme/canvas-autograder/pkg/config"
	apierrors "github.com/noah-isme/canvas-autograder/pkg/errors"
)

type canvasAPI interface {
	ListAssignments(ctx context.Context, courseID string) ([]models.Assignment, error)
	ListSubmissions(ctx context.Context, courseID string, assignmentID int64) ([]models.Submission, error)
	UpdateSubmissionGrade(ctx context.Context, courseID string, assignmentID, userID int64, postedGrade string) error
}

// GraderService sequences one completion-grading run over a course: compute
// the window, pick eligible assignments, then reconcile each submission's
// posted grade against the desired one. Per-assignment and per-submission
// failures are counted and the run continues.
type GraderService struct {
	api      canvasAPI
	courseID string
	cfg      config.GradingConfig
	clock    clock.Clock
	logger   *zap.Logger
}

// NewGraderService constructs GraderService.
func NewGraderService(api canvasAPI, courseID string, cfg config.GradingConfig, clk clock.Clock, logger *zap.Logger) *GraderService {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraderService{
		api:      api,
		courseID: courseID,
		cfg:      cfg,
		clock:    clk,
		logger:   logger,
	}
}

// Run executes one grading pass and returns its summary. The returned error
// is fatal for the run (bad timezone, assignments could not be listed);
// everything downstream is isolated per assignment or per submission and
// counted on the summary instead.
func (s *GraderService) Run(ctx context.Context) (*models.RunSummary, error) {
	runID := uuid.NewString()
	logger := s.logger.With(zap.String("run_id", runID))
	summary := &models.RunSummary{RunID: runID, DryRun: s.cfg.DryRun}

	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", s.cfg.Timezone, err)
	}
	now := s.clock.Now().In(loc)

	if s.cfg.EnforceThursday5PM && !isThursday5PM(now) {
		logger.Info("outside the scheduled slot, skipping run", zap.Time("now", now))
		summary.GatedOff = true
		return summary, nil
	}

	window := grading.ComputeWindow(now, s.cfg.GraceDays, s.cfg.WindowDays)
	summary.WindowStart = window.Start
	summary.WindowEnd = window.End
	logger.Info("grading window computed",
		zap.String("timezone", s.cfg.Timezone),
		zap.Time("window_start", window.Start),
		zap.Time("window_end", window.End),
		zap.String("course_id", s.courseID),
		zap.String("assignment_group_id", s.cfg.AssignmentGroupID),
		zap.Bool("dry_run", s.cfg.DryRun))

	assignments, err := s.api.ListAssignments(ctx, s.courseID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	logger.Info("assignments fetched", zap.Int("count", len(assignments)))

	eligible := grading.EligibleAssignments(assignments, window, grading.Filter{
		AssignmentGroupID:         s.cfg.AssignmentGroupID,
		RequireCompleteIncomplete: s.cfg.RequireCompleteIncomplete,
	})
	summary.AssignmentsProcessed = len(eligible)
	logger.Info("eligible assignments in window", zap.Int("count", len(eligible)))

	for _, a := range eligible {
		if err := s.gradeAssignment(ctx, logger, a, summary); err != nil {
			return nil, err
		}
	}

	logger.Info("run summary",
		zap.Int("assignments_processed", summary.AssignmentsProcessed),
		zap.Int("updates", summary.Updates),
		zap.Int("unchanged_skips", summary.UnchangedSkips),
		zap.Int("errors", summary.Errors),
		zap.Bool("dry_run", summary.DryRun))

	return summary, nil
}

// gradeAssignment reconciles one assignment's submissions. Failures are
// counted on the summary and swallowed; only an interrupted run context
// propagates, so the process can report the interruption instead of an
// ordinary error tally.
func (s *GraderService) gradeAssignment(ctx context.Context, logger *zap.Logger, a models.Assignment, summary *models.RunSummary) error {
	alog := logger.With(zap.Int64("assignment_id", a.ID), zap.String("name", a.Name))
	alog.Info("processing assignment", zap.Stringp("due_at", a.DueAt))

	submissions, err := s.api.ListSubmissions(ctx, s.courseID, a.ID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		summary.Errors++
		alog.Error("failed to fetch submissions", zap.Error(err))
		return nil
	}

	updates, skips := 0, 0
	for _, sub := range submissions {
		if sub.UserID == nil {
			continue
		}

		desired := grading.DesiredGrade(a, sub)
		current := grading.CurrentGrade(sub)
		if !grading.NeedsWrite(current, desired) {
			skips++
			continue
		}

		if s.cfg.DryRun {
			updates++
			alog.Info("would update grade",
				zap.Int64("user_id", *sub.UserID),
				zap.String("desired", desired),
				zap.Stringp("submitted_at", sub.SubmittedAt))
			continue
		}

		if err := s.api.UpdateSubmissionGrade(ctx, s.courseID, a.ID, *sub.UserID, desired); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			summary.Errors++
			alog.Error("failed to update grade",
				zap.Int64("user_id", *sub.UserID),
				zap.String("desired", desired),
				zap.Int("status", apierrors.StatusOf(err)),
				zap.Error(err))
			continue
		}
		updates++
		alog.Info("grade updated",
			zap.Int64("user_id", *sub.UserID),
			zap.String("desired", desired))
	}

	summary.Updates += updates
	summary.UnchangedSkips += skips
	alog.Info("assignment done",
		zap.Int("updates", updates),
		zap.Int("unchanged_skips", skips),
		zap.Int("submissions", len(submissions)))
	return nil
}

func isThursday5PM(now time.Time) bool {
	return now.Weekday() == time.Thursday && now.Hour() == 17 && now.Minute() == 0
}
