package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/noah-isme/canvas-autograder/internal/canvas"
	"github.com/noah-isme/canvas-autograder/internal/service"
	"github.com/noah-isme/canvas-autograder/pkg/clock"
	"github.com/noah-isme/canvas-autograder/pkg/config"
	"github.com/noah-isme/canvas-autograder/pkg/logger"
	"github.com/noah-isme/canvas-autograder/pkg/retry"
)

const exitInterrupted = 130

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Printf("failed to init logger: %v", err)
		return 1
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy := retry.Default()
	policy.MaxAttempts = cfg.HTTP.MaxAttempts

	client := canvas.New(cfg.Canvas.BaseURL, cfg.Canvas.Token,
		canvas.WithTimeout(cfg.HTTP.Timeout),
		canvas.WithPolicy(policy),
		canvas.WithLogger(logr))

	grader := service.NewGraderService(client, cfg.Canvas.CourseID, cfg.Grading, clock.Real{}, logr)

	summary, err := grader.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logr.Warn("run interrupted")
			return exitInterrupted
		}
		logr.Error("run failed", zap.Error(err))
		return 1
	}

	return summary.ExitCode()
}
