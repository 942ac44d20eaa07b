package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"shopify-video-layer/internal/application"
	"shopify-video-layer/internal/infrastructure/metrics"

	"github.com/urfave/cli/v2"
)

// watchVideo polls one task and prints every observed status as a JSON line
// until the task finishes or the process is interrupted.
func watchVideo(c *cli.Context) error {
	logger := newLogger()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	taskID := c.String("task-id")
	client := newVideoClient(&http.Client{Timeout: cfg.HTTPClientTimeout}, logger)

	updates := make(chan application.StatusUpdate, 1)
	done := make(chan struct{})
	poller := application.NewStatusPoller(client, cfg.VideoPollInterval, func(u application.StatusUpdate) {
		select {
		case updates <- u:
		case <-done:
		}
	}, metrics.New(), logger)
	defer poller.Close()
	defer close(done)

	if err := poller.Track(ctx, taskID); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	err := printUpdates(ctx, updates, os.Stdout)
	poller.Stop(taskID)
	if err == nil && ctx.Err() != nil {
		logger.Info().Str("task_id", taskID).Msg("Interrupted")
	}
	return err
}

// printUpdates writes each status as a JSON line until a final update
// arrives or ctx is cancelled. Cancellation is a clean exit.
func printUpdates(ctx context.Context, updates <-chan application.StatusUpdate, w io.Writer) error {
	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-updates:
			if u.Err != nil {
				return fmt.Errorf("failed to poll task %s: %w", u.TaskID, u.Err)
			}
			if err := enc.Encode(u.Status); err != nil {
				return err
			}
			if u.Final() {
				return nil
			}
		}
	}
}
