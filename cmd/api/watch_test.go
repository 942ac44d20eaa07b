package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"shopify-video-layer/internal/application"
	"shopify-video-layer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintUpdates_InterruptIsCleanExit(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	updates := make(chan application.StatusUpdate, 1)
	updates <- application.StatusUpdate{TaskID: "task-1", Status: &domain.TaskStatus{State: domain.TaskStateProcessing}}

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- printUpdates(ctx, updates, &out) }()

	// Wait for the first line before interrupting.
	require.Eventually(t, func() bool { return len(updates) == 0 }, time.Second, 5*time.Millisecond)
	cancel()

	require.NoError(t, <-done)
}

func TestPrintUpdates_StopsOnFinal(t *testing.T) {
	updates := make(chan application.StatusUpdate, 2)
	updates <- application.StatusUpdate{TaskID: "task-1", Status: &domain.TaskStatus{State: domain.TaskStateGenerating}}
	updates <- application.StatusUpdate{TaskID: "task-1", Status: &domain.TaskStatus{State: domain.TaskStateSuccess}}

	var out bytes.Buffer
	require.NoError(t, printUpdates(t.Context(), updates, &out))
	assert.Len(t, strings.Split(strings.TrimSpace(out.String()), "\n"), 2)
}

func TestPrintUpdates_PollError(t *testing.T) {
	updates := make(chan application.StatusUpdate, 1)
	updates <- application.StatusUpdate{TaskID: "task-1", Err: errors.New("upstream down")}

	err := printUpdates(t.Context(), updates, &bytes.Buffer{})
	assert.EqualError(t, err, "failed to poll task task-1: upstream down")
}
