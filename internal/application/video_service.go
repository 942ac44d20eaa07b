package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"shopify-video-layer/internal/domain"
	"shopify-video-layer/internal/ports"

	"github.com/rs/zerolog"
)

const videoService = "video_api"

// VideoService forwards generation requests and status lookups to the video
// API. Task state is never stored here.
type VideoService struct {
	client  ports.VideoClient
	metrics ports.MetricsRecorder
	logger  zerolog.Logger
}

// NewVideoService creates a new video service.
func NewVideoService(client ports.VideoClient, metrics ports.MetricsRecorder, logger zerolog.Logger) *VideoService {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &VideoService{client: client, metrics: metrics, logger: logger}
}

// Generate validates req and submits it, returning the provider task id.
func (s *VideoService) Generate(ctx context.Context, req *domain.VideoRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	taskID, err := s.client.CreateTask(ctx, req)
	s.metrics.UpstreamCall(videoService, "create_task", err)
	if err != nil {
		s.logger.Error().Err(err).Int("images", len(req.ImageURLs)).Msg("Failed to create video task")
		return "", fmt.Errorf("failed to create video task: %w", err)
	}

	s.logger.Info().
		Str("task_id", taskID).
		Str("aspect_ratio", req.AspectRatio).
		Int("images", len(req.ImageURLs)).
		Msg("Video generation requested")
	return taskID, nil
}

// Status returns the current task state.
func (s *VideoService) Status(ctx context.Context, taskID string) (*domain.TaskStatus, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, domain.MissingParameterError("taskId")
	}

	status, err := s.client.GetTaskStatus(ctx, taskID)
	s.metrics.UpstreamCall(videoService, "record_info", err)
	if err != nil {
		s.logger.Error().Err(err).Str("task_id", taskID).Msg("Failed to get video status")
		return nil, fmt.Errorf("failed to get video status: %w", err)
	}
	return status, nil
}

// CallbackNotice is the completion notification the video API posts to
// callBackUrl.
type CallbackNotice struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID   string `json:"taskId"`
		State    string `json:"state"`
		FailMsg  string `json:"failMsg"`
		Callback string `json:"callbackType"`
	} `json:"data"`
}

// HandleCallback records a provider notification. Bodies that do not decode
// are logged and acknowledged.
func (s *VideoService) HandleCallback(_ context.Context, body []byte) {
	var notice CallbackNotice
	if err := json.Unmarshal(body, &notice); err != nil {
		s.logger.Warn().Err(err).Int("bytes", len(body)).Msg("Undecodable video callback")
		return
	}

	if domain.IsTerminalTaskState(notice.Data.State) {
		s.metrics.VideoTaskFinished(notice.Data.State)
	}

	s.logger.Info().
		Int("code", notice.Code).
		Str("task_id", notice.Data.TaskID).
		Str("state", notice.Data.State).
		Str("fail_msg", notice.Data.FailMsg).
		Msg("Video callback received")
}
