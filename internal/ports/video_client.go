package ports

import (
	"context"

	"shopify-video-layer/internal/domain"
)

// VideoClient talks to the external video-generation task API.
type VideoClient interface {
	CreateTask(ctx context.Context, req *domain.VideoRequest) (string, error)
	GetTaskStatus(ctx context.Context, taskID string) (*domain.TaskStatus, error)
}
