package domain

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	MinVideoImages = 1
	MaxVideoImages = 3

	AspectRatioLandscape = "landscape"
	AspectRatioPortrait  = "portrait"
)

// Task states reported by the video API.
const (
	TaskStateWaiting    = "waiting"
	TaskStateQueuing    = "queuing"
	TaskStateGenerating = "generating"
	TaskStateProcessing = "processing"
	TaskStateSuccess    = "success"
	TaskStateFail       = "fail"
	TaskStateFailed     = "failed"
)

// VideoRequest is the body accepted by POST /video/generate.
type VideoRequest struct {
	Prompt      string   `json:"prompt"`
	ImageURLs   []string `json:"image_urls"`
	AspectRatio string   `json:"aspect_ratio"`
}

// Validate trims the request and checks prompt, image count and URLs.
// An empty aspect ratio defaults to landscape.
func (r *VideoRequest) Validate() error {
	r.Prompt = strings.TrimSpace(r.Prompt)
	if r.Prompt == "" {
		return fmt.Errorf("%w: prompt is required", ErrInvalidVideoRequest)
	}

	if n := len(r.ImageURLs); n < MinVideoImages || n > MaxVideoImages {
		return fmt.Errorf("%w: expected %d to %d image_urls, got %d", ErrInvalidVideoRequest, MinVideoImages, MaxVideoImages, n)
	}
	for i, raw := range r.ImageURLs {
		raw = strings.TrimSpace(raw)
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: image_urls[%d] is not an http(s) URL", ErrInvalidVideoRequest, i)
		}
		r.ImageURLs[i] = raw
	}

	switch r.AspectRatio {
	case "":
		r.AspectRatio = AspectRatioLandscape
	case AspectRatioLandscape, AspectRatioPortrait:
	default:
		return fmt.Errorf("%w: aspect_ratio must be %q or %q", ErrInvalidVideoRequest, AspectRatioLandscape, AspectRatioPortrait)
	}
	return nil
}

// TaskStatus is the reshaped recordInfo response.
type TaskStatus struct {
	TaskID              string   `json:"taskId"`
	State               string   `json:"state"`
	ResultURLs          []string `json:"resultUrls"`
	ResultWaterMarkURLs []string `json:"resultWaterMarkUrls"`
	FailCode            string   `json:"failCode,omitempty"`
	FailMsg             string   `json:"failMsg,omitempty"`
	CreateTime          int64    `json:"createTime,omitempty"`
	UpdateTime          int64    `json:"updateTime,omitempty"`
	CompleteTime        int64    `json:"completeTime,omitempty"`
}

// Terminal reports whether polling should stop.
func (s *TaskStatus) Terminal() bool {
	return IsTerminalTaskState(s.State)
}

// IsTerminalTaskState reports whether state is success or failure.
func IsTerminalTaskState(state string) bool {
	switch state {
	case TaskStateSuccess, TaskStateFail, TaskStateFailed:
		return true
	}
	return false
}
