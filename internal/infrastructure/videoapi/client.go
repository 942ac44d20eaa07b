// Package videoapi is the adapter for the Kie AI jobs API used to generate
// product videos.
package videoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"shopify-video-layer/internal/domain"

	"github.com/rs/zerolog"
)

const (
	serviceName = "video_api"

	DefaultBaseURL = "https://api.kie.ai"
	DefaultModel   = "sora-2-image-to-video"

	createTaskPath = "/api/v1/jobs/createTask"
	recordInfoPath = "/api/v1/jobs/recordInfo"

	maxResponseBody = 1 << 20
)

// Config configures the video API client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	CallbackURL string
}

// Client implements ports.VideoClient over HTTP.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new video API client.
func NewClient(cfg Config, httpClient *http.Client, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, httpClient: httpClient, logger: logger}
}

type createTaskInput struct {
	Prompt          string   `json:"prompt"`
	ImageURLs       []string `json:"image_urls"`
	AspectRatio     string   `json:"aspect_ratio"`
	NFrames         string   `json:"n_frames"`
	RemoveWatermark bool     `json:"remove_watermark"`
}

type createTaskRequest struct {
	Model       string          `json:"model"`
	CallBackURL string          `json:"callBackUrl,omitempty"`
	Input       createTaskInput `json:"input"`
}

// envelope is the wrapper every jobs endpoint responds with. The API reports
// some failures with HTTP 200 and a non-200 code.
type envelope struct {
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) failed() bool {
	return e.Code != 0 && e.Code != http.StatusOK
}

type recordInfo struct {
	TaskID       string          `json:"taskId"`
	State        string          `json:"state"`
	ResultJSON   json.RawMessage `json:"resultJson"`
	FailCode     flexString      `json:"failCode"`
	FailMsg      string          `json:"failMsg"`
	CreateTime   int64           `json:"createTime"`
	UpdateTime   int64           `json:"updateTime"`
	CompleteTime int64           `json:"completeTime"`
}

type resultPayload struct {
	ResultURLs          []string `json:"resultUrls"`
	ResultWaterMarkURLs []string `json:"resultWaterMarkUrls"`
}

// CreateTask submits a generation job and returns the provider task id.
func (c *Client) CreateTask(ctx context.Context, req *domain.VideoRequest) (string, error) {
	body := createTaskRequest{
		Model:       c.cfg.Model,
		CallBackURL: c.cfg.CallbackURL,
		Input: createTaskInput{
			Prompt:          req.Prompt,
			ImageURLs:       req.ImageURLs,
			AspectRatio:     req.AspectRatio,
			NFrames:         "10",
			RemoveWatermark: true,
		},
	}

	env, raw, err := c.do(ctx, http.MethodPost, c.cfg.BaseURL+createTaskPath, body)
	if err != nil {
		return "", err
	}

	var data struct {
		TaskID string `json:"taskId"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return "", &domain.UpstreamError{Service: serviceName, StatusCode: http.StatusOK, Body: string(raw)}
		}
	}
	if data.TaskID == "" {
		return "", &domain.UpstreamError{Service: serviceName, StatusCode: http.StatusOK, Body: string(raw)}
	}

	c.logger.Info().Str("task_id", data.TaskID).Str("model", c.cfg.Model).Msg("Video task created")
	return data.TaskID, nil
}

// GetTaskStatus fetches the current state of a task.
func (c *Client) GetTaskStatus(ctx context.Context, taskID string) (*domain.TaskStatus, error) {
	endpoint := c.cfg.BaseURL + recordInfoPath + "?" + url.Values{"taskId": {taskID}}.Encode()

	env, raw, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var info recordInfo
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &info); err != nil {
			return nil, &domain.UpstreamError{Service: serviceName, StatusCode: http.StatusOK, Body: string(raw)}
		}
	}

	status := &domain.TaskStatus{
		TaskID:              info.TaskID,
		State:               info.State,
		ResultURLs:          []string{},
		ResultWaterMarkURLs: []string{},
		FailCode:            string(info.FailCode),
		FailMsg:             info.FailMsg,
		CreateTime:          info.CreateTime,
		UpdateTime:          info.UpdateTime,
		CompleteTime:        info.CompleteTime,
	}
	if status.TaskID == "" {
		status.TaskID = taskID
	}

	result, err := parseResultJSON(info.ResultJSON)
	if err != nil {
		c.logger.Warn().Err(err).Str("task_id", taskID).Msg("Failed to parse resultJson")
	} else if result != nil {
		if result.ResultURLs != nil {
			status.ResultURLs = result.ResultURLs
		}
		if result.ResultWaterMarkURLs != nil {
			status.ResultWaterMarkURLs = result.ResultWaterMarkURLs
		}
	}

	return status, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any) (*envelope, []byte, error) {
	var reader io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, &domain.UpstreamError{Service: serviceName, Body: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, nil, &domain.UpstreamError{Service: serviceName, StatusCode: resp.StatusCode, Body: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, &domain.UpstreamError{Service: serviceName, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, &domain.UpstreamError{Service: serviceName, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if env.failed() {
		// The envelope code is not an HTTP status; it stays in the body.
		return nil, nil, &domain.UpstreamError{Service: serviceName, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return &env, raw, nil
}

// parseResultJSON accepts resultJson either as an embedded JSON string or as
// an object.
func parseResultJSON(raw json.RawMessage) (*resultPayload, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("failed to decode resultJson string: %w", err)
		}
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		raw = json.RawMessage(s)
	}

	var out resultPayload
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode resultJson: %w", err)
	}
	return &out, nil
}

// flexString decodes a JSON string, number or null into a string.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*f = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	default:
		n, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("failCode: %w", err)
		}
		*f = flexString(strconv.FormatFloat(n, 'f', -1, 64))
	}
	return nil
}
