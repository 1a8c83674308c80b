// Package analyzer extracts timestamped knowledge points from downloaded media
// through an external speech-transcription provider.
//
// The provider is task based: one call creates a remote transcription task,
// then the task status is polled on a fixed interval until it completes, fails
// or the retry budget runs out. When the provider is not configured, or a call
// fails while the fallback is enabled, the adapter substitutes a locally
// generated placeholder result so the analysis pipeline stays usable without
// live provider access. The substitution is logged, never silent.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"coursevault/internal/models"
)

var (
	// ErrNotConfigured indicates provider credentials or endpoint are missing.
	ErrNotConfigured = errors.New("analyzer: provider is not configured")
	// ErrProviderFailure indicates the provider reported a failed task or an
	// unexpected response.
	ErrProviderFailure = errors.New("analyzer: provider failure")
	// ErrProviderTimeout indicates the polling budget was exhausted before the
	// remote task reached a terminal state.
	ErrProviderTimeout = errors.New("analyzer: provider timed out")
	// ErrResponseParse indicates the provider response could not be decoded.
	ErrResponseParse = errors.New("analyzer: cannot parse provider response")
)

const (
	tasksPath          = "/openapi/tingwu/v2/tasks"
	defaultPollEvery   = 5 * time.Second
	defaultPollBudget  = 20
	defaultFileURLBase = "http://localhost:8080/temp/"
)

// Config holds the provider connection settings.
type Config struct {
	// BaseURL is the provider endpoint, e.g. https://tingwu.cn-beijing.aliyuncs.com.
	BaseURL string
	// AppKey is the provider application key included in task requests.
	AppKey string
	// AccessKeyID and AccessKeySecret authenticate every call.
	AccessKeyID     string
	AccessKeySecret string
	// Fallback substitutes a placeholder result when the provider is missing
	// or failing instead of propagating the error.
	Fallback bool
}

// Client is the transcription provider adapter.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *zap.Logger

	// fileURLBase is where staged media is served from; the provider fetches
	// source files by public URL rather than accepting uploads.
	fileURLBase string

	pollEvery  time.Duration
	pollBudget int
}

// New constructs a provider client from the given configuration.
func New(cfg Config, log *zap.Logger) *Client {
	return &Client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: time.Minute},
		log:         log,
		fileURLBase: defaultFileURLBase,
		pollEvery:   defaultPollEvery,
		pollBudget:  defaultPollBudget,
	}
}

// Configured reports whether all provider settings are present.
func (c *Client) Configured() bool {
	return c.cfg.BaseURL != "" && c.cfg.AppKey != "" &&
		c.cfg.AccessKeyID != "" && c.cfg.AccessKeySecret != ""
}

// Analyze submits the media file at filePath for transcription and returns the
// extracted knowledge points sorted by start time.
//
// With the fallback enabled, a missing configuration or any provider error is
// logged and replaced by a deterministic placeholder result; with it disabled,
// the typed error (ErrNotConfigured, ErrProviderFailure, ErrProviderTimeout,
// ErrResponseParse) propagates to the caller.
func (c *Client) Analyze(ctx context.Context, videoID, filePath string) ([]models.KnowledgePoint, error) {
	if !c.Configured() {
		if !c.cfg.Fallback {
			return nil, ErrNotConfigured
		}
		c.log.Warn("provider not configured, using placeholder result",
			zap.String("video", videoID))
		return placeholderResult(videoID), nil
	}

	points, err := c.analyzeRemote(ctx, filePath)
	if err != nil {
		if !c.cfg.Fallback {
			return nil, err
		}
		c.log.Warn("provider call failed, using placeholder result",
			zap.String("video", videoID), zap.Error(err))
		return placeholderResult(videoID), nil
	}
	return points, nil
}

func (c *Client) analyzeRemote(ctx context.Context, filePath string) ([]models.KnowledgePoint, error) {
	taskID, err := c.createTask(ctx, filePath)
	if err != nil {
		return nil, err
	}
	c.log.Info("transcription task created", zap.String("task", taskID))

	result, err := c.pollTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return parseChapters(result), nil
}

type taskResponse struct {
	Message string `json:"Message"`
	Data    struct {
		TaskID     string `json:"TaskId"`
		TaskStatus string `json:"TaskStatus"`
		Result     struct {
			AutoChapters []chapter `json:"AutoChapters"`
		} `json:"Result"`
	} `json:"Data"`
}

type chapter struct {
	StartTime float64  `json:"StartTime"`
	EndTime   *float64 `json:"EndTime"`
	Title     string   `json:"Title"`
}

// createTask registers an offline transcription task and returns its remote ID.
func (c *Client) createTask(ctx context.Context, filePath string) (string, error) {
	fileURL := c.fileURLBase + url.PathEscape(filepath.Base(filePath))

	body, err := json.Marshal(map[string]any{
		"type":   "offline",
		"AppKey": c.cfg.AppKey,
		"Input": map[string]any{
			"SourceLanguage": "cn",
			"FileUrl":        fileURL,
		},
		"TaskKey": fmt.Sprintf("task_%d", time.Now().UnixMilli()),
		"Parameters": map[string]any{
			"Transcoding": map[string]any{
				"TargetAudioFormat": "mp3",
			},
			"Transcription": map[string]any{
				"DiarizationEnabled": false,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal task request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.cfg.BaseURL+tasksPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: create task: %v", ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: create task: status %d, body: %s", ErrProviderFailure, resp.StatusCode, respBody)
	}

	var parsed taskResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: create task: %v", ErrResponseParse, err)
	}
	if parsed.Data.TaskID == "" {
		return "", fmt.Errorf("%w: create task returned no TaskId", ErrProviderFailure)
	}
	return parsed.Data.TaskID, nil
}

// pollTask queries the task status on a fixed interval until the remote side
// reports success or failure, or the retry budget is exhausted.
func (c *Client) pollTask(ctx context.Context, taskID string) (*taskResponse, error) {
	for i := 0; i < c.pollBudget; i++ {
		parsed, err := c.getTask(ctx, taskID)
		if err != nil {
			return nil, err
		}

		switch parsed.Data.TaskStatus {
		case "COMPLETED":
			return parsed, nil
		case "FAILED":
			return nil, fmt.Errorf("%w: %s", ErrProviderFailure, parsed.Message)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrProviderFailure, ctx.Err())
		case <-time.After(c.pollEvery):
		}
	}
	return nil, ErrProviderTimeout
}

func (c *Client) getTask(ctx context.Context, taskID string) (*taskResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+tasksPath+"/"+taskID, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get task: %v", ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: get task: status %d, body: %s", ErrProviderFailure, resp.StatusCode, respBody)
	}

	var parsed taskResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: get task: %v", ErrResponseParse, err)
	}
	return &parsed, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Access-Key-Id", c.cfg.AccessKeyID)
	req.Header.Set("X-Access-Key-Secret", c.cfg.AccessKeySecret)
}

// parseChapters maps provider chapters onto knowledge points. A chapter
// without a title becomes an empty content string; a missing end time stays
// absent rather than being defaulted to zero.
func parseChapters(result *taskResponse) []models.KnowledgePoint {
	chapters := result.Data.Result.AutoChapters
	points := make([]models.KnowledgePoint, 0, len(chapters))
	for _, ch := range chapters {
		points = append(points, models.KnowledgePoint{
			StartTime: ch.StartTime,
			EndTime:   ch.EndTime,
			Content:   ch.Title,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].StartTime < points[j].StartTime })
	return points
}
