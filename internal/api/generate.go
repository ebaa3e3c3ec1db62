package api

import (
	"context"
	"strings"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	apierrors "github.com/diogo/glmchat/internal/errors"
	"github.com/diogo/glmchat/internal/models"
)

// Task statuses reported by the async-result endpoint.
const (
	TaskPending    = "PENDING"
	TaskProcessing = "PROCESSING"
	TaskSuccess    = "SUCCESS"
	TaskFail       = "FAIL"
	TaskUnknown    = "UNKNOWN"
)

type imageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Quality string `json:"quality"`
	Size    string `json:"size"`
}

// ImageResult is a generated image.
type ImageResult struct {
	URL     string
	Created time.Time
}

// GenerateImage requests a single image for prompt.
func (c *Client) GenerateImage(ctx context.Context, apiKey, model, prompt string, opts models.ImageGenOptions) (*ImageResult, error) {
	opts = opts.Normalize()
	body, err := c.do(ctx, fhttp.MethodPost, models.EndpointImages, apiKey, imageRequest{
		Model:   model,
		Prompt:  prompt,
		Quality: opts.Quality,
		Size:    opts.Size,
	})
	if err != nil {
		return nil, err
	}

	count := gjson.GetBytes(body, PathImageCount).Int()
	url := gjson.GetBytes(body, PathImageURL).String()
	if count == 0 || url == "" {
		return nil, apierrors.NewParseError("response has no image url", PathImageURL)
	}
	if count > 1 {
		c.logger.Warn("image generation returned more than one image", zap.Int64("count", count))
	}

	result := &ImageResult{URL: url}
	if created := gjson.GetBytes(body, PathCreated).Int(); created > 0 {
		result.Created = time.Unix(created, 0).UTC()
	}

	c.logger.Info("image generated", zap.String("model", model), zap.String("quality", opts.Quality))
	return result, nil
}

type videoRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	Quality   string `json:"quality"`
	WithAudio bool   `json:"with_audio"`
}

// VideoTask is a submitted video generation job.
type VideoTask struct {
	TaskID string
	Status string
}

// SubmitVideo starts an asynchronous video generation.
func (c *Client) SubmitVideo(ctx context.Context, apiKey, model, prompt string, opts models.VideoGenOptions) (*VideoTask, error) {
	opts = opts.Normalize()
	body, err := c.do(ctx, fhttp.MethodPost, models.EndpointVideos, apiKey, videoRequest{
		Model:     model,
		Prompt:    prompt,
		ImageURL:  opts.ImageURL,
		Quality:   opts.Quality,
		WithAudio: opts.WithAudio,
	})
	if err != nil {
		return nil, err
	}

	task := &VideoTask{
		TaskID: gjson.GetBytes(body, PathTaskID).String(),
		Status: strings.ToUpper(gjson.GetBytes(body, PathTaskStatus).String()),
	}
	if task.TaskID == "" {
		return nil, apierrors.NewParseError("response has no task id", PathTaskID)
	}
	if task.Status == "" {
		task.Status = TaskProcessing
	}

	c.logger.Info("video task submitted", zap.String("task_id", task.TaskID), zap.String("status", task.Status))
	return task, nil
}

// VideoResult is the state of a video task.
type VideoResult struct {
	TaskID        string
	Status        string
	VideoURL      string
	CoverImageURL string
	ErrorMessage  string
}

// QueryVideo fetches the current state of a video task.
func (c *Client) QueryVideo(ctx context.Context, apiKey, taskID string) (*VideoResult, error) {
	body, err := c.do(ctx, fhttp.MethodGet, models.EndpointAsyncResult+taskID, apiKey, nil)
	if err != nil {
		return nil, err
	}

	result := &VideoResult{
		TaskID:        taskID,
		Status:        strings.ToUpper(gjson.GetBytes(body, PathTaskStatus).String()),
		VideoURL:      gjson.GetBytes(body, PathVideoURL).String(),
		CoverImageURL: gjson.GetBytes(body, PathVideoCoverURL).String(),
		ErrorMessage:  gjson.GetBytes(body, PathErrorMessage).String(),
	}
	if result.Status == "" {
		result.Status = TaskUnknown
	}

	c.logger.Debug("video task queried", zap.String("task_id", taskID), zap.String("status", result.Status))
	return result, nil
}
