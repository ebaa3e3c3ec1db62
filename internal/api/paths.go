// Package api provides the BigModel open platform client.
package api

// GJSON paths for extracting values from API responses.
const (
	PathErrorMessage = "error.message"
	PathErrorCode    = "error.code"

	// Chat completions
	PathChoiceCount     = "choices.#"
	PathChoiceContent   = "choices.0.message.content"
	PathChoiceReasoning = "choices.0.message.reasoning_content"
	PathChoiceFinish    = "choices.0.finish_reason"
	PathResponseModel   = "model"
	PathUsagePrompt     = "usage.prompt_tokens"
	PathUsageCompletion = "usage.completion_tokens"
	PathUsageTotal      = "usage.total_tokens"

	// Image generation
	PathImageCount = "data.#"
	PathImageURL   = "data.0.url"
	PathCreated    = "created"

	// Video generation and async results
	PathTaskID        = "id"
	PathTaskStatus    = "task_status"
	PathVideoURL      = "video_result.0.url"
	PathVideoCoverURL = "video_result.0.cover_image_url"
)
