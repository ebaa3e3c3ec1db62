package api

import (
	"context"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	apierrors "github.com/diogo/glmchat/internal/errors"
	"github.com/diogo/glmchat/internal/models"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ImageURL is the image reference of a content part. URL is an http(s) URL
// or a data URL.
type ImageURL struct {
	URL string `json:"url"`
}

// ContentPart is one segment of a multi-modal message.
type ContentPart struct {
	Type     string    `json:"type"` // "text" or "image_url"
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// TextPart builds a text segment.
func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// ImagePart builds an image segment.
func ImagePart(url string) ContentPart {
	return ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: url}}
}

// ChatMessage is a message of the request. Content is either a string or a
// []ContentPart.
type ChatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ChatRequest is the body of a chat completion.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
	DoSample    bool          `json:"do_sample"`
	Stream      bool          `json:"stream"`
}

// NewChatRequest fills the sampling defaults used by every chat call.
func NewChatRequest(model string, messages []ChatMessage, temperature float64, maxTokens int) ChatRequest {
	return ChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		TopP:        0.9,
		DoSample:    true,
		Stream:      false,
	}
}

// ChatResponse is the parsed first choice of a completion.
type ChatResponse struct {
	Content          string
	ReasoningContent string
	FinishReason     string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatCompletion sends one chat completion request.
func (c *Client) ChatCompletion(ctx context.Context, apiKey string, req ChatRequest) (*ChatResponse, error) {
	body, err := c.do(ctx, fhttp.MethodPost, models.EndpointChat, apiKey, req)
	if err != nil {
		return nil, err
	}

	resp, err := parseChatResponse(body)
	if err != nil {
		return nil, err
	}

	c.logger.Info("chat completion",
		zap.String("model", req.Model),
		zap.String("finish_reason", resp.FinishReason),
		zap.Int("total_tokens", resp.TotalTokens))
	return resp, nil
}

func parseChatResponse(body []byte) (*ChatResponse, error) {
	if gjson.GetBytes(body, PathChoiceCount).Int() == 0 {
		return nil, apierrors.NewParseError("response has no choices", "choices")
	}

	resp := &ChatResponse{
		Content:          gjson.GetBytes(body, PathChoiceContent).String(),
		ReasoningContent: gjson.GetBytes(body, PathChoiceReasoning).String(),
		FinishReason:     gjson.GetBytes(body, PathChoiceFinish).String(),
		Model:            gjson.GetBytes(body, PathResponseModel).String(),
		PromptTokens:     int(gjson.GetBytes(body, PathUsagePrompt).Int()),
		CompletionTokens: int(gjson.GetBytes(body, PathUsageCompletion).Int()),
		TotalTokens:      int(gjson.GetBytes(body, PathUsageTotal).Int()),
	}

	if resp.Content == "" && resp.ReasoningContent == "" {
		return nil, apierrors.NewParseError("response has no content", PathChoiceContent)
	}
	return resp, nil
}
