// Package errors provides the error taxonomy shared by the glmchat core.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per taxonomy member.
var (
	ErrMissingCredential     = errors.New("API key is not configured")
	ErrInvalidCredential     = errors.New("API key was rejected")
	ErrModalityUnsupported   = errors.New("model cannot accept this kind of input")
	ErrUnsupportedCapability = errors.New("model does not support this operation")
	ErrPayloadTooLarge       = errors.New("attachment exceeds size limit")
	ErrEmptyPayload          = errors.New("nothing to send")
	ErrInvalidRequest        = errors.New("request rejected as invalid")
	ErrRateLimited           = errors.New("rate limited")
	ErrServerError           = errors.New("server error")
	ErrTransport             = errors.New("unexpected response status")
	ErrNetworkUnavailable    = errors.New("network unavailable")
	ErrNothingSelected       = errors.New("no conversations selected")
	ErrQueryFailed           = errors.New("task status query failed")
	ErrRequestInFlight       = errors.New("a request is already in flight for this conversation")
	ErrInvalidResponse       = errors.New("invalid response format")
	ErrPresetRequired        = errors.New("at least one preset must remain")
	ErrPresetNotFound        = errors.New("preset not found")
	ErrConversationNotFound  = errors.New("conversation not found")
)

// APIError represents a non-2xx response from the remote API.
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error [%d] at %s", e.StatusCode, e.Endpoint)
	}
	return fmt.Sprintf("API error [%d] at %s: %s", e.StatusCode, e.Endpoint, e.Message)
}

// Is maps the status code onto the taxonomy.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrInvalidRequest:
		return e.StatusCode == 400
	case ErrInvalidCredential:
		return e.StatusCode == 401
	case ErrRateLimited:
		return e.StatusCode == 429
	case ErrServerError:
		return e.StatusCode >= 500
	case ErrTransport:
		return e.StatusCode != 400 && e.StatusCode != 401 && e.StatusCode != 429 && e.StatusCode < 500
	}
	_, ok := target.(*APIError)
	return ok
}

// NewAPIError creates a new APIError
func NewAPIError(statusCode int, endpoint, message string) *APIError {
	return &APIError{StatusCode: statusCode, Endpoint: endpoint, Message: message}
}

// NewAPIErrorWithBody creates an APIError carrying the (truncated) response body.
func NewAPIErrorWithBody(statusCode int, endpoint, message, body string) *APIError {
	if len(body) > 4096 {
		body = body[:4096]
	}
	return &APIError{StatusCode: statusCode, Endpoint: endpoint, Message: message, Body: body}
}

// NetworkError wraps a failure to reach the remote API.
type NetworkError struct {
	Operation string
	Endpoint  string
	Err       error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s (%s): %v", e.Operation, e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is matches ErrNetworkUnavailable.
func (e *NetworkError) Is(target error) bool {
	if target == ErrNetworkUnavailable {
		return true
	}
	_, ok := target.(*NetworkError)
	return ok
}

// NewNetworkError creates a new NetworkError
func NewNetworkError(operation, endpoint string, err error) *NetworkError {
	return &NetworkError{Operation: operation, Endpoint: endpoint, Err: err}
}

// PayloadTooLargeError names the attachment that broke the size ceiling.
type PayloadTooLargeError struct {
	Name  string
	Size  int64
	Limit int64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("%s is %d bytes, limit is %d bytes", e.Name, e.Size, e.Limit)
}

func (e *PayloadTooLargeError) Is(target error) bool {
	return target == ErrPayloadTooLarge
}

// NewPayloadTooLargeError creates a new PayloadTooLargeError
func NewPayloadTooLargeError(name string, size, limit int64) *PayloadTooLargeError {
	return &PayloadTooLargeError{Name: name, Size: size, Limit: limit}
}

// CapabilityError reports a model used for an operation outside its family.
type CapabilityError struct {
	Model     string
	Operation string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("model %s does not support %s", e.Model, e.Operation)
}

func (e *CapabilityError) Is(target error) bool {
	return target == ErrUnsupportedCapability
}

// NewCapabilityError creates a new CapabilityError
func NewCapabilityError(model, operation string) *CapabilityError {
	return &CapabilityError{Model: model, Operation: operation}
}

// ModalityError reports input the model cannot accept.
type ModalityError struct {
	Model  string
	Reason string
}

func (e *ModalityError) Error() string {
	return fmt.Sprintf("model %s: %s", e.Model, e.Reason)
}

func (e *ModalityError) Is(target error) bool {
	return target == ErrModalityUnsupported
}

// NewModalityError creates a new ModalityError
func NewModalityError(model, reason string) *ModalityError {
	return &ModalityError{Model: model, Reason: reason}
}

// QueryError wraps a failed status query for an async generation task.
type QueryError struct {
	TaskID string
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query task %s: %v", e.TaskID, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

func (e *QueryError) Is(target error) bool {
	return target == ErrQueryFailed
}

// NewQueryError creates a new QueryError
func NewQueryError(taskID string, err error) *QueryError {
	return &QueryError{TaskID: taskID, Err: err}
}

// ParseError represents a response parsing error
type ParseError struct {
	Message string
	Path    string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse error: %s", e.Message)
	}
	return fmt.Sprintf("parse error at %s: %s", e.Path, e.Message)
}

// Is allows comparison with sentinel errors
func (e *ParseError) Is(target error) bool {
	if target == ErrInvalidResponse {
		return true
	}
	_, ok := target.(*ParseError)
	return ok
}

// NewParseError creates a new ParseError
func NewParseError(message, path string) *ParseError {
	return &ParseError{Message: message, Path: path}
}

// taxonomy is ordered: the first matching sentinel names the error.
var taxonomy = []struct {
	err  error
	name string
	text string
}{
	{ErrMissingCredential, "MissingCredential", "Please configure your API key first (glmchat config set api_key <key>)."},
	{ErrInvalidCredential, "InvalidCredential", "The API key is invalid. Check your settings."},
	{ErrModalityUnsupported, "ModalityUnsupported", "The selected model cannot handle this input. Choose a vision model."},
	{ErrUnsupportedCapability, "UnsupportedCapability", "The selected model does not support this operation."},
	{ErrPayloadTooLarge, "PayloadTooLarge", "The image is too large (max 5 MB)."},
	{ErrEmptyPayload, "EmptyPayload", "Nothing to send: enter a message or attach an image."},
	{ErrInvalidRequest, "InvalidRequest", "The request was invalid. Check the model and parameters."},
	{ErrRateLimited, "RateLimited", "Too many requests. Please try again later."},
	{ErrServerError, "ServerError", "The server failed to process the request. Please try again later."},
	{ErrTransport, "TransportError", "The request failed."},
	{ErrNetworkUnavailable, "NetworkUnavailable", "Network connection failed. Check your connection."},
	{ErrNothingSelected, "NothingSelected", "Select at least one conversation to export."},
	{ErrQueryFailed, "QueryFailed", "Checking the video status failed."},
	{ErrRequestInFlight, "RequestInFlight", "Wait for the current reply before sending another message."},
	{ErrInvalidResponse, "InvalidResponse", "The server returned an unexpected response."},
	{ErrPresetRequired, "PresetRequired", "At least one preset must remain."},
	{ErrPresetNotFound, "PresetNotFound", "Preset not found."},
	{ErrConversationNotFound, "ConversationNotFound", "Conversation not found."},
}

// Kind returns the taxonomy name of err, or "Unknown".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, t := range taxonomy {
		if errors.Is(err, t.err) {
			return t.name
		}
	}
	return "Unknown"
}

// UserMessage returns the text shown to the user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, t := range taxonomy {
		if errors.Is(err, t.err) {
			return t.text
		}
	}
	return err.Error()
}
