package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIErrorStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
		kind   string
	}{
		{400, ErrInvalidRequest, "InvalidRequest"},
		{401, ErrInvalidCredential, "InvalidCredential"},
		{429, ErrRateLimited, "RateLimited"},
		{500, ErrServerError, "ServerError"},
		{503, ErrServerError, "ServerError"},
		{404, ErrTransport, "TransportError"},
		{302, ErrTransport, "TransportError"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := NewAPIError(tt.status, "/chat/completions", "failed")
			if !errors.Is(err, tt.want) {
				t.Errorf("errors.Is(%d, %v) = false, want true", tt.status, tt.want)
			}
			if got := Kind(err); got != tt.kind {
				t.Errorf("Kind() = %s, want %s", got, tt.kind)
			}
		})
	}
}

func TestAPIErrorDoesNotMatchOtherStatus(t *testing.T) {
	err := NewAPIError(401, "/chat/completions", "")
	if errors.Is(err, ErrRateLimited) {
		t.Error("401 should not match ErrRateLimited")
	}
	if errors.Is(err, ErrTransport) {
		t.Error("401 should not match ErrTransport")
	}
	want := "API error [401] at /chat/completions"
	if err.Error() != want {
		t.Errorf("Error() = %s, want %s", err.Error(), want)
	}
}

func TestAPIErrorBodyTruncated(t *testing.T) {
	body := make([]byte, 5000)
	for i := range body {
		body[i] = 'x'
	}
	err := NewAPIErrorWithBody(500, "e", "m", string(body))
	if len(err.Body) != 4096 {
		t.Errorf("len(Body) = %d, want 4096", len(err.Body))
	}
}

func TestNetworkErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("send: %w", NewNetworkError("chat completion", "/chat/completions", cause))

	if !errors.Is(err, ErrNetworkUnavailable) {
		t.Error("expected ErrNetworkUnavailable")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
	if Kind(err) != "NetworkUnavailable" {
		t.Errorf("Kind() = %s", Kind(err))
	}
}

func TestTypedErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"payload", NewPayloadTooLargeError("a.png", 6<<20, 5<<20), ErrPayloadTooLarge},
		{"capability", NewCapabilityError("cogview-3-flash", "chat"), ErrUnsupportedCapability},
		{"modality", NewModalityError("glm-4-flash-250414", "images not supported"), ErrModalityUnsupported},
		{"query", NewQueryError("task-1", errors.New("boom")), ErrQueryFailed},
		{"parse", NewParseError("missing url", "data.0.url"), ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(nil); got != "" {
		t.Errorf("UserMessage(nil) = %q", got)
	}
	if got := UserMessage(ErrMissingCredential); got == ErrMissingCredential.Error() {
		t.Error("expected a friendly message for ErrMissingCredential")
	}
	other := errors.New("something odd")
	if got := UserMessage(other); got != "something odd" {
		t.Errorf("UserMessage() = %q, want raw text", got)
	}
	if Kind(other) != "Unknown" {
		t.Errorf("Kind() = %s, want Unknown", Kind(other))
	}
}

func TestParseErrorFormat(t *testing.T) {
	err := NewParseError("missing url", "data.0.url")
	want := "parse error at data.0.url: missing url"
	if err.Error() != want {
		t.Errorf("Error() = %s, want %s", err.Error(), want)
	}
	if NewParseError("bad json", "").Error() != "parse error: bad json" {
		t.Error("unexpected format without path")
	}
}
