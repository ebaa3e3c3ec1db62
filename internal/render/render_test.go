package render

import (
	"strings"
	"testing"
	"time"

	"github.com/diogo/glmchat/internal/config"
	"github.com/diogo/glmchat/internal/history"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.Width != 80 {
		t.Errorf("expected Width=80, got %d", opts.Width)
	}
	if opts.Style != "dark" {
		t.Errorf("expected Style='dark', got %s", opts.Style)
	}
	if !opts.EnableEmoji || !opts.PreserveNewLines {
		t.Errorf("unexpected defaults: %+v", opts)
	}
}

func TestOptionsWith(t *testing.T) {
	opts := DefaultOptions().WithWidth(120).WithStyle("light")
	if opts.Width != 120 || opts.Style != "light" {
		t.Errorf("opts = %+v", opts)
	}
	if DefaultOptions().WithWidth(0).Width != 80 {
		t.Error("zero width must keep the previous width")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	t.Setenv("GLAMOUR_STYLE", "")

	opts := OptionsFromConfig(config.MarkdownConfig{Style: "notty", Width: 60, Emoji: false})
	if opts.Style != "notty" || opts.Width != 60 || opts.EnableEmoji {
		t.Errorf("opts = %+v", opts)
	}

	t.Setenv("GLAMOUR_STYLE", "ascii")
	if got := OptionsFromConfig(config.DefaultMarkdownConfig()).Style; got != "ascii" {
		t.Errorf("GLAMOUR_STYLE not applied, style = %s", got)
	}
}

func TestMarkdown(t *testing.T) {
	out, err := Markdown("# Title\n\nSome **bold** text.", DefaultOptions().WithStyle("notty"))
	if err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	if !strings.Contains(out, "Title") || !strings.Contains(out, "bold") {
		t.Errorf("output missing content: %q", out)
	}
}

func TestMessageMarkdown(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	user := history.Message{Sender: history.SenderUser, Content: "hi", Timestamp: at,
		Files: []history.FileRef{{Name: "a.png", Kind: history.FileImage, URL: "data:image/png;base64,xx"}}}
	got := MessageMarkdown(user)
	if !strings.HasPrefix(got, "**You**") || !strings.Contains(got, "- image: a.png") {
		t.Errorf("user markdown = %q", got)
	}
	if strings.Contains(got, "base64") {
		t.Error("data URLs must not be printed")
	}

	ai := history.Message{Sender: history.SenderAI, Content: "done", Timestamp: at,
		Files: []history.FileRef{{Name: "v.mp4", Kind: history.FileVideo, URL: "https://cdn.test/v.mp4"}}}
	if got := MessageMarkdown(ai); !strings.Contains(got, "[v.mp4](https://cdn.test/v.mp4)") || !strings.HasPrefix(got, "**GLM**") {
		t.Errorf("ai markdown = %q", got)
	}

	failed := history.Message{Sender: history.SenderAI, Content: "boom", IsError: true, Timestamp: at}
	if got := MessageMarkdown(failed); !strings.HasPrefix(got, "**Error**") || !strings.Contains(got, "> boom") {
		t.Errorf("error markdown = %q", got)
	}
}

func TestConversation(t *testing.T) {
	conv := &history.Conversation{
		Title: "Greeting",
		Messages: []history.Message{
			{Sender: history.SenderUser, Content: "hello"},
			{Sender: history.SenderAI, Content: "hi there"},
		},
	}
	out := Conversation(conv, DefaultOptions().WithStyle("notty"))
	for _, want := range []string{"Greeting", "hello", "hi there"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
