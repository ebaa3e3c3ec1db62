package render

import (
	"fmt"
	"strings"

	"github.com/diogo/glmchat/internal/history"
)

// Markdown renders markdown content for terminal display.
// Uses a pooled renderer for better performance and thread safety.
func Markdown(content string, opts Options) (string, error) {
	renderer, err := globalPool.get(opts)
	if err != nil {
		return "", err
	}
	defer globalPool.put(opts, renderer)

	return renderer.Render(content)
}

// MarkdownOrPlain renders content and falls back to the raw text when the
// renderer fails.
func MarkdownOrPlain(content string, opts Options) string {
	out, err := Markdown(content, opts)
	if err != nil {
		return content
	}
	return out
}

// MessageMarkdown returns the markdown shown for one stored message: a
// sender line, the content and the attached files as links.
func MessageMarkdown(msg history.Message) string {
	var sb strings.Builder

	who := "You"
	switch {
	case msg.IsError:
		who = "Error"
	case msg.Sender == history.SenderAI:
		who = "GLM"
	}
	fmt.Fprintf(&sb, "**%s** · %s\n\n", who, msg.Timestamp.Local().Format("2006-01-02 15:04"))

	if msg.IsError {
		fmt.Fprintf(&sb, "> %s\n", msg.Content)
	} else if msg.Content != "" {
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}

	for _, f := range msg.Files {
		if f.URL == "" || strings.HasPrefix(f.URL, "data:") {
			fmt.Fprintf(&sb, "\n- %s: %s", f.Kind, f.Name)
			continue
		}
		fmt.Fprintf(&sb, "\n- %s: [%s](%s)", f.Kind, f.Name, f.URL)
	}
	if len(msg.Files) > 0 {
		sb.WriteString("\n")
	}
	return sb.String()
}

// Message renders one stored message for the terminal.
func Message(msg history.Message, opts Options) string {
	return MarkdownOrPlain(MessageMarkdown(msg), opts)
}

// Conversation renders every message of conv separated by rules.
func Conversation(conv *history.Conversation, opts Options) string {
	parts := make([]string, 0, len(conv.Messages)+1)
	parts = append(parts, fmt.Sprintf("# %s\n", conv.Title))
	for _, m := range conv.Messages {
		parts = append(parts, MessageMarkdown(m))
	}
	return MarkdownOrPlain(strings.Join(parts, "\n---\n\n"), opts)
}
