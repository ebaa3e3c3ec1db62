package chat

import (
	"strings"

	"github.com/diogo/glmchat/internal/api"
)

const (
	boxOpen  = "<|begin_of_box|>"
	boxClose = "<|end_of_box|>"
)

// FormatResponse renders a completion as markdown. A reasoning trace is put
// in its own section above the answer.
func FormatResponse(resp *api.ChatResponse) string {
	content := strings.TrimSpace(replaceBoxMarkup(resp.Content))
	reasoning := strings.TrimSpace(resp.ReasoningContent)
	if reasoning == "" {
		return content
	}

	var sb strings.Builder
	sb.WriteString("**Reasoning:**\n\n")
	sb.WriteString(reasoning)
	sb.WriteString("\n\n---\n\n**Answer:**\n\n")
	sb.WriteString(content)
	return sb.String()
}

func replaceBoxMarkup(s string) string {
	return strings.NewReplacer(boxOpen, "**", boxClose, "**").Replace(s)
}
