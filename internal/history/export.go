package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	apierrors "github.com/diogo/glmchat/internal/errors"
)

// ExportVersion is written into every export document.
const ExportVersion = "1.0"

const (
	exportTitleLength = 20
	exportStampLayout = "20060102-150405"
)

// ExportDocument is the JSON artifact produced by an export.
type ExportDocument struct {
	ExportTime         time.Time       `json:"exportTime"`
	Version            string          `json:"version"`
	TotalConversations int             `json:"totalConversations"`
	Conversations      []*Conversation `json:"conversations"`
}

// ExportSelected builds an export of the conversations whose ids are listed,
// in store order, plus the file name it should be saved under.
func (s *Store) ExportSelected(ids []string) (*ExportDocument, string, error) {
	if len(ids) == 0 {
		return nil, "", apierrors.ErrNothingSelected
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	all, err := s.List()
	if err != nil {
		return nil, "", err
	}

	var selected []*Conversation
	for _, conv := range all {
		if wanted[conv.ID] {
			selected = append(selected, conv)
		}
	}
	if len(selected) == 0 {
		return nil, "", apierrors.ErrNothingSelected
	}

	now := s.now()
	doc := &ExportDocument{
		ExportTime:         now,
		Version:            ExportVersion,
		TotalConversations: len(selected),
		Conversations:      selected,
	}
	return doc, ExportFilename(selected, now), nil
}

// ExportAll exports every stored conversation.
func (s *Store) ExportAll() (*ExportDocument, string, error) {
	all, err := s.List()
	if err != nil {
		return nil, "", err
	}
	ids := make([]string, len(all))
	for i, conv := range all {
		ids[i] = conv.ID
	}
	return s.ExportSelected(ids)
}

// ExportFilename names an export: the truncated title for a single
// conversation, the count otherwise, followed by a timestamp.
func ExportFilename(convs []*Conversation, at time.Time) string {
	stamp := at.Format(exportStampLayout)
	if len(convs) == 1 {
		title := sanitizeFilename(convs[0].Title)
		if r := []rune(title); len(r) > exportTitleLength {
			title = string(r[:exportTitleLength])
		}
		if title == "" {
			title = "conversation"
		}
		return fmt.Sprintf("chat-%s-%s.json", title, stamp)
	}
	return fmt.Sprintf("chats-%d-%s.json", len(convs), stamp)
}

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\s]+`)

func sanitizeFilename(name string) string {
	name = strings.TrimSuffix(strings.TrimSpace(name), "...")
	safe := unsafeFilenameChars.ReplaceAllString(name, "_")
	return strings.Trim(safe, "_.")
}

// WriteExport writes doc as indented JSON into dir and returns the path.
func WriteExport(dir, filename string, doc *ExportDocument) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode export: %w", err)
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

// ExportMarkdown renders a conversation as a Markdown document.
func (s *Store) ExportMarkdown(id string) (string, error) {
	conv, err := s.Get(id)
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	sb.WriteString("# ")
	sb.WriteString(conv.Title)
	sb.WriteString("\n\n")

	sb.WriteString("**Created:** ")
	sb.WriteString(conv.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	sb.WriteString("\n")
	sb.WriteString("**Updated:** ")
	sb.WriteString(conv.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "**Messages:** %d\n\n---\n\n", len(conv.Messages))

	for i, msg := range conv.Messages {
		role := "User"
		if msg.Sender == SenderAI {
			role = "Assistant"
		}
		if msg.IsError {
			role += " (error)"
		}

		sb.WriteString("## ")
		sb.WriteString(role)
		if !msg.Timestamp.IsZero() {
			sb.WriteString(" (")
			sb.WriteString(msg.Timestamp.Local().Format("15:04:05"))
			sb.WriteString(")")
		}
		sb.WriteString("\n\n")

		sb.WriteString(msg.Content)
		sb.WriteString("\n")

		for _, f := range msg.Files {
			if f.URL == "" || strings.HasPrefix(f.URL, "data:") {
				fmt.Fprintf(&sb, "\n- %s: %s\n", f.Kind, f.Name)
				continue
			}
			fmt.Fprintf(&sb, "\n- %s: [%s](%s)\n", f.Kind, f.Name, f.URL)
		}

		if i < len(conv.Messages)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return sb.String(), nil
}

// SearchResult represents a search match in conversations
type SearchResult struct {
	Conversation *Conversation
	MatchSnippet string // Snippet where the term was found
	MatchField   string // "title" or "content"
	MatchIndex   int    // Message index if MatchField is "content", -1 for title
}

// Search looks for query in titles and, when searchContent is set, in
// message content. At most one result per conversation.
func (s *Store) Search(query string, searchContent bool) ([]*SearchResult, error) {
	conversations, err := s.List()
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(query)
	var results []*SearchResult

	for _, conv := range conversations {
		if strings.Contains(strings.ToLower(conv.Title), queryLower) {
			results = append(results, &SearchResult{
				Conversation: conv,
				MatchSnippet: conv.Title,
				MatchField:   "title",
				MatchIndex:   -1,
			})
			continue
		}

		if !searchContent {
			continue
		}
		for i, msg := range conv.Messages {
			if strings.Contains(strings.ToLower(msg.Content), queryLower) {
				results = append(results, &SearchResult{
					Conversation: conv,
					MatchSnippet: extractSnippet(msg.Content, query, 100),
					MatchField:   "content",
					MatchIndex:   i,
				})
				break
			}
		}
	}

	return results, nil
}

// extractSnippet extracts a snippet of roughly maxLen runes around the first
// occurrence of query.
func extractSnippet(content, query string, maxLen int) string {
	runes := []rune(content)
	idx := strings.Index(strings.ToLower(content), strings.ToLower(query))
	if idx == -1 {
		if len(runes) > maxLen {
			return string(runes[:maxLen]) + "..."
		}
		return content
	}

	pos := len([]rune(content[:idx]))
	half := maxLen / 2
	start := pos - half
	end := pos + len([]rune(query)) + half

	if start < 0 {
		start = 0
		end = maxLen
	}
	if end > len(runes) {
		end = len(runes)
		start = end - maxLen
		if start < 0 {
			start = 0
		}
	}

	snippet := string(runes[start:end])
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(runes) {
		snippet += "..."
	}
	return snippet
}

// FormatRelativeTime formats a time as "5 min ago", "yesterday" and so on.
func FormatRelativeTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%d min ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 48*time.Hour:
		return "yesterday"
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	default:
		return t.Local().Format("2006-01-02")
	}
}
