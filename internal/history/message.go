// Package history provides the conversation store and export engine.
package history

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
)

// DefaultTitle marks a conversation whose title has not been derived yet.
const DefaultTitle = "New conversation"

// titleLength is the number of characters kept from the first user message.
const titleLength = 30

// Sender values.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// File kinds.
const (
	FileImage    = "image"
	FileDocument = "document"
	FileVideo    = "video"
)

// FileRef is an attachment shown alongside a message.
type FileRef struct {
	Name string `json:"name"`
	Kind string `json:"type"`
	URL  string `json:"url"`
}

// Message represents a single message in a conversation
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"` // "user" or "ai"
	Timestamp time.Time `json:"timestamp"`
	IsError   bool      `json:"isError,omitempty"`
	Files     []FileRef `json:"files,omitempty"`
}

// Conversation represents a complete chat conversation
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newMessage(sender, content string, files []FileRef) Message {
	return Message{
		ID:        shortuuid.New(),
		Content:   content,
		Sender:    sender,
		Timestamp: time.Now().UTC(),
		Files:     files,
	}
}

// NewUserMessage builds a message sent by the user.
func NewUserMessage(content string, files ...FileRef) Message {
	return newMessage(SenderUser, content, files)
}

// NewAIMessage builds a reply message.
func NewAIMessage(content string, files ...FileRef) Message {
	return newMessage(SenderAI, content, files)
}

// NewErrorMessage builds a reply message flagged as an error.
func NewErrorMessage(content string) Message {
	m := newMessage(SenderAI, content, nil)
	m.IsError = true
	return m
}

func newConversationID() string {
	return uuid.NewString()
}

// Clone returns a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	out := *c
	out.Messages = make([]Message, len(c.Messages))
	for i, m := range c.Messages {
		if m.Files != nil {
			m.Files = append([]FileRef(nil), m.Files...)
		}
		out.Messages[i] = m
	}
	return &out
}

// DeriveTitle returns the title for a list of messages: the first user
// message cut to 30 characters with "..." appended when truncated. Without
// a usable user message the placeholder is returned.
func DeriveTitle(messages []Message) string {
	for _, m := range messages {
		if m.Sender != SenderUser {
			continue
		}
		text := strings.TrimSpace(m.Content)
		if text == "" && len(m.Files) > 0 {
			text = m.Files[0].Name
		}
		if text == "" {
			continue
		}
		return truncateRunes(text, titleLength)
	}
	return DefaultTitle
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
