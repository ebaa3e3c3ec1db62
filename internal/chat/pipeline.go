// Package chat turns user input into chat completion requests and the
// provider's answer into display text.
package chat

import (
	"context"
	"path/filepath"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/diogo/glmchat/internal/api"
	apierrors "github.com/diogo/glmchat/internal/errors"
	"github.com/diogo/glmchat/internal/models"
)

// DefaultImagePrompt is sent when images are attached without any text.
const DefaultImagePrompt = "Describe this image."

// Attachment kinds.
const (
	KindImage    = "image"
	KindDocument = "document"
)

// Attachment is a file picked by the user. Path is a local path or an
// http(s) URL.
type Attachment struct {
	Name string
	Kind string
	Path string
}

// IsRemote reports whether the attachment points at an http(s) URL.
func (a Attachment) IsRemote() bool {
	return isHTTPURL(a.Path)
}

// IsImage reports whether the attachment is sent to the model.
func (a Attachment) IsImage() bool {
	return a.Kind == KindImage
}

// NewAttachment classifies path by its extension.
func NewAttachment(path string) Attachment {
	name := filepath.Base(path)
	if isHTTPURL(path) {
		name = filepath.Base(strings.SplitN(path, "?", 2)[0])
	}
	kind := KindDocument
	if api.ImageMIMEType(name) != "" {
		kind = KindImage
	}
	return Attachment{Name: name, Kind: kind, Path: path}
}

// Request is one user turn.
type Request struct {
	Text         string
	Attachments  []Attachment
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// Completer sends a chat completion. *api.Client implements it.
type Completer interface {
	ChatCompletion(ctx context.Context, apiKey string, req api.ChatRequest) (*api.ChatResponse, error)
}

// Pipeline validates, assembles and sends chat requests.
type Pipeline struct {
	client Completer
	router *models.Router
	logger *zap.Logger
}

// NewPipeline creates a Pipeline
func NewPipeline(client Completer, router *models.Router, logger *zap.Logger) *Pipeline {
	if router == nil {
		router = models.NewRouter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{client: client, router: router, logger: logger}
}

// Send runs the whole pipeline and returns the text to show for the answer.
func (p *Pipeline) Send(ctx context.Context, apiKey string, req Request) (string, error) {
	body, err := p.Build(apiKey, req)
	if err != nil {
		return "", err
	}

	resp, err := p.client.ChatCompletion(ctx, apiKey, body)
	if err != nil {
		p.logger.Warn("chat request failed", zap.String("model", req.Model), zap.Error(err))
		return "", err
	}
	return FormatResponse(resp), nil
}

// Build checks req against the credential and the model's capabilities and
// assembles the request body. Nothing is sent.
func (p *Pipeline) Build(apiKey string, req Request) (api.ChatRequest, error) {
	if apiKey == "" {
		return api.ChatRequest{}, apierrors.ErrMissingCredential
	}

	text := strings.TrimSpace(req.Text)
	var images []Attachment
	var documents int
	local := 0
	for _, a := range req.Attachments {
		if !a.IsImage() {
			documents++
			continue
		}
		images = append(images, a)
		if !a.IsRemote() {
			local++
		}
	}

	model := models.Lookup(req.Model)
	var sniffed []string
	if model.URLImagesOnly {
		text, sniffed = ExtractImageURLs(text)
	}

	m, err := p.router.CheckChat(req.Model, len(images)+len(sniffed), local)
	if err != nil {
		return api.ChatRequest{}, err
	}

	urls := make([]string, 0, len(images)+len(sniffed))
	for _, a := range images {
		if a.IsRemote() {
			urls = append(urls, a.Path)
			continue
		}
		dataURL, err := api.InlineImage(a.Path)
		if err != nil {
			return api.ChatRequest{}, err
		}
		urls = append(urls, dataURL)
	}
	urls = append(urls, sniffed...)

	if text == "" && len(urls) == 0 {
		return api.ChatRequest{}, apierrors.ErrEmptyPayload
	}
	if documents > 0 {
		p.logger.Debug("document attachments are not sent", zap.Int("count", documents))
	}

	var messages []api.ChatMessage
	if len(urls) == 0 {
		if prompt := strings.TrimSpace(req.SystemPrompt); prompt != "" {
			messages = append(messages, api.ChatMessage{Role: api.RoleSystem, Content: prompt})
		}
		messages = append(messages, api.ChatMessage{Role: api.RoleUser, Content: text})
	} else {
		if text == "" {
			text = DefaultImagePrompt
		}
		parts := []api.ContentPart{api.TextPart(text)}
		for _, u := range urls {
			parts = append(parts, api.ImagePart(u))
		}
		messages = append(messages, api.ChatMessage{Role: api.RoleUser, Content: parts})
	}

	return api.NewChatRequest(m.ID, messages, req.Temperature, req.MaxTokens), nil
}

var imageURLSuffixes = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"}

// ExtractImageURLs splits whitespace-separated tokens that look like image
// URLs out of text. A token qualifies when it starts with http:// or
// https:// and its path ends in an image extension; this is a heuristic and
// misses extension-less image links. Only the matched tokens and the spaces
// in front of them are removed, so line breaks survive.
func ExtractImageURLs(text string) (string, []string) {
	var b strings.Builder
	var urls []string
	rest := text
	for rest != "" {
		start := strings.IndexFunc(rest, func(r rune) bool { return !unicode.IsSpace(r) })
		if start < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:start])
		rest = rest[start:]

		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			end = len(rest)
		}
		tok := rest[:end]
		rest = rest[end:]

		if !looksLikeImageURL(tok) {
			b.WriteString(tok)
			continue
		}
		urls = append(urls, tok)
		kept := strings.TrimRight(b.String(), " \t")
		b.Reset()
		b.WriteString(kept)
	}
	if len(urls) == 0 {
		return text, nil
	}
	return strings.TrimSpace(b.String()), urls
}

func looksLikeImageURL(tok string) bool {
	if !isHTTPURL(tok) {
		return false
	}
	path := strings.ToLower(strings.SplitN(strings.SplitN(tok, "?", 2)[0], "#", 2)[0])
	for _, suffix := range imageURLSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

func isHTTPURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
