// Package models contains the model registry, endpoints and routing rules
// for the BigModel open platform.
package models

import "strings"

// Default API location and relative endpoints.
const (
	DefaultBaseURL = "https://open.bigmodel.cn/api/paas/v4"

	EndpointChat        = "/chat/completions"
	EndpointImages      = "/images/generations"
	EndpointVideos      = "/videos/generations"
	EndpointAsyncResult = "/async-result/"
)

// MaxImageSize is the ceiling for a single inlined image.
const MaxImageSize = 5 * 1024 * 1024

// Family is the kind of remote operation a model serves.
type Family string

const (
	FamilyChat  Family = "chat"
	FamilyImage Family = "image-generation"
	FamilyVideo Family = "video-generation"
)

// Model describes an entry of the registry.
type Model struct {
	ID          string
	DisplayName string
	Family      Family
	// Vision models accept image input.
	Vision bool
	// URLImagesOnly models reject inline base64 images.
	URLImagesOnly bool
	// Reasoning models may return a reasoning_content trace.
	Reasoning bool
}

// Known models.
var (
	ModelGLM41VThinking = Model{
		ID:          "glm-4.1v-thinking-flash",
		DisplayName: "GLM-4.1V-Thinking",
		Family:      FamilyChat,
		Vision:      true,
		Reasoning:   true,
	}

	ModelGLM4Flash = Model{
		ID:          "glm-4-flash-250414",
		DisplayName: "GLM-4-Flash-250414",
		Family:      FamilyChat,
	}

	ModelGLM4VFlash = Model{
		ID:            "glm-4v-flash",
		DisplayName:   "GLM-4V-Flash",
		Family:        FamilyChat,
		Vision:        true,
		URLImagesOnly: true,
	}

	ModelGLMZ1Flash = Model{
		ID:          "glm-z1-flash",
		DisplayName: "GLM-Z1-Flash",
		Family:      FamilyChat,
		Reasoning:   true,
	}

	ModelCogView3Flash = Model{
		ID:          "cogview-3-flash",
		DisplayName: "CogView-3-Flash",
		Family:      FamilyImage,
	}

	ModelCogVideoXFlash = Model{
		ID:          "cogvideox-flash",
		DisplayName: "CogVideoX-Flash",
		Family:      FamilyVideo,
	}

	// DefaultModel is used for fresh settings.
	DefaultModel = ModelGLM41VThinking
)

// AllModels returns the registry in display order.
func AllModels() []Model {
	return []Model{
		ModelGLM41VThinking,
		ModelGLM4Flash,
		ModelGLM4VFlash,
		ModelGLMZ1Flash,
		ModelCogView3Flash,
		ModelCogVideoXFlash,
	}
}

// Classify derives the family from the model id alone.
func Classify(id string) Family {
	id = strings.ToLower(id)
	switch {
	case strings.Contains(id, "cogview"):
		return FamilyImage
	case strings.Contains(id, "cogvideo"):
		return FamilyVideo
	default:
		return FamilyChat
	}
}

var visionMarkers = []string{"4v", "4.1v", "4.5v", "vision"}

// Lookup returns the registry entry for id, matching either the id or the
// display name case-insensitively. Unknown ids get capabilities inferred from
// their name.
func Lookup(id string) Model {
	for _, m := range AllModels() {
		if strings.EqualFold(m.ID, id) || strings.EqualFold(m.DisplayName, id) {
			return m
		}
	}

	lower := strings.ToLower(id)
	m := Model{ID: lower, DisplayName: id, Family: Classify(lower)}
	if m.Family == FamilyChat {
		for _, marker := range visionMarkers {
			if strings.Contains(lower, marker) {
				m.Vision = true
				break
			}
		}
		m.Reasoning = strings.Contains(lower, "thinking") || strings.Contains(lower, "z1")
	}
	return m
}

// IsKnown reports whether id names a registry entry.
func IsKnown(id string) bool {
	for _, m := range AllModels() {
		if strings.EqualFold(m.ID, id) || strings.EqualFold(m.DisplayName, id) {
			return true
		}
	}
	return false
}

// DefaultHeaders returns the headers sent on every API request.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"User-Agent":   "glmchat/1.0",
	}
}
