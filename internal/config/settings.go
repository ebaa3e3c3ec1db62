package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/diogo/glmchat/internal/models"
	"github.com/diogo/glmchat/internal/storage"
)

// Preset is a reusable system prompt.
type Preset struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ChatSettings holds the per-user chat parameters.
type ChatSettings struct {
	APIKey         string   `json:"apiKey"`
	Model          string   `json:"model"`
	Temperature    float64  `json:"temperature"`
	MaxTokens      int      `json:"maxTokens"`
	Presets        []Preset `json:"presets"`
	SelectedPreset string   `json:"selectedPreset"`
}

// DefaultPresets returns the presets of fresh settings.
func DefaultPresets() []Preset {
	return []Preset{
		{
			ID:      "1",
			Name:    "Customer service assistant",
			Content: "You are a friendly customer service assistant. Answer questions patiently and helpfully.",
		},
		{
			ID:      "2",
			Name:    "Technical advisor",
			Content: "You are a technical expert. Provide detailed, accurate technical answers.",
		},
	}
}

// DefaultSettings returns the settings used before the user saves any.
func DefaultSettings() ChatSettings {
	return ChatSettings{
		Model:          models.DefaultModel.ID,
		Temperature:    0.7,
		MaxTokens:      2048,
		Presets:        DefaultPresets(),
		SelectedPreset: "1",
	}
}

// LoadSettings reads the settings from the gateway, falling back to the
// defaults, and repairs a dangling preset selection.
func LoadSettings(gw *storage.Gateway) ChatSettings {
	s := storage.Get(gw, storage.KeySettings, DefaultSettings())
	s.normalize()
	return s
}

// SaveSettings validates and stores the settings.
func SaveSettings(gw *storage.Gateway, s ChatSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := storage.Set(gw, storage.KeySettings, s); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (s *ChatSettings) normalize() {
	def := DefaultSettings()
	if len(s.Presets) == 0 {
		s.Presets = def.Presets
	}
	if s.Model == "" {
		s.Model = def.Model
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = def.MaxTokens
	}
	if _, ok := s.FindPreset(s.SelectedPreset); !ok {
		s.SelectedPreset = s.Presets[0].ID
	}
}

// Validate checks the settings invariants.
func (s ChatSettings) Validate() error {
	if strings.TrimSpace(s.Model) == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if s.Temperature < 0 || s.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got %g", s.Temperature)
	}
	if s.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", s.MaxTokens)
	}
	if len(s.Presets) == 0 {
		return fmt.Errorf("at least one preset is required")
	}
	if _, ok := s.FindPreset(s.SelectedPreset); !ok {
		return fmt.Errorf("selected preset %q does not exist", s.SelectedPreset)
	}
	return nil
}

// EffectiveAPIKey returns GLMCHAT_API_KEY when set, else the stored key.
func (s ChatSettings) EffectiveAPIKey() string {
	if key := strings.TrimSpace(os.Getenv(EnvAPIKey)); key != "" {
		return key
	}
	return strings.TrimSpace(s.APIKey)
}

// SystemPrompt returns the content of the selected preset.
func (s ChatSettings) SystemPrompt() string {
	if p, ok := s.FindPreset(s.SelectedPreset); ok {
		return p.Content
	}
	return ""
}

// SettingKeys lists the keys accepted by Set.
func SettingKeys() []string {
	return []string{"api_key", "model", "temperature", "max_tokens"}
}

// Set assigns a chat setting from its string form.
func (s *ChatSettings) Set(key, value string) error {
	switch key {
	case "api_key":
		s.APIKey = strings.TrimSpace(value)
	case "model":
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("model cannot be empty")
		}
		s.Model = models.Lookup(value).ID
	case "temperature":
		t, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid temperature: %w", err)
		}
		if t < 0 || t > 1 {
			return fmt.Errorf("temperature must be between 0 and 1")
		}
		s.Temperature = t
	case "max_tokens":
		n, err := parsePositiveInt(value)
		if err != nil {
			return fmt.Errorf("invalid max_tokens: %w", err)
		}
		s.MaxTokens = n
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// MaskedAPIKey returns the key with all but the last four characters hidden.
func MaskedAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}
