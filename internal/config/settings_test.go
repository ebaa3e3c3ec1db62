package config

import (
	"errors"
	"testing"

	apierrors "github.com/diogo/glmchat/internal/errors"
	"github.com/diogo/glmchat/internal/storage"
)

func newGateway() *storage.Gateway {
	return storage.NewGateway(storage.NewMemoryBackend(), nil)
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	if s.Model != "glm-4.1v-thinking-flash" {
		t.Errorf("Model = %s", s.Model)
	}
	if s.Temperature != 0.7 || s.MaxTokens != 2048 {
		t.Errorf("Temperature/MaxTokens = %g/%d", s.Temperature, s.MaxTokens)
	}
	if len(s.Presets) != 2 || s.SelectedPreset != "1" {
		t.Errorf("Presets = %d, SelectedPreset = %s", len(s.Presets), s.SelectedPreset)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadSettingsDefaultsWhenMissing(t *testing.T) {
	gw := newGateway()
	s := LoadSettings(gw)
	if s.Model != DefaultSettings().Model {
		t.Errorf("Model = %s", s.Model)
	}
}

func TestSaveAndLoadSettings(t *testing.T) {
	gw := newGateway()

	s := DefaultSettings()
	s.APIKey = "abc.def"
	s.Temperature = 0.2
	if _, err := s.AddPreset("Poet", "Answer in verse."); err != nil {
		t.Fatal(err)
	}
	if err := SaveSettings(gw, s); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}

	got := LoadSettings(gw)
	if got.APIKey != "abc.def" || got.Temperature != 0.2 {
		t.Errorf("LoadSettings() = %+v", got)
	}
	if got.SystemPrompt() != "Answer in verse." {
		t.Errorf("SystemPrompt() = %q", got.SystemPrompt())
	}
}

func TestLoadSettingsRepairsDanglingSelection(t *testing.T) {
	gw := newGateway()
	s := DefaultSettings()
	s.SelectedPreset = "gone"
	if err := storage.Set(gw, storage.KeySettings, s); err != nil {
		t.Fatal(err)
	}

	got := LoadSettings(gw)
	if got.SelectedPreset != "1" {
		t.Errorf("SelectedPreset = %s, want 1", got.SelectedPreset)
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ChatSettings)
	}{
		{"empty model", func(s *ChatSettings) { s.Model = "" }},
		{"temperature high", func(s *ChatSettings) { s.Temperature = 1.5 }},
		{"temperature negative", func(s *ChatSettings) { s.Temperature = -0.1 }},
		{"max tokens", func(s *ChatSettings) { s.MaxTokens = 0 }},
		{"no presets", func(s *ChatSettings) { s.Presets = nil }},
		{"bad selection", func(s *ChatSettings) { s.SelectedPreset = "x" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			if err := s.Validate(); err == nil {
				t.Error("expected validation error")
			}
			if err := SaveSettings(newGateway(), s); err == nil {
				t.Error("SaveSettings should reject invalid settings")
			}
		})
	}
}

func TestEffectiveAPIKey(t *testing.T) {
	s := DefaultSettings()
	s.APIKey = " stored "

	t.Setenv(EnvAPIKey, "")
	if got := s.EffectiveAPIKey(); got != "stored" {
		t.Errorf("EffectiveAPIKey() = %q, want stored", got)
	}

	t.Setenv(EnvAPIKey, "from-env")
	if got := s.EffectiveAPIKey(); got != "from-env" {
		t.Errorf("EffectiveAPIKey() = %q, want from-env", got)
	}
}

func TestSettingsSet(t *testing.T) {
	s := DefaultSettings()

	if err := s.Set("model", "GLM-4V-Flash"); err != nil {
		t.Fatal(err)
	}
	if s.Model != "glm-4v-flash" {
		t.Errorf("Model = %s", s.Model)
	}
	if err := s.Set("temperature", "1.2"); err == nil {
		t.Error("temperature above 1 should fail")
	}
	if err := s.Set("max_tokens", "512"); err != nil || s.MaxTokens != 512 {
		t.Errorf("max_tokens: err = %v, value = %d", err, s.MaxTokens)
	}
	if err := s.Set("colour", "blue"); err == nil {
		t.Error("unknown key should fail")
	}
}

func TestMaskedAPIKey(t *testing.T) {
	if got := MaskedAPIKey(""); got != "(not set)" {
		t.Errorf("MaskedAPIKey(\"\") = %s", got)
	}
	if got := MaskedAPIKey("abcdefgh1234"); got != "********1234" {
		t.Errorf("MaskedAPIKey() = %s", got)
	}
}

func TestPresetLifecycle(t *testing.T) {
	s := DefaultSettings()

	p, err := s.AddPreset("  Reviewer ", " Review code. ")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Reviewer" || s.SelectedPreset != p.ID {
		t.Errorf("AddPreset() = %+v, selected %s", p, s.SelectedPreset)
	}
	if _, err := s.AddPreset("", "x"); err == nil {
		t.Error("empty name should fail")
	}
	if _, err := s.AddPreset("x", " "); err == nil {
		t.Error("empty content should fail")
	}

	if err := s.UpdatePreset(p.ID, "Reviewer", "Review Go code."); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.FindPreset(p.ID); got.Content != "Review Go code." {
		t.Errorf("content = %q", got.Content)
	}
	if err := s.UpdatePreset("missing", "a", "b"); !errors.Is(err, apierrors.ErrPresetNotFound) {
		t.Errorf("UpdatePreset(missing) error = %v", err)
	}

	if got, ok := s.ResolvePreset("reviewer"); !ok || got.ID != p.ID {
		t.Errorf("ResolvePreset by name = %+v, %v", got, ok)
	}

	if err := s.SelectPreset("2"); err != nil {
		t.Fatal(err)
	}
	if err := s.SelectPreset("missing"); !errors.Is(err, apierrors.ErrPresetNotFound) {
		t.Errorf("SelectPreset(missing) error = %v", err)
	}
}

func TestDeletePreset(t *testing.T) {
	s := DefaultSettings()
	s.SelectedPreset = "2"

	if err := s.DeletePreset("2"); err != nil {
		t.Fatalf("DeletePreset() error = %v", err)
	}
	if s.SelectedPreset != "1" {
		t.Errorf("SelectedPreset = %s, want first remaining", s.SelectedPreset)
	}

	err := s.DeletePreset("1")
	if !errors.Is(err, apierrors.ErrPresetRequired) {
		t.Errorf("deleting last preset error = %v, want ErrPresetRequired", err)
	}
	if len(s.Presets) != 1 {
		t.Errorf("len(Presets) = %d, want 1", len(s.Presets))
	}

	if err := s.DeletePreset("missing"); !errors.Is(err, apierrors.ErrPresetNotFound) {
		t.Errorf("DeletePreset(missing) error = %v", err)
	}
}

func TestDeletePresetKeepsOtherSelection(t *testing.T) {
	s := DefaultSettings()
	original := append([]Preset(nil), s.Presets...)

	if err := s.DeletePreset("2"); err != nil {
		t.Fatal(err)
	}
	if s.SelectedPreset != "1" {
		t.Errorf("SelectedPreset = %s", s.SelectedPreset)
	}
	if original[1].ID != "2" {
		t.Error("DeletePreset must not mutate the previous backing array")
	}
}
