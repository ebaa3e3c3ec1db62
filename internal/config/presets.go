package config

import (
	"fmt"
	"strings"

	"github.com/lithammer/shortuuid/v4"

	apierrors "github.com/diogo/glmchat/internal/errors"
)

// FindPreset returns the preset with the given id.
func (s ChatSettings) FindPreset(id string) (Preset, bool) {
	for _, p := range s.Presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// ResolvePreset finds a preset by id or, failing that, by name
// (case-insensitive).
func (s ChatSettings) ResolvePreset(ref string) (Preset, bool) {
	if p, ok := s.FindPreset(ref); ok {
		return p, true
	}
	for _, p := range s.Presets {
		if strings.EqualFold(p.Name, ref) {
			return p, true
		}
	}
	return Preset{}, false
}

func validatePreset(name, content string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("preset name cannot be empty")
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("preset content cannot be empty")
	}
	return nil
}

// AddPreset appends a new preset and selects it.
func (s *ChatSettings) AddPreset(name, content string) (Preset, error) {
	if err := validatePreset(name, content); err != nil {
		return Preset{}, err
	}
	p := Preset{
		ID:      shortuuid.New(),
		Name:    strings.TrimSpace(name),
		Content: strings.TrimSpace(content),
	}
	s.Presets = append(s.Presets, p)
	s.SelectedPreset = p.ID
	return p, nil
}

// UpdatePreset replaces the name and content of preset id.
func (s *ChatSettings) UpdatePreset(id, name, content string) error {
	if err := validatePreset(name, content); err != nil {
		return err
	}
	for i := range s.Presets {
		if s.Presets[i].ID == id {
			s.Presets[i].Name = strings.TrimSpace(name)
			s.Presets[i].Content = strings.TrimSpace(content)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", apierrors.ErrPresetNotFound, id)
}

// DeletePreset removes preset id. The last preset cannot be removed;
// removing the selected preset selects the first remaining one.
func (s *ChatSettings) DeletePreset(id string) error {
	idx := -1
	for i, p := range s.Presets {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", apierrors.ErrPresetNotFound, id)
	}
	if len(s.Presets) <= 1 {
		return apierrors.ErrPresetRequired
	}

	s.Presets = append(s.Presets[:idx:idx], s.Presets[idx+1:]...)
	if s.SelectedPreset == id {
		s.SelectedPreset = s.Presets[0].ID
	}
	return nil
}

// SelectPreset marks preset id as selected.
func (s *ChatSettings) SelectPreset(id string) error {
	if _, ok := s.FindPreset(id); !ok {
		return fmt.Errorf("%w: %s", apierrors.ErrPresetNotFound, id)
	}
	s.SelectedPreset = id
	return nil
}
