package models

import (
	"errors"
	"testing"

	apierrors "github.com/diogo/glmchat/internal/errors"
)

func TestAllModels(t *testing.T) {
	models := AllModels()

	if len(models) != 6 {
		t.Errorf("AllModels() returned %d models, expected 6", len(models))
	}

	for _, model := range models {
		if model.ID == "" {
			t.Error("Model id should not be empty")
		}
		if model.Family != Classify(model.ID) {
			t.Errorf("%s: Family = %s, Classify = %s", model.ID, model.Family, Classify(model.ID))
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		id   string
		want Family
	}{
		{"cogview-3-flash", FamilyImage},
		{"CogView-3-Flash", FamilyImage},
		{"cogvideox-flash", FamilyVideo},
		{"CogVideoX-Flash", FamilyVideo},
		{"glm-4-flash-250414", FamilyChat},
		{"glm-4.1v-thinking-flash", FamilyChat},
		{"something-else", FamilyChat},
		{"", FamilyChat},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := Classify(tt.id); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.id, got, tt.want)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	if m := Lookup("GLM-4V-Flash"); m.ID != ModelGLM4VFlash.ID || !m.URLImagesOnly {
		t.Errorf("Lookup(GLM-4V-Flash) = %+v", m)
	}
	if m := Lookup("glm-4.5v-preview"); !m.Vision || m.Family != FamilyChat {
		t.Errorf("inferred model should be vision chat: %+v", m)
	}
	if m := Lookup("glm-4-plus"); m.Vision {
		t.Errorf("glm-4-plus should not be vision: %+v", m)
	}
	if !IsKnown("cogview-3-flash") || IsKnown("glm-4-plus") {
		t.Error("IsKnown mismatch")
	}
}

func TestRouterCheckChat(t *testing.T) {
	r := NewRouter()

	tests := []struct {
		name   string
		model  string
		images int
		local  int
		want   error
	}{
		{"text only", "glm-4-flash-250414", 0, 0, nil},
		{"text model with image", "glm-4-flash-250414", 1, 1, apierrors.ErrModalityUnsupported},
		{"vision model inline", "glm-4.1v-thinking-flash", 2, 2, nil},
		{"url only with local file", "glm-4v-flash", 1, 1, apierrors.ErrModalityUnsupported},
		{"url only with url", "glm-4v-flash", 1, 0, nil},
		{"image model", "cogview-3-flash", 0, 0, apierrors.ErrUnsupportedCapability},
		{"video model", "cogvideox-flash", 0, 0, apierrors.ErrUnsupportedCapability},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.CheckChat(tt.model, tt.images, tt.local)
			if tt.want == nil {
				if err != nil {
					t.Errorf("CheckChat() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("CheckChat() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRouterCheckImage(t *testing.T) {
	r := NewRouter()

	_, opts, err := r.CheckImage("cogview-3-flash", ImageGenOptions{})
	if err != nil {
		t.Fatalf("CheckImage() error = %v", err)
	}
	if opts != DefaultImageGenOptions() {
		t.Errorf("opts = %+v, want defaults", opts)
	}

	if _, _, err := r.CheckImage("glm-4-flash-250414", ImageGenOptions{}); !errors.Is(err, apierrors.ErrUnsupportedCapability) {
		t.Errorf("chat model: err = %v", err)
	}
	if _, _, err := r.CheckImage("cogview-3-flash", ImageGenOptions{Quality: "ultra"}); !errors.Is(err, apierrors.ErrInvalidRequest) {
		t.Errorf("bad quality: err = %v", err)
	}
	if _, _, err := r.CheckImage("cogview-3-flash", ImageGenOptions{Size: "big"}); !errors.Is(err, apierrors.ErrInvalidRequest) {
		t.Errorf("bad size: err = %v", err)
	}
}

func TestRouterCheckVideo(t *testing.T) {
	r := NewRouter()

	_, opts, err := r.CheckVideo("cogvideox-flash", VideoGenOptions{WithAudio: true})
	if err != nil {
		t.Fatalf("CheckVideo() error = %v", err)
	}
	if opts.Quality != VideoQualitySpeed || !opts.WithAudio {
		t.Errorf("opts = %+v", opts)
	}
	if _, _, err := r.CheckVideo("cogview-3-flash", VideoGenOptions{}); !errors.Is(err, apierrors.ErrUnsupportedCapability) {
		t.Errorf("image model: err = %v", err)
	}
	if _, _, err := r.CheckVideo("cogvideox-flash", VideoGenOptions{Quality: "hd"}); !errors.Is(err, apierrors.ErrInvalidRequest) {
		t.Errorf("bad quality: err = %v", err)
	}
}
