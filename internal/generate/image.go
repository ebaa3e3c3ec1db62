// Package generate runs image generation and asynchronous video jobs.
package generate

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/diogo/glmchat/internal/api"
	apierrors "github.com/diogo/glmchat/internal/errors"
	"github.com/diogo/glmchat/internal/models"
)

// ImageClient generates images. *api.Client implements it.
type ImageClient interface {
	GenerateImage(ctx context.Context, apiKey, model, prompt string, opts models.ImageGenOptions) (*api.ImageResult, error)
}

// ImageGenerator validates and sends image generation requests.
type ImageGenerator struct {
	client ImageClient
	router *models.Router
	logger *zap.Logger
}

// NewImageGenerator creates an ImageGenerator
func NewImageGenerator(client ImageClient, router *models.Router, logger *zap.Logger) *ImageGenerator {
	if router == nil {
		router = models.NewRouter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageGenerator{client: client, router: router, logger: logger}
}

// Generate returns the URL of one image generated for prompt.
func (g *ImageGenerator) Generate(ctx context.Context, apiKey, model, prompt string, opts models.ImageGenOptions) (string, error) {
	if apiKey == "" {
		return "", apierrors.ErrMissingCredential
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", apierrors.ErrEmptyPayload
	}

	m, opts, err := g.router.CheckImage(model, opts)
	if err != nil {
		return "", err
	}

	res, err := g.client.GenerateImage(ctx, apiKey, m.ID, prompt, opts)
	if err != nil {
		g.logger.Warn("image generation failed", zap.String("model", m.ID), zap.Error(err))
		return "", err
	}
	return res.URL, nil
}
