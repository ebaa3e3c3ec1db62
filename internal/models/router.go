package models

import (
	"fmt"

	apierrors "github.com/diogo/glmchat/internal/errors"
)

// Router decides whether a model may serve an operation. It holds no state;
// every decision is derived from the model id.
type Router struct{}

// NewRouter creates a Router
func NewRouter() *Router {
	return &Router{}
}

// Route returns the family that should serve id.
func (r *Router) Route(id string) Family {
	return Classify(id)
}

// CheckChat validates a chat request carrying imageCount images, of which
// localImages are local files that would be inlined as base64.
func (r *Router) CheckChat(id string, imageCount, localImages int) (Model, error) {
	m := Lookup(id)
	if m.Family != FamilyChat {
		return m, apierrors.NewCapabilityError(m.ID, "chat")
	}
	if imageCount > 0 && !m.Vision {
		return m, apierrors.NewModalityError(m.ID, "this model does not accept images")
	}
	if localImages > 0 && m.URLImagesOnly {
		return m, apierrors.NewModalityError(m.ID, "this model only accepts images by URL")
	}
	return m, nil
}

// CheckImage validates an image generation request.
func (r *Router) CheckImage(id string, opts ImageGenOptions) (Model, ImageGenOptions, error) {
	m := Lookup(id)
	if m.Family != FamilyImage {
		return m, opts, apierrors.NewCapabilityError(m.ID, "image generation")
	}
	opts = opts.Normalize()
	if err := opts.Validate(); err != nil {
		return m, opts, fmt.Errorf("%w: %v", apierrors.ErrInvalidRequest, err)
	}
	return m, opts, nil
}

// CheckVideo validates a video generation request.
func (r *Router) CheckVideo(id string, opts VideoGenOptions) (Model, VideoGenOptions, error) {
	m := Lookup(id)
	if m.Family != FamilyVideo {
		return m, opts, apierrors.NewCapabilityError(m.ID, "video generation")
	}
	opts = opts.Normalize()
	if err := opts.Validate(); err != nil {
		return m, opts, fmt.Errorf("%w: %v", apierrors.ErrInvalidRequest, err)
	}
	return m, opts, nil
}
