package models

import (
	"fmt"
	"regexp"
)

// Image generation qualities.
const (
	ImageQualityStandard = "standard"
	ImageQualityHD       = "hd"

	DefaultImageSize = "1024x1024"
)

// Video generation qualities.
const (
	VideoQualitySpeed   = "speed"
	VideoQualityQuality = "quality"
)

var sizePattern = regexp.MustCompile(`^[1-9][0-9]{1,4}x[1-9][0-9]{1,4}$`)

// ImageGenOptions are the options of an image generation request.
type ImageGenOptions struct {
	Quality string
	Size    string
}

// DefaultImageGenOptions returns standard quality at 1024x1024.
func DefaultImageGenOptions() ImageGenOptions {
	return ImageGenOptions{Quality: ImageQualityStandard, Size: DefaultImageSize}
}

// Normalize fills empty fields with defaults.
func (o ImageGenOptions) Normalize() ImageGenOptions {
	if o.Quality == "" {
		o.Quality = ImageQualityStandard
	}
	if o.Size == "" {
		o.Size = DefaultImageSize
	}
	return o
}

// Validate checks the quality and size.
func (o ImageGenOptions) Validate() error {
	if o.Quality != ImageQualityStandard && o.Quality != ImageQualityHD {
		return fmt.Errorf("invalid image quality %q: must be %s or %s", o.Quality, ImageQualityStandard, ImageQualityHD)
	}
	if !sizePattern.MatchString(o.Size) {
		return fmt.Errorf("invalid image size %q: expected WIDTHxHEIGHT", o.Size)
	}
	return nil
}

// VideoGenOptions are the options of a video generation request. ImageURL is
// an http(s) URL or a data URL used as the first frame.
type VideoGenOptions struct {
	Quality   string
	WithAudio bool
	ImageURL  string
}

// DefaultVideoGenOptions returns speed quality without audio.
func DefaultVideoGenOptions() VideoGenOptions {
	return VideoGenOptions{Quality: VideoQualitySpeed}
}

// Normalize fills empty fields with defaults.
func (o VideoGenOptions) Normalize() VideoGenOptions {
	if o.Quality == "" {
		o.Quality = VideoQualitySpeed
	}
	return o
}

// Validate checks the quality.
func (o VideoGenOptions) Validate() error {
	if o.Quality != VideoQualitySpeed && o.Quality != VideoQualityQuality {
		return fmt.Errorf("invalid video quality %q: must be %s or %s", o.Quality, VideoQualitySpeed, VideoQualityQuality)
	}
	return nil
}
