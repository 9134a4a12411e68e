// Package imageprep turns uploaded image bytes into a payload the captioning
// model accepts, downscaling oversized images.
package imageprep

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"image-captioner/internal/domain"
)

const jpegQuality = 85

var mediaTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
}

// Prepare returns data unchanged when its longest edge fits within maxEdge.
// Larger images are resized to fit a maxEdge square with Lanczos resampling
// and re-encoded as JPEG.
func Prepare(data []byte, maxEdge int) (domain.Image, error) {
	if len(data) == 0 {
		return domain.Image{}, errors.New("imageprep: empty image")
	}
	if maxEdge <= 0 {
		return domain.Image{}, errors.New("imageprep: max edge must be positive")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return domain.Image{}, fmt.Errorf("imageprep: decode config: %w", err)
	}
	mediaType, ok := mediaTypes[format]
	if !ok {
		return domain.Image{}, fmt.Errorf("imageprep: unsupported format %q", format)
	}
	if cfg.Width <= maxEdge && cfg.Height <= maxEdge {
		return domain.Image{MediaType: mediaType, Data: data}, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return domain.Image{}, fmt.Errorf("imageprep: decode: %w", err)
	}
	resized := imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return domain.Image{}, fmt.Errorf("imageprep: encode jpeg: %w", err)
	}
	return domain.Image{MediaType: "image/jpeg", Data: buf.Bytes()}, nil
}
