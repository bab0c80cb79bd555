package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	// Registered decoders; the marketplace serves a mix of these formats.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Normalizer re-encodes downloaded images into a single consistent format.
// Normalize is a pure function of its input: identical bytes in, identical
// bytes out, which keeps content fingerprints stable across runs.
type Normalizer struct {
	// Quality is the JPEG quality setting (1-100)
	Quality int
}

// NewNormalizer creates a normalizer with the given JPEG quality
func NewNormalizer(quality int) *Normalizer {
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	return &Normalizer{Quality: quality}
}

// Normalize validates that data is a decodable image and re-encodes it as
// JPEG at the configured quality. Transparency is flattened onto a white
// background, matching how the marketplace renders product shots.
func (n *Normalizer) Normalize(data []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	flattened := flatten(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flattened, &jpeg.Options{Quality: n.Quality}); err != nil {
		return nil, fmt.Errorf("encode %s image as jpeg: %w", format, err)
	}

	return buf.Bytes(), nil
}

// flatten draws img over a white background, discarding any alpha channel
func flatten(img image.Image) image.Image {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)

	draw.Draw(out, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, bounds, img, bounds.Min, draw.Over)

	return out
}
