package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func solidImage(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestNormalizeJPEGInput(t *testing.T) {
	n := NewNormalizer(95)

	out, err := n.Normalize(encodeJPEG(t, solidImage(color.RGBA{R: 200, G: 10, B: 10, A: 255})))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decoded, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not decodable: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("expected jpeg output, got %s", format)
	}
	if decoded.Bounds().Dx() != 8 || decoded.Bounds().Dy() != 8 {
		t.Errorf("unexpected output dimensions: %v", decoded.Bounds())
	}
}

func TestNormalizePNGWithAlpha(t *testing.T) {
	n := NewNormalizer(95)

	// Fully transparent image should flatten to white
	out, err := n.Normalize(encodePNG(t, solidImage(color.RGBA{A: 0})))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decoded, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}

	r, g, b, _ := decoded.At(4, 4).RGBA()
	// JPEG is lossy; white should still be near full brightness
	if r < 0xf000 || g < 0xf000 || b < 0xf000 {
		t.Errorf("transparent pixel not flattened to white: r=%x g=%x b=%x", r, g, b)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	n := NewNormalizer(80)
	in := encodePNG(t, solidImage(color.RGBA{R: 30, G: 60, B: 90, A: 255}))

	first, err := n.Normalize(in)
	if err != nil {
		t.Fatal(err)
	}
	second, err := n.Normalize(in)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Error("Normalize must be deterministic for identical input")
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	n := NewNormalizer(95)

	if _, err := n.Normalize([]byte("<html>not an image</html>")); err == nil {
		t.Error("expected error for non-image payload")
	}
	if _, err := n.Normalize(nil); err == nil {
		t.Error("expected error for empty payload")
	}
}

func TestNewNormalizerClampsQuality(t *testing.T) {
	if n := NewNormalizer(0); n.Quality != jpeg.DefaultQuality {
		t.Errorf("quality 0 should fall back to default, got %d", n.Quality)
	}
	if n := NewNormalizer(101); n.Quality != jpeg.DefaultQuality {
		t.Errorf("quality 101 should fall back to default, got %d", n.Quality)
	}
	if n := NewNormalizer(95); n.Quality != 95 {
		t.Errorf("valid quality should be kept, got %d", n.Quality)
	}
}
