package imaging_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/lunapredict/luna-api/internal/pkg/imaging"
)

// minimalWebP is a 1x1 lossless WebP (VP8L) file.
var minimalWebP = []byte{
	0x52, 0x49, 0x46, 0x46, 0x16, 0x00, 0x00, 0x00, // RIFF, size 22
	0x57, 0x45, 0x42, 0x50, // WEBP
	0x56, 0x50, 0x38, 0x4c, 0x09, 0x00, 0x00, 0x00, // VP8L, size 9
	0x2f, 0x00, 0x00, 0x00, 0x00, 0x88, 0x88, 0x08, // bitstream
	0x00, // pad
}

func pngChart(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 20, G: 160, B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestProcessWebP(t *testing.T) {
	p := imaging.NewProcessor(imaging.DefaultConfig())

	got, err := p.Process(bytes.NewReader(minimalWebP))
	if err != nil {
		t.Fatalf("Process(webp) error: %v", err)
	}
	if got.Width != 1 || got.Height != 1 {
		t.Fatalf("expected 1x1, got %dx%d", got.Width, got.Height)
	}
	// WebP input is re-encoded, the content type must name the output format.
	if got.ContentType != "image/jpeg" {
		t.Fatalf("expected image/jpeg content type, got %s", got.ContentType)
	}
	if len(got.Data) == 0 {
		t.Fatal("expected re-encoded image data")
	}
}

func TestProcessKeepsSmallPNG(t *testing.T) {
	p := imaging.NewProcessor(imaging.DefaultConfig())

	got, err := p.Process(bytes.NewReader(pngChart(t, 32, 16)))
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if got.Width != 32 || got.Height != 16 {
		t.Fatalf("expected 32x16, got %dx%d", got.Width, got.Height)
	}
	if got.ContentType != "image/png" {
		t.Fatalf("expected image/png content type, got %s", got.ContentType)
	}
}

func TestProcessDownscalesOversized(t *testing.T) {
	p := imaging.NewProcessor(imaging.Config{MaxWidth: 16, MaxHeight: 16, Quality: 85})

	got, err := p.Process(bytes.NewReader(pngChart(t, 64, 32)))
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if got.Width != 16 || got.Height != 8 {
		t.Fatalf("expected fit to 16x8, got %dx%d", got.Width, got.Height)
	}
}

func TestProcessRejectsGarbage(t *testing.T) {
	p := imaging.NewProcessor(imaging.DefaultConfig())

	if _, err := p.Process(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Fatal("expected an error for undecodable input")
	}
}

func TestValidateType(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{"chart.png", true},
		{"chart.webp", true},
		{"chart.JPG", true},
		{"chart.gif", false},
		{"chart", false},
	}
	for _, c := range cases {
		if got := imaging.ValidateType(c.name); got != c.ok {
			t.Errorf("ValidateType(%q) = %v, want %v", c.name, got, c.ok)
		}
	}
}
