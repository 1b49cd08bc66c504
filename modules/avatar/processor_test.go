package avatar

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/chai2010/webp"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestProcess(t *testing.T) {
	tests := []struct {
		name     string
		w, h     int
		wantSide int
	}{
		{name: "landscape larger than box", w: 1024, h: 512, wantSide: 256},
		{name: "portrait larger than box", w: 300, h: 900, wantSide: 170},
		{name: "square", w: 600, h: 600, wantSide: 512},
		{name: "small image is not upscaled", w: 64, h: 48, wantSide: 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Process(encodePNG(t, tt.w, tt.h))
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}

			img, err := webp.Decode(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("output is not webp: %v", err)
			}
			b := img.Bounds()
			if b.Dx() != b.Dy() {
				t.Errorf("output is %dx%d, want square", b.Dx(), b.Dy())
			}
			if b.Dx() > AvatarSize {
				t.Errorf("output side %d exceeds %d", b.Dx(), AvatarSize)
			}
			if diff := b.Dx() - tt.wantSide; diff < -1 || diff > 1 {
				t.Errorf("output side = %d, want about %d", b.Dx(), tt.wantSide)
			}
		})
	}
}

func TestProcess_Rejects(t *testing.T) {
	if _, err := Process([]byte("definitely not an image")); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("garbage input error = %v, want ErrInvalidImage", err)
	}
	if _, err := Process(make([]byte, MaxUploadSize+1)); !errors.Is(err, ErrTooLarge) {
		t.Errorf("oversized input error = %v, want ErrTooLarge", err)
	}
}

func TestIsAllowedType(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"image/png", true},
		{"image/jpeg", true},
		{"image/jpg", true},
		{"image/gif", true},
		{"image/webp", true},
		{"image/svg+xml", false},
		{"application/pdf", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsAllowedType(tt.contentType); got != tt.want {
			t.Errorf("IsAllowedType(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}
