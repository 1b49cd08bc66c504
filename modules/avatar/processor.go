package avatar

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"slices"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	"github.com/nfnt/resize"
)

const (
	// MaxUploadSize is the largest accepted upload.
	MaxUploadSize = 3 * 1024 * 1024
	// AvatarSize is the edge of the square output image.
	AvatarSize = 512
	// MaxSourceDimension rejects images whose decoded size would be excessive.
	MaxSourceDimension = 8192
	// WebPQuality is the lossy encoder quality.
	WebPQuality = 80
)

var (
	// ErrTooLarge is returned when the upload exceeds MaxUploadSize.
	ErrTooLarge = errors.New("file too large, maximum is 3MB")
	// ErrUnsupportedType is returned for content types other than jpeg, png, gif and webp.
	ErrUnsupportedType = errors.New("file type not supported")
	// ErrInvalidImage is returned when the data cannot be decoded as an image.
	ErrInvalidImage = errors.New("invalid image")
)

var allowedTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/webp", "image/gif"}

// IsAllowedType reports whether uploads of the content type are accepted.
func IsAllowedType(contentType string) bool {
	return slices.Contains(allowedTypes, contentType)
}

// Process decodes an uploaded image, fits it into a square AvatarSize box
// and encodes it as WebP.
func Process(data []byte) ([]byte, error) {
	if len(data) > MaxUploadSize {
		return nil, ErrTooLarge
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxSourceDimension || cfg.Height > MaxSourceDimension {
		return nil, fmt.Errorf("%w: %dx%d is out of range", ErrInvalidImage, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	img = resizeAndCrop(img, AvatarSize, AvatarSize)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: WebPQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image to WebP: %w", err)
	}
	return buf.Bytes(), nil
}

// resizeAndCrop shrinks the image to fit within width x height and then
// crops the centre to a square.
func resizeAndCrop(img image.Image, width, height int) image.Image {
	resized := resize.Thumbnail(uint(width), uint(height), img, resize.Lanczos3)

	w := resized.Bounds().Dx()
	h := resized.Bounds().Dy()
	side := min(w, h)
	x := (w - side) / 2
	y := (h - side) / 2
	origin := resized.Bounds().Min

	cropped := image.NewRGBA(image.Rect(0, 0, side, side))
	for i := 0; i < side; i++ {
		for j := 0; j < side; j++ {
			cropped.Set(i, j, resized.At(origin.X+x+i, origin.Y+y+j))
		}
	}
	return cropped
}
