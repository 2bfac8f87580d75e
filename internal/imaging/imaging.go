// Package imaging normalizes report photos: it decodes base64 data URLs,
// sniffs the real format, bounds the dimensions and re-encodes as JPEG.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"

	"golang.org/x/image/draw"
)

const (
	// MaxDimension is the maximum width or height for stored images.
	MaxDimension = 1024

	// JPEGQuality is the compression quality for JPEG output.
	JPEGQuality = 85

	// MaxInputBytes bounds a single decoded photo.
	MaxInputBytes = 5 << 20
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format (only JPEG and PNG accepted)")
	ErrInvalidDataURL    = errors.New("invalid image data URL")
	ErrTooLarge          = errors.New("image too large")
)

// AllowedMIME lists the accepted input MIME types.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Photo is a processed image ready for storage.
type Photo struct {
	Data []byte
	MIME string
}

// IsDataURL reports whether s looks like an inline base64 image.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// DecodeDataURL extracts the bytes of a "data:image/...;base64," URL. The
// declared media type is ignored; Process sniffs the real one.
func DecodeDataURL(s string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok || !IsDataURL(s) || !strings.HasSuffix(meta, ";base64") {
		return nil, ErrInvalidDataURL
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxInputBytes {
		return nil, ErrTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return data, nil
}

// Process validates image bytes by sniffing, downscales anything larger than
// MaxDimension and re-encodes as JPEG.
func Process(data []byte) (*Photo, error) {
	if len(data) > MaxInputBytes {
		return nil, ErrTooLarge
	}

	detected := http.DetectContentType(data)
	if !AllowedMIME[detected] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	img = downscale(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	return &Photo{Data: buf.Bytes(), MIME: "image/jpeg"}, nil
}

// ProcessDataURL decodes and processes an inline image.
func ProcessDataURL(s string) (*Photo, error) {
	data, err := DecodeDataURL(s)
	if err != nil {
		return nil, err
	}
	return Process(data)
}

// downscale fits img inside maxDim x maxDim with Catmull-Rom resampling,
// keeping the aspect ratio. Smaller images are returned as is.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = max(1, h*maxDim/w)
	} else {
		newW = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
