// Package imaging normalizes uploaded photos to bounded-size JPEGs.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// Output content type and extension of every optimized image
const (
	ContentType = "image/jpeg"
	Extension   = "jpg"
)

// Default optimizer settings
const (
	DefaultMaxDimension = 1600
	DefaultQuality      = 80
)

// ErrUnsupportedType is returned for content outside the image allow-list
var ErrUnsupportedType = errors.New("unsupported image type")

// AllowedTypes lists the accepted source formats
var AllowedTypes = []string{"image/jpeg", "image/png", "image/webp"}

// Optimizer resizes images into a square bounding box and re-encodes them
type Optimizer struct {
	MaxDimension int
	Quality      int
}

// New creates an Optimizer, replacing non-positive settings with defaults
func New(maxDimension, quality int) *Optimizer {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Optimizer{MaxDimension: maxDimension, Quality: quality}
}

// DetectType sniffs the content type, falling back to the declared one
// when sniffing is inconclusive
func DetectType(data []byte, declared string) string {
	sniffed := http.DetectContentType(data)
	if sniffed == "application/octet-stream" && declared != "" {
		return declared
	}
	return sniffed
}

// Allowed reports whether contentType is an accepted source format
func Allowed(contentType string) bool {
	for _, t := range AllowedTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

// Optimize decodes data, fits it within the bounding box without upscaling
// and returns JPEG bytes
func (o *Optimizer) Optimize(data []byte, declared string) ([]byte, error) {
	contentType := DetectType(data, declared)
	if !Allowed(contentType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	src, err := decode(data, contentType)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", contentType, err)
	}

	dst := o.resize(src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: o.Quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte, contentType string) (image.Image, error) {
	r := bytes.NewReader(data)
	switch contentType {
	case "image/jpeg":
		return jpeg.Decode(r)
	case "image/png":
		return png.Decode(r)
	case "image/webp":
		return webp.Decode(r)
	}
	return nil, ErrUnsupportedType
}

func (o *Optimizer) resize(src image.Image) image.Image {
	b := src.Bounds()
	w, h := Fit(b.Dx(), b.Dy(), o.MaxDimension)

	// always redraw onto an opaque canvas so transparent PNGs encode cleanly
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// Fit scales w x h to fit within bound x bound preserving aspect ratio.
// Images already inside the box keep their size.
func Fit(w, h, bound int) (int, int) {
	if w <= bound && h <= bound {
		return w, h
	}
	if w >= h {
		nh := h * bound / w
		if nh < 1 {
			nh = 1
		}
		return bound, nh
	}
	nw := w * bound / h
	if nw < 1 {
		nw = 1
	}
	return nw, bound
}
