package imagerender

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"

	"github.com/local/pagesampler/internal/domain"
	"github.com/local/pagesampler/internal/pdfdoc"
)

// ReferenceDPI is the resolution at which one page point equals one pixel.
const ReferenceDPI = 72

const (
	MinDPI     = 72
	MaxDPI     = 300
	MinHeight  = 100
	MinQuality = 1
	MaxQuality = 100

	DefaultDPI     = 300
	DefaultHeight  = 800
	DefaultQuality = 80
)

// ColorMode defines the color mode for rendering
type ColorMode string

const (
	ColorRGB  ColorMode = "rgb"
	ColorGray ColorMode = "gray"
)

// Filter selects the resampling kernel used when resizing.
type Filter string

const (
	FilterLanczos    Filter = "lanczos"
	FilterCatmullRom Filter = "catmullrom"
)

// ParseColorMode accepts rgb or gray.
func ParseColorMode(s string) (ColorMode, error) {
	switch ColorMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ColorRGB:
		return ColorRGB, nil
	case ColorGray, "grey", "grayscale":
		return ColorGray, nil
	}
	return ColorRGB, fmt.Errorf("unknown color mode %q (want rgb|gray)", s)
}

// ParseFilter accepts lanczos or catmullrom.
func ParseFilter(s string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterLanczos:
		return FilterLanczos, nil
	case FilterCatmullRom, "catmull-rom", "bicubic":
		return FilterCatmullRom, nil
	}
	return FilterLanczos, fmt.Errorf("unknown resample filter %q (want lanczos|catmullrom)", s)
}

// Options controls rendering, resizing and encoding of one page.
type Options struct {
	DPI     int
	Height  int
	Quality int
	Color   ColorMode
	Filter  Filter
}

// DefaultOptions mirrors the command line defaults.
func DefaultOptions() Options {
	return Options{DPI: DefaultDPI, Height: DefaultHeight, Quality: DefaultQuality, Color: ColorRGB, Filter: FilterLanczos}
}

// Normalize clamps every setting into its accepted range.
func (o Options) Normalize() Options {
	o.DPI = clamp(o.DPI, MinDPI, MaxDPI)
	if o.Height < MinHeight {
		o.Height = MinHeight
	}
	o.Quality = clamp(o.Quality, MinQuality, MaxQuality)
	if o.Color == "" {
		o.Color = ColorRGB
	}
	if o.Filter == "" {
		o.Filter = FilterLanczos
	}
	return o
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RenderPage renders page (0-based) of doc, resizes it to opts.Height and
// returns the JPEG bytes. Options are normalized before use.
func RenderPage(ctx context.Context, doc pdfdoc.Doc, page int, opts Options) ([]byte, error) {
	opts = opts.Normalize()
	logger := zerolog.Ctx(ctx)

	img, err := doc.ImageDPI(page, float64(opts.DPI))
	if err != nil {
		return nil, &domain.DecodeError{Page: page, Err: fmt.Errorf("render at %d dpi: %w", opts.DPI, err)}
	}

	bounds := img.Bounds()
	logger.Debug().
		Int("page", page+1).
		Int("width", bounds.Dx()).
		Int("height", bounds.Dy()).
		Int("dpi", opts.DPI).
		Msg("rendered page")

	resized, err := ResizeToHeight(img, opts.Height, opts.Filter)
	if err != nil {
		return nil, err
	}

	var finalImg image.Image = resized
	if opts.Color == ColorGray {
		finalImg = imaging.Grayscale(resized)
	}

	jpegBytes, err := EncodeJPEG(finalImg, opts.Quality)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Int("page", page+1).
		Int("jpeg_size", len(jpegBytes)).
		Int("quality", opts.Quality).
		Str("color", string(opts.Color)).
		Msg("encoded page as JPEG")

	return jpegBytes, nil
}

// TargetWidth computes the width that keeps the aspect ratio of a w x h
// image at the given height.
func TargetWidth(w, h, height int) (int, error) {
	if w <= 0 || h <= 0 {
		return 0, &domain.DimensionError{Width: w, Height: h, Reason: "source image has no area"}
	}
	if height <= 0 {
		return 0, &domain.DimensionError{Width: w, Height: height, Reason: "target height must be positive"}
	}
	nw := int(math.Round(float64(height) * float64(w) / float64(h)))
	if nw <= 0 {
		return 0, &domain.DimensionError{Width: nw, Height: height, Reason: "computed width is not positive"}
	}
	return nw, nil
}

// ResizeToHeight resamples img to the target height, preserving its aspect
// ratio. Images that already have the target height are returned unchanged.
func ResizeToHeight(img image.Image, height int, filter Filter) (image.Image, error) {
	b := img.Bounds()
	nw, err := TargetWidth(b.Dx(), b.Dy(), height)
	if err != nil {
		return nil, err
	}
	if b.Dy() == height {
		return img, nil
	}

	switch filter {
	case FilterCatmullRom:
		dst := image.NewRGBA(image.Rect(0, 0, nw, height))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
		return dst, nil
	default:
		return imaging.Resize(img, nw, height, imaging.Lanczos), nil
	}
}

// EncodeJPEG encodes img at the given quality (clamped to 1..100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	q := clamp(quality, MinQuality, MaxQuality)
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
		return nil, &domain.EncodeError{Target: "jpeg", Err: err}
	}
	return buf.Bytes(), nil
}
