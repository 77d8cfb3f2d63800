package imagerender

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pagesampler/internal/domain"
)

// pageDoc renders every page as a solid image of the page box scaled by dpi/72.
type pageDoc struct {
	w, h      int
	renderErr error
	lastDPI   float64
}

func (d *pageDoc) NumPage() int { return 3 }

func (d *pageDoc) Bound(i int) (image.Rectangle, error) { return image.Rect(0, 0, d.w, d.h), nil }

func (d *pageDoc) ImageDPI(i int, dpi float64) (image.Image, error) {
	d.lastDPI = dpi
	if d.renderErr != nil {
		return nil, d.renderErr
	}
	scale := dpi / ReferenceDPI
	w, h := int(float64(d.w)*scale), int(float64(d.h)*scale)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	return img, nil
}

func (d *pageDoc) Close() error { return nil }

func decode(t *testing.T, b []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	return img
}

func TestRenderPageResizesToHeight(t *testing.T) {
	doc := &pageDoc{w: 200, h: 300}
	out, err := RenderPage(context.Background(), doc, 0, Options{DPI: 144, Height: 150, Quality: 90})
	require.NoError(t, err)

	img := decode(t, out)
	assert.Equal(t, 150, img.Bounds().Dy())
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, float64(144), doc.lastDPI)
}

func TestRenderPageClampsDPI(t *testing.T) {
	doc := &pageDoc{w: 50, h: 50}
	_, err := RenderPage(context.Background(), doc, 1, Options{DPI: 1000, Height: 100, Quality: 80})
	require.NoError(t, err)
	assert.Equal(t, float64(MaxDPI), doc.lastDPI)

	_, err = RenderPage(context.Background(), doc, 1, Options{DPI: 10, Height: 100, Quality: 80})
	require.NoError(t, err)
	assert.Equal(t, float64(MinDPI), doc.lastDPI)
}

func TestRenderPageGray(t *testing.T) {
	doc := &pageDoc{w: 100, h: 100}
	out, err := RenderPage(context.Background(), doc, 0, Options{DPI: 72, Height: 100, Quality: 80, Color: ColorGray})
	require.NoError(t, err)

	r, g, b, _ := decode(t, out).At(50, 50).RGBA()
	assert.InDelta(t, r, g, 1500)
	assert.InDelta(t, g, b, 1500)
}

func TestRenderPageDecodeError(t *testing.T) {
	doc := &pageDoc{w: 100, h: 100, renderErr: errors.New("broken content stream")}
	_, err := RenderPage(context.Background(), doc, 2, DefaultOptions())
	require.Error(t, err)

	var decErr *domain.DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, 2, decErr.Page)
}

func TestRenderPageZeroHeightPage(t *testing.T) {
	doc := &pageDoc{w: 100, h: 0}
	_, err := RenderPage(context.Background(), doc, 0, DefaultOptions())
	require.Error(t, err)
	assert.Equal(t, domain.KindDimension, domain.Kind(err))
}

func TestNormalize(t *testing.T) {
	o := Options{DPI: 5, Height: 20, Quality: 0}.Normalize()
	assert.Equal(t, Options{DPI: 72, Height: 100, Quality: 1, Color: ColorRGB, Filter: FilterLanczos}, o)

	o = Options{DPI: 600, Height: 1200, Quality: 101, Color: ColorGray, Filter: FilterCatmullRom}.Normalize()
	assert.Equal(t, Options{DPI: 300, Height: 1200, Quality: 100, Color: ColorGray, Filter: FilterCatmullRom}, o)
}

func TestTargetWidth(t *testing.T) {
	tests := []struct {
		name       string
		w, h, th   int
		want       int
		wantErrMsg bool
	}{
		{"portrait", 2480, 3508, 800, 566, false},
		{"landscape", 3508, 2480, 800, 1132, false},
		{"same height", 300, 800, 800, 300, false},
		{"rounds half up", 3, 2, 3, 5, false},
		{"zero width", 0, 100, 800, 0, true},
		{"zero height", 100, 0, 800, 0, true},
		{"thin sliver rounds to zero", 1, 10000, 100, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TargetWidth(tt.w, tt.h, tt.th)
			if tt.wantErrMsg {
				require.Error(t, err)
				assert.Equal(t, domain.KindDimension, domain.Kind(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResizeToHeightIsIdempotent(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1240, 1754))
	for _, f := range []Filter{FilterLanczos, FilterCatmullRom} {
		t.Run(string(f), func(t *testing.T) {
			once, err := ResizeToHeight(src, 800, f)
			require.NoError(t, err)
			assert.Equal(t, 800, once.Bounds().Dy())

			twice, err := ResizeToHeight(once, 800, f)
			require.NoError(t, err)
			assert.Equal(t, once.Bounds(), twice.Bounds())

			ratioSrc := float64(src.Bounds().Dx()) / float64(src.Bounds().Dy())
			ratioOut := float64(twice.Bounds().Dx()) / float64(twice.Bounds().Dy())
			assert.InDelta(t, ratioSrc, ratioOut, 1.0/800)
		})
	}
}

func TestResizeAppliesForSmallDifference(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 801))
	out, err := ResizeToHeight(src, 800, FilterLanczos)
	require.NoError(t, err)
	assert.Equal(t, 800, out.Bounds().Dy())
	assert.Equal(t, 400, out.Bounds().Dx())
}

func TestEncodeJPEGClampsQuality(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	low, err := EncodeJPEG(img, -5)
	require.NoError(t, err)
	high, err := EncodeJPEG(img, 500)
	require.NoError(t, err)
	assert.NotEmpty(t, low)
	assert.NotEmpty(t, high)
}

func TestParseHelpers(t *testing.T) {
	c, err := ParseColorMode("GRAY")
	require.NoError(t, err)
	assert.Equal(t, ColorGray, c)
	_, err = ParseColorMode("cmyk")
	assert.Error(t, err)

	f, err := ParseFilter("catmull-rom")
	require.NoError(t, err)
	assert.Equal(t, FilterCatmullRom, f)
	_, err = ParseFilter("nearest")
	assert.Error(t, err)
}
