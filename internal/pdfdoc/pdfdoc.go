package pdfdoc

import (
	"errors"
	"image"

	"github.com/local/pagesampler/internal/domain"
)

// Doc abstracts an opened paginated document.
type Doc interface {
	NumPage() int
	// Bound returns the page box in points (1/72 inch).
	Bound(i int) (image.Rectangle, error)
	// ImageDPI renders page i at the given resolution.
	ImageDPI(i int, dpi float64) (image.Image, error)
	Close() error
}

// Opener abstracts opening a document path into a Doc.
type Opener interface {
	Open(path string) (Doc, error)
}

// OpenerFunc adapts a plain function to Opener.
type OpenerFunc func(path string) (Doc, error)

func (f OpenerFunc) Open(path string) (Doc, error) { return f(path) }

// defaultOpener is provided in open_fitz.go using go-fitz.
var defaultOpener Opener

func setDefaultOpener(o Opener) { defaultOpener = o }

// Default returns the MuPDF-backed opener.
func Default() Opener { return defaultOpener }

// Geometry is the probe result for one document.
type Geometry struct {
	Pages  int
	Width  float64
	Height float64
}

// Probe opens the document at path, reads its page count and the size of
// the reference page (page 0) and closes it again on every path.
// On failure the returned Geometry has Pages == 0 and the error is a *domain.DecodeError.
func Probe(o Opener, path string) (Geometry, error) {
	if o == nil {
		o = defaultOpener
	}
	if o == nil {
		return Geometry{}, &domain.DecodeError{Path: path, Page: -1, Err: errors.New("no document opener configured")}
	}

	d, err := o.Open(path)
	if err != nil {
		return Geometry{}, &domain.DecodeError{Path: path, Page: -1, Err: err}
	}
	defer d.Close()

	total := d.NumPage()
	if total <= 0 {
		return Geometry{}, &domain.DecodeError{Path: path, Page: -1, Err: errors.New("document has no pages")}
	}

	r, err := d.Bound(0)
	if err != nil {
		return Geometry{}, &domain.DecodeError{Path: path, Page: 0, Err: err}
	}

	return Geometry{
		Pages:  total,
		Width:  float64(r.Dx()),
		Height: float64(r.Dy()),
	}, nil
}
