package pdfdoc

import (
	"fmt"
	"image"

	fitz "github.com/gen2brain/go-fitz"
)

// fitzOpener implements Opener using github.com/gen2brain/go-fitz.
type fitzOpener struct{}

func (fitzOpener) Open(path string) (Doc, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return fitzDoc{doc}, nil
}

func init() {
	setDefaultOpener(fitzOpener{})
}

type fitzDoc struct{ *fitz.Document }

func (d fitzDoc) ImageDPI(i int, dpi float64) (image.Image, error) {
	img, err := d.Document.ImageDPI(i, dpi)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// selfTestPDF is a single blank A7 page. MuPDF rebuilds the missing xref table.
var selfTestPDF = []byte("%PDF-1.4\n" +
	"1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj\n" +
	"2 0 obj << /Type /Pages /Kids [3 0 R] /Count 1 >> endobj\n" +
	"3 0 obj << /Type /Page /Parent 2 0 R /MediaBox [0 0 210 298] >> endobj\n" +
	"trailer << /Root 1 0 R >>\n%%EOF\n")

// SelfTest renders a built-in one page document to confirm the MuPDF backend works.
func SelfTest() error {
	doc, err := fitz.NewFromMemory(selfTestPDF)
	if err != nil {
		return fmt.Errorf("open built-in document: %w", err)
	}
	defer doc.Close()

	if n := doc.NumPage(); n != 1 {
		return fmt.Errorf("built-in document reports %d pages", n)
	}
	if _, err := doc.ImageDPI(0, 72); err != nil {
		return fmt.Errorf("render built-in page: %w", err)
	}
	return nil
}
