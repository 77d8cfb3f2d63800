package filetype

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectPDFByMagicBytes(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "renamed.bin")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n"), 0o644))

	info, err := New().Detect(pdf)
	require.NoError(t, err)
	assert.True(t, info.IsPDF)
	assert.Equal(t, "application/pdf", info.MIMEType)
	assert.NoError(t, New().CheckPDF(pdf))
}

func TestCheckPDFRejectsOtherContent(t *testing.T) {
	dir := t.TempDir()
	fake := filepath.Join(dir, "fake.pdf")
	require.NoError(t, os.WriteFile(fake, []byte("just some text, not a document"), 0o644))

	err := New().CheckPDF(fake)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a PDF")
}

func TestDetectMissingFile(t *testing.T) {
	_, err := New().Detect(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestHasPDFExtension(t *testing.T) {
	assert.True(t, HasPDFExtension("a/b/book.PDF"))
	assert.True(t, HasPDFExtension("book.pdf"))
	assert.False(t, HasPDFExtension("book.pdf.txt"))
	assert.False(t, HasPDFExtension("book"))
}
