package statuscheck

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pagesampler/internal/output"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func okSelfTest() error { return nil }

func TestSummaryAllHealthy(t *testing.T) {
	c := New(Options{
		Output:   output.NewLocalStore(t.TempDir()),
		Redis:    pinger{},
		SelfTest: okSelfTest,
	})
	s := c.Summary(context.Background())
	assert.True(t, s.MuPDF.OK)
	assert.True(t, s.Output.OK)
	assert.True(t, s.Redis.OK)
	assert.NoError(t, s.Ready())
}

func TestOptionalRedisDoesNotBlock(t *testing.T) {
	c := New(Options{Output: output.NewLocalStore(t.TempDir()), SelfTest: okSelfTest})
	s := c.Summary(context.Background())
	assert.False(t, s.Redis.OK)
	assert.Equal(t, "not configured", s.Redis.Message)
	assert.NoError(t, s.Ready())

	c = New(Options{Output: output.NewLocalStore(t.TempDir()), Redis: pinger{err: errors.New("refused")}, SelfTest: okSelfTest})
	s = c.Summary(context.Background())
	assert.Equal(t, "refused", s.Redis.Message)
	assert.NoError(t, s.Ready())
}

func TestMuPDFFailureIsFatal(t *testing.T) {
	c := New(Options{SelfTest: func() error { return errors.New("no renderer") }})
	s := c.Summary(context.Background())
	assert.False(t, s.MuPDF.OK)
	err := s.Ready()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mupdf: no renderer")
}

func TestMuPDFPanicIsReported(t *testing.T) {
	c := New(Options{SelfTest: func() error { panic("cgo gone") }})
	s := c.Summary(context.Background())
	assert.False(t, s.MuPDF.OK)
	assert.Contains(t, s.MuPDF.Message, "cgo gone")
}

func TestOutputNotWritable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	c := New(Options{Output: output.NewLocalStore(file), SelfTest: okSelfTest})
	s := c.Summary(context.Background())
	assert.False(t, s.Output.OK)
	assert.Contains(t, s.Ready().Error(), "output:")
}

func TestTrimError(t *testing.T) {
	assert.Equal(t, "", trimError(nil))
	long := errors.New(strings.Repeat("x", 300))
	assert.Len(t, trimError(long), 120)
}
