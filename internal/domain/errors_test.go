package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"io", &IOError{Path: "/in", Reason: "missing"}, KindIO},
		{"config", &ConfigError{Field: "threads", Message: "must be >= 1"}, KindConfig},
		{"decode", &DecodeError{Path: "a.pdf", Page: -1, Err: errors.New("bad xref")}, KindDecode},
		{"dimension", &DimensionError{Width: 0, Height: 10}, KindDimension},
		{"encode", &EncodeError{Target: "x.jpg", Err: errors.New("disk full")}, KindEncode},
		{"wrapped decode", fmt.Errorf("task: %w", &DecodeError{Path: "a.pdf", Page: 2, Err: errors.New("x")}), KindDecode},
		{"plain", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(&IOError{Path: "/in", Reason: "not a directory"}))
	assert.True(t, IsFatal(&ConfigError{Field: "threads"}))
	assert.False(t, IsFatal(&DecodeError{Path: "a.pdf", Page: -1}))
	assert.False(t, IsFatal(&EncodeError{Target: "a.jpg"}))
	assert.False(t, IsFatal(nil))
}

func TestDecodeErrorMessageUsesOneBasedPage(t *testing.T) {
	err := &DecodeError{Path: "book.pdf", Page: 4, Err: errors.New("broken stream")}
	assert.Equal(t, "decode error: book.pdf page 5: broken stream", err.Error())

	whole := &DecodeError{Path: "book.pdf", Page: -1, Err: errors.New("no header")}
	assert.Equal(t, "decode error: book.pdf: no header", whole.Error())
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("permission denied")
	assert.ErrorIs(t, &EncodeError{Target: "a.jpg", Err: cause}, cause)
	assert.ErrorIs(t, &IOError{Path: "/out", Reason: "create", Err: cause}, cause)
}

func TestTaskStateTerminal(t *testing.T) {
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StatePartial.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateRasterizing.Terminal())
	assert.False(t, StatePending.Terminal())
}
