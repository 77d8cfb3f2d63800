package domain

import (
	"errors"
	"fmt"
)

// IOError is raised when the input root or output destination is unusable.
// It is fatal and aborts the batch before any task starts.
type IOError struct {
	Path   string
	Reason string
	Err    error
}

func (e *IOError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("io error: %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("io error: %s: %s", e.Path, e.Reason)
}

func (e *IOError) Unwrap() error { return e.Err }

// ConfigError represents an invalid setting detected at startup.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Message)
}

// DecodeError means a document could not be opened/parsed or a page could not be rendered.
// Page is -1 when the whole document is affected.
type DecodeError struct {
	Path string
	Page int
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Page < 0 {
		return fmt.Sprintf("decode error: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("decode error: %s page %d: %v", e.Path, e.Page+1, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DimensionError is returned when a rendered page resolves to non-positive output dimensions.
type DimensionError struct {
	Width  int
	Height int
	Reason string
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension error: %dx%d: %s", e.Width, e.Height, e.Reason)
}

// EncodeError wraps failures while encoding or persisting an output image.
type EncodeError struct {
	Target string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode error: %s: %v", e.Target, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Error kinds used for log fields and metric labels.
const (
	KindIO        = "io"
	KindConfig    = "config"
	KindDecode    = "decode"
	KindDimension = "dimension"
	KindEncode    = "encode"
	KindUnknown   = "unknown"
)

// Kind classifies err into one of the Kind* constants.
func Kind(err error) string {
	if err == nil {
		return ""
	}

	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return KindIO
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return KindConfig
	}
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return KindDecode
	}
	var dimErr *DimensionError
	if errors.As(err, &dimErr) {
		return KindDimension
	}
	var encErr *EncodeError
	if errors.As(err, &encErr) {
		return KindEncode
	}
	return KindUnknown
}

// IsFatal reports whether err must abort the batch instead of being counted.
func IsFatal(err error) bool {
	switch Kind(err) {
	case KindIO, KindConfig:
		return true
	}
	return false
}
