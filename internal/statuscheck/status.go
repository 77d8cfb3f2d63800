package statuscheck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/local/pagesampler/internal/output"
	"github.com/local/pagesampler/internal/pdfdoc"
)

// RedisPinger models the minimal Redis capability we need for status checks.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// Checker verifies the capabilities a batch run depends on.
type Checker struct {
	redis    RedisPinger
	output   output.Store
	selfTest func() error
	timeout  time.Duration
}

// Options configures the Checker.
type Options struct {
	Redis  RedisPinger
	Output output.Store
	// SelfTest overrides the MuPDF render probe (tests).
	SelfTest func() error
	Timeout  time.Duration
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK       bool   `json:"ok"`
	Required bool   `json:"required"`
	Message  string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
	MuPDF  Status `json:"mupdf"`
	Output Status `json:"output"`
	Redis  Status `json:"redis"`
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
	st := opts.SelfTest
	if st == nil {
		st = pdfdoc.SelfTest
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{redis: opts.Redis, output: opts.Output, selfTest: st, timeout: timeout}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	return Summary{
		MuPDF:  c.checkMuPDF(),
		Output: c.checkOutput(ctx),
		Redis:  c.checkRedis(ctx),
	}
}

// Ready is nil when every required capability is available.
func (s Summary) Ready() error {
	var errs []error
	for _, e := range []struct {
		name string
		st   Status
	}{{"mupdf", s.MuPDF}, {"output", s.Output}, {"redis", s.Redis}} {
		if e.st.Required && !e.st.OK {
			errs = append(errs, fmt.Errorf("%s: %s", e.name, e.st.Message))
		}
	}
	return errors.Join(errs...)
}

func (c *Checker) checkMuPDF() (st Status) {
	st.Required = true
	defer func() {
		if r := recover(); r != nil {
			st.OK = false
			st.Message = fmt.Sprintf("render probe panicked: %v", r)
		}
	}()
	if err := c.selfTest(); err != nil {
		st.Message = trimError(err)
		return st
	}
	st.OK = true
	st.Message = "Available"
	return st
}

func (c *Checker) checkOutput(ctx context.Context) Status {
	if c.output == nil {
		return Status{OK: false, Required: false, Message: "not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.output.Prepare(ctx); err != nil {
		return Status{OK: false, Required: true, Message: trimError(err)}
	}
	return Status{OK: true, Required: true, Message: "Writable: " + c.output.Location()}
}

func (c *Checker) checkRedis(ctx context.Context) Status {
	if c.redis == nil {
		return Status{OK: false, Message: "not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.redis.Ping(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
