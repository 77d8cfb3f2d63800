package dispatcher

import (
	"context"
	"errors"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/local/pagesampler/internal/domain"
	"github.com/local/pagesampler/internal/imagerender"
	"github.com/local/pagesampler/internal/output"
	"github.com/local/pagesampler/internal/pdfdoc"
)

// worker drains tasks until the channel is closed. Once ctx is cancelled the
// remaining paths are skipped; a document already started runs to the end.
func (d *Dispatcher) worker(ctx context.Context, id int, tasks <-chan string, results chan<- domain.TaskResult) {
	log := zerolog.Ctx(ctx).With().Int("worker", id).Logger()
	taskCtx := log.WithContext(context.WithoutCancel(ctx))
	log.Debug().Msg("worker started")
	for path := range tasks {
		if ctx.Err() != nil {
			continue
		}
		results <- d.runTask(taskCtx, path)
	}
	log.Debug().Msg("worker stopped")
}

// runTask processes one document and never panics.
func (d *Dispatcher) runTask(ctx context.Context, path string) (res domain.TaskResult) {
	start := time.Now()
	res = domain.TaskResult{Path: path, Name: filepath.Base(path), State: domain.StatePending}
	d.metrics.DocumentStarted()
	defer func() {
		if r := recover(); r != nil {
			pe := &TaskPanicError{Path: path, Value: r, Stack: debug.Stack()}
			res.Err = pe
			res.State = domain.StateFailed
			zerolog.Ctx(ctx).Error().Err(pe).Str("doc", res.Name).Bytes("stack", pe.Stack).Msg("document task panicked")
		}
		res.Duration = time.Since(start)
		d.metrics.DocumentFinished()
	}()
	d.process(ctx, &res)
	return res
}

func (d *Dispatcher) process(ctx context.Context, res *domain.TaskResult) {
	log := zerolog.Ctx(ctx).With().Str("doc", res.Name).Logger()
	ctx = log.WithContext(ctx)

	fail := func(err error, msg string) {
		res.Err = err
		res.State = domain.StateFailed
		log.Error().Err(err).Str("kind", errorKind(err)).Msg(msg)
	}

	// MuPDF repairs headers the magic-byte check misses, so opening the document decides.
	if err := d.detector.CheckPDF(res.Path); err != nil {
		log.Warn().Err(err).Msg("content does not look like a PDF; trying to open it anyway")
	}

	geo, err := pdfdoc.Probe(d.opener, res.Path)
	if err != nil {
		fail(err, "cannot probe document")
		return
	}
	res.State = domain.StateOpened
	res.Pages = geo.Pages

	res.Selected = d.opts.Policy.Pick(geo.Pages)
	res.State = domain.StateSampled
	log.Debug().Int("pages", geo.Pages).Ints("selected", res.Selected).Float64("width_pt", geo.Width).Float64("height_pt", geo.Height).Msg("pages sampled")

	doc, err := d.opener.Open(res.Path)
	if err != nil {
		fail(&domain.DecodeError{Path: res.Path, Page: -1, Err: err}, "cannot open document for rendering")
		return
	}
	defer doc.Close()

	res.State = domain.StateRasterizing
	for i, page := range res.Selected {
		pageStart := time.Now()
		if err := d.extract(ctx, doc, res.Name, i, page); err != nil {
			res.PageErrors++
			if res.Err == nil {
				res.Err = err
			}
			kind := errorKind(err)
			d.metrics.IncPageError(kind)
			log.Warn().Err(err).Int("page", page+1).Str("kind", kind).Msg("page failed")
			continue
		}
		res.Images++
		d.metrics.ObservePage(time.Since(pageStart))
	}

	res.State = classify(res.Images, res.PageErrors)
	lvl := zerolog.InfoLevel
	if res.State == domain.StateFailed {
		lvl = zerolog.ErrorLevel
	}
	log.WithLevel(lvl).Str("state", string(res.State)).Int("images", res.Images).Int("page_errors", res.PageErrors).Msg("document finished")
}

// extract renders one page and stores it under its extraction index.
func (d *Dispatcher) extract(ctx context.Context, doc pdfdoc.Doc, name string, index, page int) error {
	data, err := imagerender.RenderPage(ctx, doc, page, d.render)
	if err != nil {
		var decErr *domain.DecodeError
		if errors.As(err, &decErr) && decErr.Path == "" {
			decErr.Path = name
		}
		return err
	}
	rel := output.RelPath(name, index, d.opts.Suffix, d.opts.Grouping)
	_, err = d.opts.Store.Write(ctx, rel, data)
	return err
}
