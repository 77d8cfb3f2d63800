package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/local/pagesampler/internal/domain"
	"github.com/local/pagesampler/internal/filetype"
	"github.com/local/pagesampler/internal/imagerender"
	"github.com/local/pagesampler/internal/metrics"
	"github.com/local/pagesampler/internal/output"
	"github.com/local/pagesampler/internal/pdfdoc"
	"github.com/local/pagesampler/internal/selection"
	"github.com/local/pagesampler/internal/store"
)

const defaultProgressEvery = 10

// StatusSink receives run and document snapshots. Failures are logged and
// never affect the batch.
type StatusSink interface {
	Update(ctx context.Context, runID string, st store.RunStatus) error
	SaveDocument(ctx context.Context, runID string, res domain.TaskResult) error
}

// ProgressFunc is called from the aggregation loop after every finished document.
type ProgressFunc func(done, total int)

// Options configures one batch run.
type Options struct {
	InputRoot string
	// Filter is a glob matched against names directly under InputRoot.
	Filter   string
	Store    output.Store
	Suffix   string
	Grouping output.Grouping
	Policy   *selection.Policy
	Render   imagerender.Options
	Workers  int

	ProgressEvery int
	OnProgress    ProgressFunc

	Opener pdfdoc.Opener
	// Logger defaults to zerolog.Ctx of the context passed to Run.
	Logger  *zerolog.Logger
	Metrics *metrics.Metrics
	Status  StatusSink
	RunID   string
}

// Dispatcher runs one batch: discover documents, process them on a bounded
// worker pool and aggregate the results.
type Dispatcher struct {
	opts     Options
	log      *zerolog.Logger
	metrics  *metrics.Metrics
	opener   pdfdoc.Opener
	detector *filetype.Detector
	render   imagerender.Options
	runID    string
}

func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		opts:     opts,
		metrics:  opts.Metrics,
		opener:   opts.Opener,
		detector: filetype.New(),
		render:   opts.Render.Normalize(),
		runID:    opts.RunID,
		log:      opts.Logger,
	}
	if d.metrics == nil {
		d.metrics = metrics.New()
	}
	if d.opener == nil {
		d.opener = pdfdoc.Default()
	}
	if d.opts.Filter == "" {
		d.opts.Filter = "*.pdf"
	}
	if d.opts.ProgressEvery <= 0 {
		d.opts.ProgressEvery = defaultProgressEvery
	}
	if d.opts.Policy == nil {
		d.opts.Policy = selection.NewPolicy(6, true, selection.SlotsAdditional, 0)
	}
	if d.runID == "" {
		d.runID = uuid.NewString()
	}
	return d
}

// RunID identifies this batch in logs and in the status hash.
func (d *Dispatcher) RunID() string { return d.runID }

// Run processes every matching document. The returned error is non-nil only
// for fatal preflight failures (*domain.IOError, *domain.ConfigError) or when
// ctx was cancelled before all documents were started.
func (d *Dispatcher) Run(ctx context.Context) (domain.Stats, error) {
	base := d.log
	if base == nil {
		base = zerolog.Ctx(ctx)
	}
	log := base.With().Str("run_id", d.runID).Logger()
	ctx = log.WithContext(ctx)
	start := time.Now()

	if err := d.preflight(ctx); err != nil {
		log.Error().Err(err).Str("kind", domain.Kind(err)).Msg("preflight failed")
		d.publish(ctx, store.RunFailed, err.Error(), domain.Stats{}, start, true)
		return domain.Stats{}, err
	}

	paths, err := discover(d.opts.InputRoot, d.opts.Filter)
	if err != nil {
		log.Error().Err(err).Msg("discovery failed")
		d.publish(ctx, store.RunFailed, err.Error(), domain.Stats{}, start, true)
		return domain.Stats{}, err
	}

	stats := domain.Stats{Discovered: len(paths)}
	log.Info().
		Str("input", d.opts.InputRoot).
		Str("output", d.opts.Store.Location()).
		Str("filter", d.opts.Filter).
		Int("documents", len(paths)).
		Int("workers", d.opts.Workers).
		Int("pages", d.opts.Policy.Requested).
		Bool("include_first_page", d.opts.Policy.ForceFirst).
		Str("first_page_slots", d.opts.Policy.Slots.String()).
		Int("dpi", d.render.DPI).
		Int("height", d.render.Height).
		Int("quality", d.render.Quality).
		Str("color", string(d.render.Color)).
		Str("resample", string(d.render.Filter)).
		Str("grouping", string(d.opts.Grouping)).
		Str("suffix", d.opts.Suffix).
		Msg("batch starting")

	if len(paths) == 0 {
		log.Warn().Str("input", d.opts.InputRoot).Str("filter", d.opts.Filter).Msg("no PDF files found")
		d.publish(ctx, store.RunCompleted, "no PDF files found", stats, start, true)
		return stats, nil
	}
	warnDuplicateTokens(log, paths)
	d.publish(ctx, store.RunRunning, "", stats, start, false)

	tasks := make(chan string, len(paths))
	for _, p := range paths {
		tasks <- p
	}
	close(tasks)

	results := make(chan domain.TaskResult, d.opts.Workers)
	var wg sync.WaitGroup
	for i := 0; i < d.opts.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			d.worker(ctx, id, tasks, results)
		}(i)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		d.aggregate(ctx, &stats, res)
		done := stats.Done()
		if d.opts.OnProgress != nil {
			d.opts.OnProgress(done, stats.Discovered)
		}
		if done%d.opts.ProgressEvery == 0 || done == stats.Discovered {
			log.Info().Int("done", done).Int("total", stats.Discovered).Int("images", stats.Images).Msg("progress")
			d.publish(ctx, store.RunRunning, "", stats, start, false)
		}
	}

	elapsed := time.Since(start)
	var summary *zerolog.Event
	state, msg := store.RunCompleted, ""
	if err := ctx.Err(); err != nil {
		summary = log.Warn().Err(err)
		state, msg = store.RunCancelled, err.Error()
	} else {
		summary = log.Info()
	}
	summary.
		Int("discovered", stats.Discovered).
		Int("processed", stats.Processed).
		Int("partial", stats.Partial).
		Int("failed", stats.Failed).
		Int("images", stats.Images).
		Dur("elapsed", elapsed).
		Msg("batch finished")
	d.publish(ctx, state, msg, stats, start, true)

	if stats.Done() < stats.Discovered {
		return stats, fmt.Errorf("batch interrupted after %d of %d documents: %w", stats.Done(), stats.Discovered, ctx.Err())
	}
	return stats, nil
}

func (d *Dispatcher) preflight(ctx context.Context) error {
	if d.opts.Workers < 1 {
		return &domain.ConfigError{Field: "workers", Message: fmt.Sprintf("must be at least 1, got %d", d.opts.Workers)}
	}
	if d.opts.Store == nil {
		return &domain.ConfigError{Field: "output", Message: "no output store configured"}
	}
	if d.opener == nil {
		return &domain.ConfigError{Field: "opener", Message: "no document opener available"}
	}
	if _, err := filepath.Match(d.opts.Filter, ""); err != nil {
		return &domain.ConfigError{Field: "filter", Message: err.Error()}
	}
	if err := CheckInput(d.opts.InputRoot); err != nil {
		return err
	}
	if err := d.opts.Store.Prepare(ctx); err != nil {
		var ioErr *domain.IOError
		if errors.As(err, &ioErr) {
			return err
		}
		return &domain.IOError{Path: d.opts.Store.Location(), Reason: "output unavailable", Err: err}
	}
	return nil
}

// CheckInput returns a *domain.IOError unless root is an existing directory.
func CheckInput(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return &domain.IOError{Path: root, Reason: "input folder unavailable", Err: err}
	}
	if !info.IsDir() {
		return &domain.IOError{Path: root, Reason: "input is not a directory"}
	}
	return nil
}

// aggregate is the only place Stats is mutated.
func (d *Dispatcher) aggregate(ctx context.Context, stats *domain.Stats, res domain.TaskResult) {
	// images of a failed document (only possible after a panic) are not counted
	images := res.Images
	if res.State == domain.StateFailed {
		images = 0
	}
	stats.Images += images
	switch res.State {
	case domain.StateCompleted:
		stats.Processed++
	case domain.StatePartial:
		stats.Processed++
		stats.Partial++
	default:
		stats.Failed++
	}

	d.metrics.IncDocument(documentResult(res.State))
	d.metrics.AddImages(images)
	d.metrics.ObserveDocument(res.Duration)

	if d.opts.Status != nil {
		if err := d.opts.Status.SaveDocument(ctx, d.runID, res); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Str("doc", res.Name).Msg("status store write failed")
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, state, msg string, stats domain.Stats, start time.Time, final bool) {
	if d.opts.Status == nil {
		return
	}
	st := store.RunStatus{State: state, Message: msg, Stats: stats, Start: &start}
	if final {
		end := time.Now()
		st.End = &end
	}
	// the final snapshot must land even when ctx was cancelled
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.opts.Status.Update(ctx, d.runID, st); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("status update failed")
	}
}

// discover returns the regular .pdf files directly under root matching
// pattern, sorted by path.
func discover(root, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(root, pattern))
	if err != nil {
		return nil, &domain.ConfigError{Field: "filter", Message: err.Error()}
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if !filetype.HasPDFExtension(m) {
			continue
		}
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

// warnDuplicateTokens reports documents whose key token collides; their
// artifacts overwrite each other.
func warnDuplicateTokens(log zerolog.Logger, paths []string) {
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		name := filepath.Base(p)
		tok := output.KeyToken(name)
		if first, ok := seen[tok]; ok {
			log.Warn().Str("token", tok).Str("doc", name).Str("first", first).Msg("documents share a key token; outputs will overwrite each other")
			continue
		}
		seen[tok] = name
	}
}
