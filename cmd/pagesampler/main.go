package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cfgpkg "github.com/local/pagesampler/internal/config"
	"github.com/local/pagesampler/internal/dispatcher"
	"github.com/local/pagesampler/internal/domain"
	logpkg "github.com/local/pagesampler/internal/logger"
	"github.com/local/pagesampler/internal/metrics"
	"github.com/local/pagesampler/internal/output"
	"github.com/local/pagesampler/internal/selection"
	"github.com/local/pagesampler/internal/statuscheck"
	"github.com/local/pagesampler/internal/store"
)

type app struct {
	cfg      cfgpkg.Config
	flags    cfgpkg.SamplerConfig
	cfgFile  string
	progress bool
	log      *logpkg.Handle
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	a := &app{cfg: cfgpkg.FromEnv(), log: logpkg.Nop()}
	a.flags = a.cfg.Sampler

	root := a.rootCommand()
	root.AddCommand(a.checkCommand(), a.inspectCommand(), a.statusCommand())
	err := root.Execute()
	a.log.Close()
	if err != nil {
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagesampler [flags] <input_folder> <output_folder>",
		Short: "Sample pages from a folder of PDFs and save them as resized JPEGs",
		Long: `pagesampler picks a random subset of pages from every PDF in the input
folder, renders them, scales them to a fixed height and writes JPEGs to the
output folder (a local directory or an s3://bucket/prefix URL).`,
		Args:              cobra.ExactArgs(2),
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), args[0], args[1])
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&a.cfgFile, "config", "", "YAML config file (flags override it)")

	s := &a.flags
	rf := cmd.Flags()
	rf.IntVar(&s.Pages, "pages", s.Pages, "number of pages to sample per document")
	rf.StringVar(&s.Filter, "filter", s.Filter, "glob selecting documents in the input folder")
	rf.StringVar(&s.Suffix, "suffix", s.Suffix, "suffix appended to output file names")
	rf.IntVar(&s.DPI, "dpi", s.DPI, "render resolution (72-300)")
	rf.IntVar(&s.Compress, "compress", s.Compress, "JPEG quality (1-100)")
	rf.IntVar(&s.Height, "height", s.Height, "output height in pixels (min 100)")
	rf.BoolVar(&s.IncludeFirstPage, "include-first-page", s.IncludeFirstPage, "always include the first page")
	rf.StringVar(&s.FirstPageSlots, "first-page-slots", s.FirstPageSlots, "whether the forced first page is additional to --pages or part of it (additional|total)")
	rf.IntVar(&s.Threads, "threads", s.Threads, "documents processed in parallel")
	rf.StringVar(&s.Grouping, "grouping", s.Grouping, "output layout (by-prefix|flat)")
	rf.Int64Var(&s.Seed, "seed", s.Seed, "random seed for reproducible sampling (0 = random)")
	rf.StringVar(&s.Color, "color", s.Color, "color mode (rgb|gray)")
	rf.StringVar(&s.Resample, "resample", s.Resample, "resize filter (lanczos|catmullrom)")
	rf.IntVar(&s.ProgressEvery, "progress-every", s.ProgressEvery, "log progress every N documents")
	rf.BoolVar(&a.progress, "progress", false, "show a progress bar on stderr")
	return cmd
}

// setup layers config: env defaults, then the YAML file, then explicit flags.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.cfgFile != "" {
		if err := cfgpkg.LoadFile(&a.cfg, a.cfgFile); err != nil {
			return err
		}
	}
	a.applyFlags(cmd)
	a.cfg.Normalize()
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	h, err := logpkg.Init(logpkg.Options{
		Level:        a.cfg.Logging.Level,
		Pretty:       a.cfg.Logging.Pretty,
		File:         a.cfg.Logging.File,
		MaxSizeMB:    a.cfg.Logging.MaxSizeMB,
		MaxBackups:   a.cfg.Logging.MaxBackups,
		MaxAgeDays:   a.cfg.Logging.MaxAgeDays,
		Compress:     a.cfg.Logging.Compress,
		SendToAxiom:  a.cfg.Axiom.Send && a.cfg.Axiom.APIKey != "",
		AxiomAPIKey:  a.cfg.Axiom.APIKey,
		AxiomOrgID:   a.cfg.Axiom.OrgID,
		AxiomDataset: a.cfg.Axiom.Dataset,
		AxiomFlush:   a.cfg.Axiom.FlushInterval,
	})
	if err != nil {
		return err
	}
	a.log = h
	return nil
}

func (a *app) applyFlags(cmd *cobra.Command) {
	s, f := &a.cfg.Sampler, a.flags
	overrides := map[string]func(){
		"pages":              func() { s.Pages = f.Pages },
		"filter":             func() { s.Filter = f.Filter },
		"suffix":             func() { s.Suffix = f.Suffix },
		"dpi":                func() { s.DPI = f.DPI },
		"compress":           func() { s.Compress = f.Compress },
		"height":             func() { s.Height = f.Height },
		"include-first-page": func() { s.IncludeFirstPage = f.IncludeFirstPage },
		"first-page-slots":   func() { s.FirstPageSlots = f.FirstPageSlots },
		"threads":            func() { s.Threads = f.Threads },
		"grouping":           func() { s.Grouping = f.Grouping },
		"seed":               func() { s.Seed = f.Seed },
		"color":              func() { s.Color = f.Color },
		"resample":           func() { s.Resample = f.Resample },
		"progress-every":     func() { s.ProgressEvery = f.ProgressEvery },
	}
	for name, apply := range overrides {
		if fl := cmd.Flags().Lookup(name); fl != nil && fl.Changed {
			apply()
		}
	}
}

func (a *app) run(ctx context.Context, input, dest string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = a.log.WithContext(ctx)
	log := a.log.Logger
	s := a.cfg.Sampler

	// nothing is created under dest until the input is known to exist
	if err := dispatcher.CheckInput(input); err != nil {
		log.Error().Err(err).Str("input", input).Msg("cannot read input")
		return err
	}

	out, err := a.openStore(ctx, dest)
	if err != nil {
		log.Error().Err(err).Str("output", dest).Msg("cannot open output")
		return err
	}

	var status *store.RedisStatus
	if a.cfg.Redis.URL != "" {
		status, err = store.NewRedisStatus(a.cfg.Redis.URL, a.cfg.Redis.StatusTTL)
		if err != nil {
			// status publishing is optional
			log.Warn().Err(err).Msg("redis status disabled")
			status = nil
		} else {
			defer status.Close()
		}
	}

	checker := statuscheck.New(statuscheck.Options{Output: out, Redis: pinger(status)})
	summary := checker.Summary(ctx)
	if err := summary.Ready(); err != nil {
		log.Error().Err(err).Interface("capabilities", summary).Msg("startup check failed")
		return err
	}

	m := metrics.New()
	if a.cfg.Metrics.Addr != "" {
		srv := serveMetrics(a.cfg.Metrics.Addr, m, a.log)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	slots, _ := selection.ParseSlots(s.FirstPageSlots)
	grouping, _ := output.ParseGrouping(s.Grouping)
	opts := dispatcher.Options{
		InputRoot:     input,
		Filter:        s.Filter,
		Store:         out,
		Suffix:        s.Suffix,
		Grouping:      grouping,
		Policy:        selection.NewPolicy(s.Pages, s.IncludeFirstPage, slots, s.Seed),
		Render:        s.RenderOptions(),
		Workers:       s.Threads,
		ProgressEvery: s.ProgressEvery,
		Metrics:       m,
	}
	if status != nil {
		opts.Status = status
	}
	var bar *progressBar
	if a.progress {
		bar = newProgressBar()
		opts.OnProgress = bar.Update
	}

	stats, runErr := dispatcher.New(opts).Run(ctx)
	bar.Finish()

	if a.cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			log.Warn().Err(err).Str("path", a.cfg.Metrics.Textfile).Msg("metrics textfile not written")
		}
	}

	if runErr != nil && domain.IsFatal(runErr) {
		return runErr
	}
	printSummary(stats)
	return runErr
}

func (a *app) openStore(ctx context.Context, dest string) (output.Store, error) {
	if !output.IsS3URL(dest) {
		return output.NewLocalStore(dest), nil
	}
	return output.NewS3Store(ctx, dest, output.S3Options{
		Region:    a.cfg.S3.Region,
		Endpoint:  a.cfg.S3.Endpoint,
		AccessKey: a.cfg.S3.AccessKey,
		SecretKey: a.cfg.S3.SecretKey,
		PathStyle: a.cfg.S3.PathStyle,
	})
}

// pinger keeps a nil *RedisStatus from becoming a non-nil interface.
func pinger(s *store.RedisStatus) statuscheck.RedisPinger {
	if s == nil {
		return nil
	}
	return s
}

func serveMetrics(addr string, m *metrics.Metrics, h *logpkg.Handle) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		h.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.Error().Err(err).Msg("metrics server error")
		}
	}()
	return srv
}

func printSummary(st domain.Stats) {
	fmt.Println("Summary")
	fmt.Printf("  Documents processed: %d/%d\n", st.Processed, st.Discovered)
	fmt.Printf("  Partially completed: %d\n", st.Partial)
	fmt.Printf("  Failed:              %d\n", st.Failed)
	fmt.Printf("  Images written:      %d\n", st.Images)
}
