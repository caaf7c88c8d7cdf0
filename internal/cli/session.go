package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/sdejongh/dirlisting/pkg/config"
	"github.com/sdejongh/dirlisting/pkg/listing"
	"github.com/sdejongh/dirlisting/pkg/listsource"
	"github.com/sdejongh/dirlisting/pkg/logging"
	"github.com/sdejongh/dirlisting/pkg/metrics"
	"github.com/sdejongh/dirlisting/pkg/models"
	"github.com/sdejongh/dirlisting/pkg/output"
	"github.com/sdejongh/dirlisting/pkg/ratelimit"
	"github.com/sdejongh/dirlisting/pkg/search"
	"github.com/sdejongh/dirlisting/pkg/shareindex"
)

// session holds what every command builds from the configuration
type session struct {
	ctx       context.Context
	cfg       *config.Config
	logger    logging.Logger
	formatter output.Formatter
	progress  *output.LoadProgress
	out       io.Writer

	stopMetrics func()
	share       *shareindex.Index
}

// loadConfig loads configuration from file or defaults
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.Load(globalFlags.ConfigFile, true)
	}
	return config.LoadDefault()
}

// applyGlobalFlags overrides config values with command-line flags
func applyGlobalFlags(cfg *config.Config) {
	if globalFlags.Verbose {
		cfg.Logging.Enabled = true
		cfg.Logging.Level = "debug"
	}
	if globalFlags.Quiet {
		cfg.Output.Quiet = true
		cfg.Output.Progress = false
	}
	if globalFlags.MetricsAddr != "" {
		cfg.Metrics.Addr = globalFlags.MetricsAddr
	}
}

// createLogger builds the logger described by the logging section
func createLogger(cfg *config.Config) (logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NewNullLogger(), nil
	}
	logger, err := logging.NewZapLogger(cfg.LoggerConfig())
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// newSession loads the configuration and sets up logging, output and the
// metrics endpoint. Callers must Close it.
func newSession(cmd *cobra.Command) (*session, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyGlobalFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := createLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	out := cmd.OutOrStdout()
	formatter, err := output.New(cfg.Output.Format, out, cfg.Output.Quiet)
	if err != nil {
		logger.Close()
		return nil, err
	}

	s := &session{
		ctx:         ctx,
		cfg:         cfg,
		logger:      logger,
		formatter:   formatter,
		out:         out,
		stopMetrics: func() {},
	}
	if cfg.Output.Progress && formatter.Name() == "human" {
		s.progress = output.NewLoadProgress(cmd.ErrOrStderr())
	}
	if cfg.Metrics.Addr != "" {
		s.stopMetrics = serveMetrics(ctx, cfg.Metrics.Addr, logger)
	}
	return s, nil
}

// Close releases everything the session opened
func (s *session) Close() {
	if s.progress != nil {
		s.progress.Finish()
	}
	if s.share != nil {
		if err := s.share.Close(); err != nil {
			s.logger.Warn(s.ctx, "Failed to close share index", logging.Fields{"error": err.Error()})
		}
	}
	s.stopMetrics()
	s.logger.Close()
}

// openShare opens the share index at path, falling back to the configured
// database
func (s *session) openShare(path string) (*shareindex.Index, error) {
	if path == "" {
		path = s.cfg.Share.Database
	}
	if path == "" {
		return nil, errors.New("no share database given (use --db or share.database)")
	}
	if s.share != nil {
		return s.share, nil
	}

	idx, err := shareindex.Open(path, s.logger)
	if err != nil {
		return nil, err
	}
	s.share = idx
	return idx, nil
}

// opener returns a listing source for local files and, when enabled, S3
func (s *session) opener() (*listsource.Opener, error) {
	o := &listsource.Opener{Limiter: ratelimit.NewLimiter(s.cfg.Sources.MaxBandwidth)}
	if s.progress != nil && s.progress.Enabled() {
		o.Wrap = s.progress.Wrap
	}
	if s.cfg.Sources.S3.Enabled {
		client, err := listsource.NewS3Client(s.ctx, s.cfg.S3())
		if err != nil {
			return nil, err
		}
		o.S3 = client
	}
	return o, nil
}

// listingOptions describes the listing a command works on
type listingOptions struct {
	fileName string
	ownList  bool
	partial  bool
	share    *shareindex.Index
}

// newListing builds a listing reporting to the formatter. Failures are
// recorded in the returned failureRecorder.
func (s *session) newListing(opts listingOptions) (*listing.Listing, *failureRecorder, error) {
	collab := listing.Collaborators{}
	if opts.fileName != "" {
		o, err := s.opener()
		if err != nil {
			return nil, nil, err
		}
		collab.Opener = o
	}
	if opts.share != nil {
		collab.Share = opts.share
		if s.cfg.Listing.DupesInFilelist {
			collab.Dupes = opts.share
		}
	}

	rec := &failureRecorder{next: s.formatter}
	user := models.User{Nick: s.cfg.Listing.Nick}
	if opts.fileName != "" {
		user = models.User{
			CID:  listsource.CIDFromFilename(opts.fileName),
			Nick: listsource.NickFromFilename(opts.fileName),
		}
	}

	l := listing.New(listing.Options{
		User:          user,
		FileName:      opts.fileName,
		Partial:       opts.partial,
		OwnList:       opts.ownList,
		ClientView:    true,
		Settings:      s.cfg.ListingSettings(),
		Collaborators: collab,
		Observer:      rec,
		Logger:        s.logger,
		Ticker:        search.IntervalTicker{Interval: s.cfg.Search.TickInterval},
	})
	return l, rec, nil
}

// finish closes l, waits for the worker and reports a recorded failure
func finish(l *listing.Listing, rec *failureRecorder) error {
	l.Close()
	l.Wait()
	return rec.Err()
}

// failureRecorder forwards events and keeps the last failure
type failureRecorder struct {
	next listing.Observer

	mu  sync.Mutex
	err error
}

// OnEvent forwards e and records failures
func (r *failureRecorder) OnEvent(e listing.Event) {
	if e.Type == listing.EventLoadingFailed {
		r.mu.Lock()
		if e.Message == "" {
			r.err = errors.New("aborted")
		} else {
			r.err = errors.New(e.Message)
		}
		r.mu.Unlock()
	}
	r.next.OnEvent(e)
}

// Err returns the last recorded failure
func (r *failureRecorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// serveMetrics exposes the Prometheus registry on addr until the returned
// function is called
func serveMetrics(ctx context.Context, addr string, logger logging.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info(ctx, "Serving metrics", logging.Fields{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "Metrics endpoint failed", err, logging.Fields{"addr": addr})
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}
}
