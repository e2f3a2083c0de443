// Package batch runs the repeatability substitution for every configured
// (site, species) pair: it stages a working copy of the pristine dataset,
// derives the repeatability from the site's standards log and substitutes it
// into the copy.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rtm0/repeatability"
	"github.com/rtm0/repeatability/internal/config"
	"github.com/rtm0/repeatability/internal/dataset"
	"github.com/rtm0/repeatability/internal/observability"
)

// Pair is one unit of work.
type Pair struct {
	Site    string
	Species string
}

func (p Pair) String() string {
	return p.Site + "/" + p.Species
}

// Result is the outcome of one pair.
type Result struct {
	Pair
	Samples  int
	Duration time.Duration
	Err      error
}

// Report lists the results of a run in processing order.
type Report struct {
	Results []Result
}

// Failed returns the number of failed pairs.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Driver processes pairs sequentially.
type Driver struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
}

// Option customizes a Driver.
type Option func(*Driver)

// WithClock sets the clock used to time pairs.
func WithClock(c clockwork.Clock) Option {
	return func(d *Driver) {
		d.clock = c
	}
}

// New creates a Driver for cfg.
func New(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Driver {
	d := &Driver{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Pairs returns the cartesian product of sites and species, sites outermost.
func (d *Driver) Pairs() []Pair {
	pairs := make([]Pair, 0, len(d.cfg.Sites)*len(d.cfg.Species))
	for _, site := range d.cfg.Sites {
		for _, sp := range d.cfg.Species {
			pairs = append(pairs, Pair{Site: site, Species: sp})
		}
	}
	return pairs
}

// Run processes every pair. A failing pair is logged and, unless the
// configuration asks to fail fast, the run moves on; the returned error
// joins all pair failures. Cancelling ctx stops the run before the next
// pair.
func (d *Driver) Run(ctx context.Context) (Report, error) {
	var (
		report Report
		failed []error
	)
	pairs := d.Pairs()
	d.logger.Info("batch started", "pairs", len(pairs), "work_dir", d.cfg.WorkDir)

	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			d.logger.Warn("batch cancelled", "done", len(report.Results), "pairs", len(pairs))
			failed = append(failed, err)
			break
		}

		res := d.runPair(p)
		report.Results = append(report.Results, res)
		if res.Err == nil {
			continue
		}
		failed = append(failed, fmt.Errorf("%s: %w", p, res.Err))
		if d.cfg.FailFast {
			d.logger.Error("batch aborted", "site", p.Site, "species", p.Species)
			break
		}
	}

	if path := d.cfg.MetricsTextfile; path != "" {
		if err := d.metrics.WriteTextfile(path); err != nil {
			d.logger.Error("could not write metrics", "path", path, "err", err)
			failed = append(failed, fmt.Errorf("write metrics: %w", err))
		}
	}
	d.logger.Info("batch finished", "processed", len(report.Results), "failed", report.Failed())
	return report, errors.Join(failed...)
}

func (d *Driver) runPair(p Pair) Result {
	start := d.clock.Now()
	samples, err := d.process(p)
	res := Result{
		Pair:     p,
		Samples:  samples,
		Duration: d.clock.Since(start),
		Err:      err,
	}

	d.metrics.PairDuration.Observe(res.Duration.Seconds())
	if err != nil {
		d.metrics.PairsTotal.WithLabelValues(observability.OutcomeFailed).Inc()
		d.logger.Error("pair failed", "site", p.Site, "species", p.Species, "err", err)
		return res
	}
	d.metrics.PairsTotal.WithLabelValues(observability.OutcomeOK).Inc()
	d.metrics.SamplesDerived.Add(float64(samples))
	d.logger.Info("pair done", "site", p.Site, "species", p.Species, "samples", samples, "in", res.Duration)
	return res
}

// process stages the dataset copy, then derives and substitutes. It returns
// the number of derived samples.
func (d *Driver) process(p Pair) (int, error) {
	name := config.FileName(d.cfg.DatasetFile, p.Site, p.Species)
	pristine := filepath.Join(d.cfg.SourceDir, name)
	working := filepath.Join(d.cfg.WorkDir, name)
	if err := copyFile(pristine, working); err != nil {
		return 0, fmt.Errorf("stage dataset: %w", err)
	}
	d.logger.Debug("dataset staged", "from", pristine, "to", working)
	if nc4, err := dataset.IsNetCDF4(working); err != nil {
		return 0, fmt.Errorf("stage dataset: %w", err)
	} else if nc4 {
		d.logger.Warn("netCDF-4 dataset will be rewritten as netCDF classic",
			"site", p.Site, "species", p.Species, "path", working)
	}

	stds := filepath.Join(d.cfg.StdsDir, config.FileName(d.cfg.StdsFile, p.Site, p.Species))
	s, err := repeatability.Derive(stds, p.Species)
	if err != nil {
		return 0, fmt.Errorf("derive: %w", err)
	}
	if err := repeatability.Substitute(working, s); err != nil {
		return s.Len(), fmt.Errorf("substitute: %w", err)
	}
	return s.Len(), nil
}
