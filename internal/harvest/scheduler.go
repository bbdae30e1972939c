// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest drives the periodic fetch-filter-store-notify cycle
// and checkpoints its run state between invocations. A Scheduler runs
// exactly one cycle per RunHarvest call; looping belongs to the Daemon
// or to an external timer such as cron.
package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pdiddy/arxiv-harvester/internal/arxiv"
	"github.com/pdiddy/arxiv-harvester/internal/notify"
	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

// DefaultMaxResults is the per-category result cap used when the
// configured state does not set one.
const DefaultMaxResults = 50

// preMessage leads every harvest notification.
const preMessage = "New arXiv papers matching your criteria:"

// Searcher fetches one page of papers. *arxiv.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, p arxiv.Params) ([]types.Paper, error)
}

// PaperStore is the slice of the paper store the scheduler uses.
// *store.Store satisfies it.
type PaperStore interface {
	Get(ctx context.Context, id string) (*types.Paper, bool, error)
	Upsert(ctx context.Context, papers []types.Paper) error
}

// Notifier delivers a digest about a batch of papers. Delivery
// problems surface as false, never as errors. *notify.Notifier
// satisfies it.
type Notifier interface {
	NotifyPapers(papers []types.Paper, opts notify.PostOptions) bool
}

// Scheduler coordinates one harvest cycle across its collaborators.
type Scheduler struct {
	searcher Searcher
	store    PaperStore
	notifier Notifier
	logger   *slog.Logger

	state     State
	stateFile string

	now func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithState seeds the scheduler configuration, typically from
// LoadState overlaid with command-line flags.
func WithState(st State) Option {
	return func(s *Scheduler) { s.state = st }
}

// WithStateFile sets the checkpoint path. When set, every completed
// cycle persists its state there.
func WithStateFile(path string) Option {
	return func(s *Scheduler) { s.stateFile = path }
}

// WithLogger substitutes the cycle logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithNow substitutes the clock. Tests use this to control due-ness
// and recorded run times.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New constructs a scheduler around its three collaborators. The zero
// state is valid: no prior run, weekly cadence.
func New(searcher Searcher, store PaperStore, notifier Notifier, opts ...Option) *Scheduler {
	s := &Scheduler{
		searcher: searcher,
		store:    store,
		notifier: notifier,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current configuration snapshot, including the last
// run time recorded by RunHarvest.
func (s *Scheduler) State() State { return s.state }

// IsDue reports whether the schedule interval has elapsed since the
// last recorded run. A scheduler with no recorded run is always due.
func (s *Scheduler) IsDue() bool {
	if s.state.LastRunTime.IsZero() {
		return true
	}
	return s.now().Sub(s.state.LastRunTime) >= scheduleInterval(s.state.ScheduleType)
}

// scheduleInterval maps a schedule class to its fixed interval. Months
// are approximated as 30 days. Unknown classes fall back to weekly.
func scheduleInterval(scheduleType string) time.Duration {
	switch scheduleType {
	case "daily":
		return 24 * time.Hour
	case "monthly":
		return 30 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// RunHarvest executes one cycle: record the run time, fetch, drop
// papers already stored, persist and announce the rest, checkpoint.
// Fetch faults are absorbed as (false, nil) so a flaky upstream does
// not crash a timer-driven caller; faults past the fetch abort the
// cycle with an error and skip the checkpoint. (true, nil) means the
// cycle completed.
func (s *Scheduler) RunHarvest(ctx context.Context) (bool, error) {
	s.state.LastRunTime = s.now()

	papers, err := s.fetchPapers(ctx)
	if err != nil {
		s.logger.Error("fetching papers failed", "error", err)
		return false, nil
	}
	s.logger.Info("fetched papers", "count", len(papers), "query", s.state.Query)

	fresh, err := s.FilterNew(ctx, papers)
	if err != nil {
		return false, err
	}

	if len(fresh) > 0 {
		if err := s.store.Upsert(ctx, fresh); err != nil {
			return false, fmt.Errorf("storing %d new papers: %w", len(fresh), err)
		}
		s.logger.Info("stored new papers", "count", len(fresh))

		if s.state.Webhook != "" {
			opts := notify.PostOptions{Blocks: true, PreMessage: preMessage}
			if !s.notifier.NotifyPapers(fresh, opts) {
				s.logger.Warn("notification delivery failed", "count", len(fresh))
			}
		}
	} else {
		s.logger.Info("no new papers")
	}

	if s.stateFile != "" {
		if err := s.state.Save(s.stateFile); err != nil {
			return false, err
		}
	}

	return true, nil
}

// FilterNew drops papers already present in the store, preserving
// fetch order. Lookup is by short identifier, matching how the store
// keys its records.
func (s *Scheduler) FilterNew(ctx context.Context, papers []types.Paper) ([]types.Paper, error) {
	fresh := make([]types.Paper, 0, len(papers))
	for _, p := range papers {
		_, found, err := s.store.Get(ctx, p.ShortID())
		if err != nil {
			return nil, fmt.Errorf("checking store for %s: %w", p.ShortID(), err)
		}
		if !found {
			fresh = append(fresh, p)
		}
	}
	return fresh, nil
}

// fetchPapers runs one search per configured category and concatenates
// the results in category order, or a single uncategorized search when
// no categories are configured.
func (s *Scheduler) fetchPapers(ctx context.Context) ([]types.Paper, error) {
	maxResults := s.state.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	if len(s.state.Categories) == 0 {
		return s.searcher.Search(ctx, arxiv.Params{Query: s.state.Query, MaxResults: maxResults})
	}

	var all []types.Paper
	for _, category := range s.state.Categories {
		papers, err := s.searcher.Search(ctx, arxiv.Params{
			Query:      s.state.Query,
			Category:   category,
			MaxResults: maxResults,
		})
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", category, err)
		}
		all = append(all, papers...)
	}
	return all, nil
}
