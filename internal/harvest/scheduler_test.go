// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/arxiv-harvester/internal/arxiv"
	"github.com/pdiddy/arxiv-harvester/internal/notify"
	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

// fakeSearcher returns canned pages keyed by category and records the
// params of every call.
type fakeSearcher struct {
	byCategory    map[string][]types.Paper
	uncategorized []types.Paper
	err           error
	calls         []arxiv.Params
}

func (f *fakeSearcher) Search(_ context.Context, p arxiv.Params) ([]types.Paper, error) {
	f.calls = append(f.calls, p)
	if f.err != nil {
		return nil, f.err
	}
	if p.Category == "" {
		return f.uncategorized, nil
	}
	return f.byCategory[p.Category], nil
}

// fakeStore knows a fixed set of short ids and records upserted batches.
type fakeStore struct {
	known     map[string]bool
	getErr    error
	upsertErr error
	upserted  [][]types.Paper
}

func (f *fakeStore) Get(_ context.Context, id string) (*types.Paper, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	if f.known[id] {
		return &types.Paper{ID: id}, true, nil
	}
	return nil, false, nil
}

func (f *fakeStore) Upsert(_ context.Context, papers []types.Paper) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, papers)
	return nil
}

type fakeNotifier struct {
	ok      bool
	batches [][]types.Paper
	opts    []notify.PostOptions
}

func (f *fakeNotifier) NotifyPapers(papers []types.Paper, opts notify.PostOptions) bool {
	f.batches = append(f.batches, papers)
	f.opts = append(f.opts, opts)
	return f.ok
}

func paper(shortID string) types.Paper {
	return types.Paper{
		ID:      "http://arxiv.org/abs/" + shortID,
		ArxivID: shortID,
		Title:   "Paper " + shortID,
	}
}

func fixedNow() time.Time {
	return time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)
}

func TestRunHarvestStoresAndNotifies(t *testing.T) {
	searcher := &fakeSearcher{byCategory: map[string][]types.Paper{
		"cs.AI": {paper("2401.00001v1"), paper("2401.00002v1")},
		"cs.CL": {paper("2401.00003v1")},
	}}
	store := &fakeStore{known: map[string]bool{"2401.00002v1": true}}
	notifier := &fakeNotifier{ok: true}
	stateFile := filepath.Join(t.TempDir(), "state.yaml")

	s := New(searcher, store, notifier,
		WithState(State{
			Query:        "prompt engineering",
			Categories:   []string{"cs.AI", "cs.CL"},
			MaxResults:   25,
			Webhook:      "https://hooks.example.com/T/B/x",
			ScheduleType: "daily",
		}),
		WithStateFile(stateFile),
		WithNow(fixedNow),
	)

	completed, err := s.RunHarvest(context.Background())
	require.NoError(t, err)
	assert.True(t, completed)

	// One search per category, in configured order.
	require.Len(t, searcher.calls, 2)
	assert.Equal(t, "cs.AI", searcher.calls[0].Category)
	assert.Equal(t, "cs.CL", searcher.calls[1].Category)
	assert.Equal(t, "prompt engineering", searcher.calls[0].Query)
	assert.Equal(t, 25, searcher.calls[0].MaxResults)

	// The known paper is filtered out; order of the rest is preserved.
	require.Len(t, store.upserted, 1)
	require.Len(t, store.upserted[0], 2)
	assert.Equal(t, "2401.00001v1", store.upserted[0][0].ArxivID)
	assert.Equal(t, "2401.00003v1", store.upserted[0][1].ArxivID)

	require.Len(t, notifier.batches, 1)
	assert.Len(t, notifier.batches[0], 2)
	assert.True(t, notifier.opts[0].Blocks)
	assert.Equal(t, "New arXiv papers matching your criteria:", notifier.opts[0].PreMessage)

	saved, err := LoadState(stateFile)
	require.NoError(t, err)
	assert.Equal(t, "prompt engineering", saved.Query)
	assert.True(t, saved.LastRunTime.Equal(fixedNow()))
}

func TestRunHarvestNoNewPapers(t *testing.T) {
	searcher := &fakeSearcher{uncategorized: []types.Paper{paper("2401.00001v1")}}
	store := &fakeStore{known: map[string]bool{"2401.00001v1": true}}
	notifier := &fakeNotifier{ok: true}
	stateFile := filepath.Join(t.TempDir(), "state.yaml")

	s := New(searcher, store, notifier,
		WithState(State{Query: "q", Webhook: "https://hooks.example.com/T/B/x"}),
		WithStateFile(stateFile),
		WithNow(fixedNow),
	)

	completed, err := s.RunHarvest(context.Background())
	require.NoError(t, err)
	assert.True(t, completed)

	assert.Empty(t, store.upserted)
	assert.Empty(t, notifier.batches)

	// State is still checkpointed when nothing was new.
	_, err = os.Stat(stateFile)
	assert.NoError(t, err)
}

func TestRunHarvestFetchFaultAbsorbed(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("upstream down")}
	store := &fakeStore{}
	stateFile := filepath.Join(t.TempDir(), "state.yaml")

	s := New(searcher, store, &fakeNotifier{},
		WithState(State{Query: "q", Categories: []string{"cs.AI"}}),
		WithStateFile(stateFile),
		WithNow(fixedNow),
	)

	completed, err := s.RunHarvest(context.Background())
	assert.NoError(t, err)
	assert.False(t, completed)

	assert.Empty(t, store.upserted)
	_, statErr := os.Stat(stateFile)
	assert.True(t, os.IsNotExist(statErr), "aborted cycle must not checkpoint")

	// The run time is still recorded at cycle start.
	assert.True(t, s.State().LastRunTime.Equal(fixedNow()))
}

func TestRunHarvestStoreFaultPropagates(t *testing.T) {
	searcher := &fakeSearcher{uncategorized: []types.Paper{paper("2401.00001v1")}}
	store := &fakeStore{upsertErr: errors.New("disk full")}

	s := New(searcher, store, &fakeNotifier{}, WithState(State{Query: "q"}))

	completed, err := s.RunHarvest(context.Background())
	require.Error(t, err)
	assert.False(t, completed)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRunHarvestLookupFaultPropagates(t *testing.T) {
	searcher := &fakeSearcher{uncategorized: []types.Paper{paper("2401.00001v1")}}
	store := &fakeStore{getErr: errors.New("db locked")}

	s := New(searcher, store, &fakeNotifier{}, WithState(State{Query: "q"}))

	_, err := s.RunHarvest(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db locked")
}

func TestRunHarvestFailedNotificationDoesNotAbort(t *testing.T) {
	searcher := &fakeSearcher{uncategorized: []types.Paper{paper("2401.00001v1")}}
	store := &fakeStore{}
	notifier := &fakeNotifier{ok: false}

	s := New(searcher, store, notifier,
		WithState(State{Query: "q", Webhook: "https://hooks.example.com/T/B/x"}),
	)

	completed, err := s.RunHarvest(context.Background())
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Len(t, store.upserted, 1)
	assert.Len(t, notifier.batches, 1)
}

func TestRunHarvestNoWebhookSkipsNotification(t *testing.T) {
	searcher := &fakeSearcher{uncategorized: []types.Paper{paper("2401.00001v1")}}
	notifier := &fakeNotifier{ok: true}

	s := New(searcher, &fakeStore{}, notifier, WithState(State{Query: "q"}))

	completed, err := s.RunHarvest(context.Background())
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Empty(t, notifier.batches)
}

func TestRunHarvestUncategorizedSearchDefaults(t *testing.T) {
	searcher := &fakeSearcher{}

	s := New(searcher, &fakeStore{}, &fakeNotifier{}, WithState(State{Query: "q"}))

	_, err := s.RunHarvest(context.Background())
	require.NoError(t, err)

	require.Len(t, searcher.calls, 1)
	assert.Empty(t, searcher.calls[0].Category)
	assert.Equal(t, DefaultMaxResults, searcher.calls[0].MaxResults)
}

func TestIsDue(t *testing.T) {
	base := fixedNow()
	tests := []struct {
		name     string
		schedule string
		lastRun  time.Time
		want     bool
	}{
		{"no prior run", "daily", time.Time{}, true},
		{"daily not elapsed", "daily", base.Add(-23 * time.Hour), false},
		{"daily exactly elapsed", "daily", base.Add(-24 * time.Hour), true},
		{"weekly not elapsed", "weekly", base.Add(-6 * 24 * time.Hour), false},
		{"weekly elapsed", "weekly", base.Add(-8 * 24 * time.Hour), true},
		{"monthly not elapsed", "monthly", base.Add(-29 * 24 * time.Hour), false},
		{"monthly elapsed", "monthly", base.Add(-31 * 24 * time.Hour), true},
		{"unknown schedule treated as weekly", "fortnightly", base.Add(-8 * 24 * time.Hour), true},
		{"unknown schedule not elapsed", "fortnightly", base.Add(-6 * 24 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&fakeSearcher{}, &fakeStore{}, &fakeNotifier{},
				WithState(State{ScheduleType: tt.schedule, LastRunTime: tt.lastRun}),
				WithNow(func() time.Time { return base }),
			)
			assert.Equal(t, tt.want, s.IsDue())
		})
	}
}

func TestFilterNewPreservesOrder(t *testing.T) {
	store := &fakeStore{known: map[string]bool{"b": true}}
	s := New(&fakeSearcher{}, store, &fakeNotifier{})

	papers := []types.Paper{
		{ID: "http://arxiv.org/abs/a"},
		{ID: "http://arxiv.org/abs/b"},
		{ID: "http://arxiv.org/abs/c"},
	}

	fresh, err := s.FilterNew(context.Background(), papers)
	require.NoError(t, err)
	require.Len(t, fresh, 2)
	assert.Equal(t, "http://arxiv.org/abs/a", fresh[0].ID)
	assert.Equal(t, "http://arxiv.org/abs/c", fresh[1].ID)
}