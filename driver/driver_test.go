package driver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paolobietolini/atac-realtime/config"
	"github.com/paolobietolini/atac-realtime/event_server"
	"github.com/paolobietolini/atac-realtime/internal/feedtest"
	"github.com/paolobietolini/atac-realtime/metrics"
	"github.com/paolobietolini/atac-realtime/notifiers"
	"github.com/paolobietolini/atac-realtime/pipelines"
	"github.com/paolobietolini/atac-realtime/sinks"
	"github.com/paolobietolini/atac-realtime/sources"
	"github.com/paolobietolini/atac-realtime/state_stores"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tick = time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC)

func fixedClock() time.Time { return tick }

// atacServer serves one endpoint per feed kind; trip_updates answers 503.
func atacServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/vehicle_positions", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(feedtest.Marshal(t, feedtest.Message(1700000000,
			feedtest.VehicleEntity("e1", "v1", "64", 41.9, 12.5),
			feedtest.BareVehicleEntity("e2", "v2"),
		)))
	})
	mux.HandleFunc("/trip_updates", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/alerts", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(feedtest.Marshal(t, feedtest.Message(1700000000,
			feedtest.AlertEntity("a1", "Sciopero", "Servizio ridotto", feedtest.RouteSelector("64")),
		)))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func testConfig(url, root string) *config.Config {
	feeds := make([]config.FeedConfig, 0, len(config.FeedKinds))
	for _, kind := range config.FeedKinds {
		feeds = append(feeds, config.FeedConfig{Kind: kind, URL: url + "/" + string(kind)})
	}
	return &config.Config{
		PollInterval:    time.Minute,
		FetchTimeout:    time.Second,
		OutputDirectory: root,
		AlertLanguage:   "it",
		Feeds:           feeds,
	}
}

type recordingJournal struct {
	mu       sync.Mutex
	outcomes []pipelines.Outcome
	err      error
}

func (j *recordingJournal) Record(_ context.Context, o pipelines.Outcome) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outcomes = append(j.outcomes, o)
	return j.err
}

func (j *recordingJournal) Close() {}

type recordingNotifier struct {
	mu      sync.Mutex
	updates []notifiers.PartitionUpdate
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, u notifiers.PartitionUpdate) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, u)
	return n.err
}

func (n *recordingNotifier) Close() error { return nil }

func TestRunOnceIsolatesFailures(t *testing.T) {
	ts := atacServer(t)
	root := t.TempDir()
	cfg := testConfig(ts.URL, root)

	collector := metrics.NewCollector()
	j := &recordingJournal{}
	n := &recordingNotifier{}
	es := event_server.NewEventServer(config.EventServerConfig{}, nil)
	d, err := New(cfg, sinks.NewFileSystemStore(root), nil,
		WithClock(fixedClock), WithMetrics(collector), WithJournal(j), WithNotifier(n), WithEventServer(es))
	require.NoError(t, err)

	outcomes := d.RunOnce(context.Background())
	require.Len(t, outcomes, 3)

	vp, tu, al := outcomes[0], outcomes[1], outcomes[2]
	assert.Equal(t, config.FeedKindVehiclePositions, vp.Kind)
	assert.NoError(t, vp.Err)
	assert.Equal(t, 2, vp.Records)

	assert.Equal(t, config.FeedKindTripUpdates, tu.Kind)
	var fetchErr *sources.FetchError
	require.True(t, errors.As(tu.Err, &fetchErr))
	assert.Equal(t, http.StatusServiceUnavailable, fetchErr.StatusCode)

	assert.Equal(t, config.FeedKindAlerts, al.Kind)
	assert.NoError(t, al.Err)
	assert.Equal(t, 1, al.Records)

	assert.Equal(t, vp.RunID, tu.RunID)
	assert.Equal(t, vp.RunID, al.RunID)

	for _, kind := range []string{"vehicle_positions", "alerts"} {
		_, err := os.Stat(filepath.Join(root, kind, "2023-11-14.parquet"))
		assert.NoError(t, err, kind)
	}
	_, err = os.Stat(filepath.Join(root, "trip_updates"))
	assert.True(t, os.IsNotExist(err))

	assert.Len(t, j.outcomes, 3)
	assert.Len(t, n.updates, 2)
	assert.Len(t, es.Status(), 3)
	assert.Equal(t, "fetch_error", es.Status()[config.FeedKindTripUpdates]["result"])
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Ticks))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Cycles.WithLabelValues("trip_updates", "fetch_error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.Records.WithLabelValues("vehicle_positions")))
}

func TestSideEffectFailuresDoNotChangeOutcome(t *testing.T) {
	ts := atacServer(t)
	root := t.TempDir()
	d, err := New(testConfig(ts.URL, root), sinks.NewFileSystemStore(root), nil,
		WithClock(fixedClock),
		WithJournal(&recordingJournal{err: errors.New("journal down")}),
		WithNotifier(&recordingNotifier{err: errors.New("redis down")}),
	)
	require.NoError(t, err)

	outcomes := d.RunOnce(context.Background())
	require.Len(t, outcomes, 3)
	assert.NoError(t, outcomes[0].Err)
	assert.NoError(t, outcomes[2].Err)
}

func TestSkipUnchangedAcrossTicks(t *testing.T) {
	ts := atacServer(t)
	root := t.TempDir()
	cfg := testConfig(ts.URL, root)
	cfg.Feeds[0].SkipUnchanged = true
	cursors := state_stores.NewInMemoryStateStore(config.InMemoryStateStoreConfig{})
	defer cursors.Close()
	n := &recordingNotifier{}

	d, err := New(cfg, sinks.NewFileSystemStore(root), cursors, WithClock(fixedClock), WithNotifier(n))
	require.NoError(t, err)

	first := d.RunOnce(context.Background())
	second := d.RunOnce(context.Background())
	assert.False(t, first[0].Skipped)
	assert.True(t, second[0].Skipped)
	// alerts do not skip, so they are appended twice
	assert.False(t, second[2].Skipped)
	assert.Len(t, n.updates, 3)
}

type blockingPipeline struct {
	kind    config.FeedKind
	started *sync.WaitGroup
}

func (p blockingPipeline) Kind() config.FeedKind { return p.kind }

func (p blockingPipeline) Run(_ context.Context, runID string, now time.Time) pipelines.Outcome {
	p.started.Done()
	// returns only once every pipeline of the tick is running
	done := make(chan struct{})
	go func() { p.started.Wait(); close(done) }()
	select {
	case <-done:
		return pipelines.Outcome{RunID: runID, Kind: p.kind, Start: now}
	case <-time.After(2 * time.Second):
		return pipelines.Outcome{RunID: runID, Kind: p.kind, Start: now, Stage: pipelines.StageFetch, Err: errors.New("ran sequentially")}
	}
}

func TestRunOnceRunsKindsConcurrently(t *testing.T) {
	var started sync.WaitGroup
	started.Add(len(config.FeedKinds))
	ps := make([]pipelines.Pipeline, 0, len(config.FeedKinds))
	for i := len(config.FeedKinds) - 1; i >= 0; i-- {
		ps = append(ps, blockingPipeline{kind: config.FeedKinds[i], started: &started})
	}

	outcomes := NewDriver(time.Minute, ps, WithClock(fixedClock)).RunOnce(context.Background())
	require.Len(t, outcomes, 3)
	for i, o := range outcomes {
		assert.NoError(t, o.Err)
		assert.Equal(t, config.FeedKinds[i], o.Kind, "outcomes are returned in feed kind order")
		assert.Equal(t, tick, o.Start)
	}
}

type countingPipeline struct {
	runs atomic.Int32
}

func (p *countingPipeline) Kind() config.FeedKind { return config.FeedKindAlerts }

func (p *countingPipeline) Run(_ context.Context, runID string, now time.Time) pipelines.Outcome {
	p.runs.Add(1)
	return pipelines.Outcome{RunID: runID, Kind: config.FeedKindAlerts, Start: now}
}

func TestRunTicksUntilStop(t *testing.T) {
	p := &countingPipeline{}
	d := NewDriver(10*time.Millisecond, []pipelines.Pipeline{p})

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	require.Eventually(t, func() bool { return p.runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	d.Stop()
	d.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestRunTicksImmediatelyAndStopsOnCancel(t *testing.T) {
	p := &countingPipeline{}
	d := NewDriver(time.Hour, []pipelines.Pipeline{p})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return p.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, int32(1), p.runs.Load())
}

func TestNewDriverDefaultsInterval(t *testing.T) {
	d := NewDriver(0, nil)
	assert.Equal(t, config.DefaultPollInterval, d.interval)
	assert.Empty(t, d.RunOnce(context.Background()))
}
