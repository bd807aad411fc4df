package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wildfire-risk-engine/internal/domain"
	"github.com/couchcryptid/wildfire-risk-engine/internal/geo"
	"github.com/couchcryptid/wildfire-risk-engine/internal/observability"
	"github.com/couchcryptid/wildfire-risk-engine/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockLoader struct {
	batches [][]domain.OutputEvent
	err     error
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, events)
	return nil
}

func (m *mockLoader) all() []domain.OutputEvent {
	var out []domain.OutputEvent
	for _, b := range m.batches {
		out = append(out, b...)
	}
	return out
}

var testNow = time.Date(2025, time.August, 2, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(ext pipeline.BatchExtractor, ldr pipeline.BatchLoader, metrics *observability.Metrics) *pipeline.Pipeline {
	window := pipeline.NewWindow(48*time.Hour, clockwork.NewFakeClockAt(testNow))
	return pipeline.New(ext, pipeline.NewTransformer(discardLogger()), ldr, window, discardLogger(), metrics,
		pipeline.Options{BatchSize: 10, ThresholdKm: 10})
}

func runBriefly(t *testing.T, p *pipeline.Pipeline) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

func decodeEvent(t *testing.T, out domain.OutputEvent) domain.ClusterEvent {
	t.Helper()
	var ev domain.ClusterEvent
	require.NoError(t, json.Unmarshal(out.Value, &ev))
	return ev
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	var commits atomic.Int64
	a := makeRawEvent(t, 42.2, 24.8, "2025-08-01", "1048")
	b := makeRawEvent(t, 42.21, 24.81, "2025-08-01", "1049")
	for _, raw := range []*domain.RawEvent{&a, &b} {
		raw.Commit = func(context.Context) error {
			commits.Add(1)
			return nil
		}
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{a, b}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := newTestPipeline(ext, ldr, metrics)

	runBriefly(t, p)

	out := ldr.all()
	require.Len(t, out, 1)
	ev := decodeEvent(t, out[0])
	assert.Equal(t, 2, ev.Cluster.Summary.Count)
	assert.Equal(t, ev.Cluster.ID, string(out[0].Key))
	assert.Equal(t, "2", out[0].Headers["detection_count"])
	assert.Equal(t, "Plovdiv", ev.NearestSettlement)

	assert.Equal(t, int64(2), commits.Load())
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.DetectionsConsumed), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ClustersProduced), 0)
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.WindowDetections), 0)
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{}
	ldr := &mockLoader{}
	p := newTestPipeline(ext, ldr, observability.NewMetricsForTesting())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.batches)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_TransformErrorCommitsAndSkips(t *testing.T) {
	committed := false
	bad := domain.RawEvent{Value: []byte("not json"), Commit: func(context.Context) error {
		committed = true
		return nil
	}}
	noCoords := makeRawEvent(t, 0, 0, "2025-08-01", "1048")
	noCoords.Value = []byte(`{"latitude":"","longitude":"","frp":"3"}`)

	ext := &mockExtractor{batches: [][]domain.RawEvent{{bad, noCoords}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := newTestPipeline(ext, ldr, metrics)

	runBriefly(t, p)

	assert.Empty(t, ldr.batches)
	assert.True(t, committed)
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.TransformErrors), 0)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_PublishesOnlyTouchedClusters(t *testing.T) {
	plovdiv := makeRawEvent(t, 42.2, 24.8, "2025-08-01", "1048")
	ruse := makeRawEvent(t, 43.85, 25.96, "2025-08-01", "1100")
	// 6 km north of the first Plovdiv detection.
	lat, lon := geo.DestinationPoint(42.2, 24.8, 0, 6)
	plovdivGrowth := makeRawEvent(t, lat, lon, "2025-08-02", "0100")

	ext := &mockExtractor{batches: [][]domain.RawEvent{{plovdiv}, {ruse}, {plovdivGrowth}}}
	ldr := &mockLoader{}
	p := newTestPipeline(ext, ldr, observability.NewMetricsForTesting())

	runBriefly(t, p)

	require.Len(t, ldr.batches, 3)
	for _, b := range ldr.batches {
		require.Len(t, b, 1)
	}
	first := decodeEvent(t, ldr.batches[0][0])
	second := decodeEvent(t, ldr.batches[1][0])
	third := decodeEvent(t, ldr.batches[2][0])

	assert.Equal(t, "Ruse", second.NearestSettlement)
	assert.Equal(t, 1, first.Cluster.Summary.Count)
	assert.Equal(t, 2, third.Cluster.Summary.Count)
	assert.NotEqual(t, first.Cluster.ID, third.Cluster.ID, "membership change yields a new cluster id")
	assert.Equal(t, 3, p.Window().Len())
}

func TestPipeline_Run_LoadFailureLeavesOffsetsUncommitted(t *testing.T) {
	committed := false
	raw := makeRawEvent(t, 42.2, 24.8, "2025-08-01", "1048")
	raw.Commit = func(context.Context) error {
		committed = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{err: errors.New("broker unavailable")}
	metrics := observability.NewMetricsForTesting()
	p := newTestPipeline(ext, ldr, metrics)

	runBriefly(t, p)

	assert.False(t, committed)
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.ClustersProduced), 0)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ExpiredDetectionsAreNotPublished(t *testing.T) {
	committed := false
	stale := makeRawEvent(t, 42.2, 24.8, "2025-07-20", "1048")
	stale.Commit = func(context.Context) error {
		committed = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{stale}}}
	ldr := &mockLoader{}
	p := newTestPipeline(ext, ldr, observability.NewMetricsForTesting())

	runBriefly(t, p)

	assert.Empty(t, ldr.batches)
	assert.Zero(t, p.Window().Len())
	assert.True(t, committed)
}

func TestPipeline_Run_RedeliveryDoesNotDuplicate(t *testing.T) {
	raw := makeRawEvent(t, 42.2, 24.8, "2025-08-01", "1048")

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}, {raw}}}
	ldr := &mockLoader{}
	p := newTestPipeline(ext, ldr, observability.NewMetricsForTesting())

	runBriefly(t, p)

	require.Len(t, ldr.batches, 2)
	assert.Equal(t, 1, p.Window().Len())
	assert.Equal(t, ldr.batches[0][0].Key, ldr.batches[1][0].Key)
}

func TestDetectionTransformer_Transform(t *testing.T) {
	raw := makeRawEvent(t, 42.17834, 24.81223, "2025-08-01", "948")

	det, err := pipeline.NewTransformer(discardLogger()).Transform(context.Background(), raw)
	require.NoError(t, err)
	assert.InDelta(t, 42.17834, det.Latitude, 1e-9)
	assert.Equal(t, "0948", det.AcqTime)
	assert.NotEmpty(t, det.ID)
}

func TestLabeler_Label(t *testing.T) {
	c := domain.FireCluster{ID: "c1", CenterLat: 43.85, CenterLon: 25.96}

	ev := pipeline.NewLabeler(nil).Label(c)
	assert.Equal(t, "Ruse", ev.NearestSettlement)
	assert.Greater(t, ev.SettlementKm, 0.0)

	ev = pipeline.NewLabeler([]domain.Settlement{}).Label(c)
	assert.Empty(t, ev.NearestSettlement)
}

// --- helpers ---

func makeRawEvent(t *testing.T, lat, lon float64, date, hhmm string) domain.RawEvent {
	t.Helper()
	rec := domain.RawDetectionRecord{
		Latitude:   strconv.FormatFloat(lat, 'f', 5, 64),
		Longitude:  strconv.FormatFloat(lon, 'f', 5, 64),
		BrightTI4:  "330.1",
		BrightTI5:  "295.4",
		FRP:        "5.2",
		AcqDate:    date,
		AcqTime:    hhmm,
		Satellite:  "N",
		Instrument: "VIIRS",
		Confidence: "n",
		DayNight:   "D",
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	return domain.RawEvent{Key: []byte(rec.Latitude + "," + rec.Longitude), Value: data}
}
