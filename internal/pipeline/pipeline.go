package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/wildfire-risk-engine/internal/cluster"
	"github.com/couchcryptid/wildfire-risk-engine/internal/domain"
	"github.com/couchcryptid/wildfire-risk-engine/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts a raw event into a detection.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.FireDetection, error)
}

// BatchLoader writes multiple output events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Options tunes the clustering stage.
type Options struct {
	BatchSize   int
	ThresholdKm float64
	Settlements []domain.Settlement
}

// Pipeline orchestrates the extract-cluster-load loop. Each batch of detections
// is merged into the window, the whole window is re-clustered and every cluster
// that gained or refreshed a detection is published.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	window      *Window
	labeler     *Labeler
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
	thresholdKm float64
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, w *Window, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		window:      w,
		labeler:     NewLabeler(opts.Settlements),
		logger:      logger,
		metrics:     metrics,
		batchSize:   opts.BatchSize,
		thresholdKm: opts.ThresholdKm,
	}
}

// CheckReadiness returns nil once the pipeline has published at least one cluster.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not published any clusters yet")
	}
	return nil
}

// Window exposes the detections the pipeline clusters over.
func (p *Pipeline) Window() *Window {
	return p.window
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize, "threshold_km", p.thresholdKm)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one extract-cluster-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.DetectionsConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = initialBackoff

	loaded, ok := p.clusterAndLoad(ctx, rawBatch, backoff)
	if !ok {
		return false
	}

	if loaded > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// clusterAndLoad parses the batch, merges it into the window, publishes the
// affected clusters and commits offsets. Returns the number of published
// clusters and false if the pipeline should stop.
func (p *Pipeline) clusterAndLoad(ctx context.Context, rawBatch []domain.RawEvent, backoff *time.Duration) (int, bool) {
	dets := make([]domain.FireDetection, 0, len(rawBatch))
	successfulRaws := make([]domain.RawEvent, 0, len(rawBatch))

	for _, raw := range rawBatch {
		det, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("transform failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		dets = append(dets, det)
		successfulRaws = append(successfulRaws, raw)
	}

	if len(dets) == 0 {
		return 0, true
	}

	added := p.window.Add(dets)
	if pruned := p.window.Prune(); pruned > 0 {
		p.logger.Debug("expired detections pruned", "pruned", pruned)
	}
	p.metrics.WindowDetections.Set(float64(p.window.Len()))

	outBatch := p.touchedClusterEvents(dets)
	p.logger.Debug("batch clustered",
		"detections", len(dets), "new", added, "window", p.window.Len(), "published", len(outBatch))

	if len(outBatch) > 0 {
		if err := p.loader.LoadBatch(ctx, outBatch); err != nil {
			p.logger.Error("load batch failed", "error", err, "batch_size", len(outBatch))
			return 0, p.backoffOrStop(ctx, backoff)
		}
		p.metrics.ClustersProduced.Add(float64(len(outBatch)))
	}

	for _, raw := range successfulRaws {
		p.commitOffset(ctx, raw)
	}

	return len(outBatch), true
}

// touchedClusterEvents re-clusters the window and serializes every cluster that
// contains one of dets.
func (p *Pipeline) touchedClusterEvents(dets []domain.FireDetection) []domain.OutputEvent {
	batchIDs := make(map[string]struct{}, len(dets))
	for _, d := range dets {
		batchIDs[d.ID] = struct{}{}
	}

	var out []domain.OutputEvent
	for _, c := range cluster.Cluster(p.window.Snapshot(), p.thresholdKm) {
		if !containsAny(c, batchIDs) {
			continue
		}
		ev, err := domain.SerializeClusterEvent(p.labeler.Label(c))
		if err != nil {
			p.logger.Warn("serialize cluster failed", "error", err, "cluster_id", c.ID)
			continue
		}
		out = append(out, ev)
	}
	return out
}

func containsAny(c domain.FireCluster, ids map[string]struct{}) bool {
	for _, d := range c.Detections {
		if _, ok := ids[d.ID]; ok {
			return true
		}
	}
	return false
}

// backoffOrStop sleeps with the current backoff and advances it.
// Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
