package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/wildfire-risk-engine/internal/domain"
	"github.com/couchcryptid/wildfire-risk-engine/internal/settlement"
)

// DetectionTransformer implements Transformer using the domain parsing rules.
type DetectionTransformer struct {
	logger *slog.Logger
}

// NewTransformer creates a DetectionTransformer.
func NewTransformer(logger *slog.Logger) *DetectionTransformer {
	return &DetectionTransformer{logger: logger}
}

func (t *DetectionTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.FireDetection, error) {
	det, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.FireDetection{}, err
	}
	t.logger.Debug("detection parsed", "id", det.ID, "satellite", det.Satellite, "frp", det.FRP)
	return det, nil
}

// Labeler attaches the nearest settlement to clusters.
type Labeler struct {
	settlements []domain.Settlement
}

// NewLabeler creates a Labeler over the given settlements. Nil uses the built-in list.
func NewLabeler(settlements []domain.Settlement) *Labeler {
	if settlements == nil {
		settlements = settlement.Bulgaria
	}
	return &Labeler{settlements: settlements}
}

// Label builds the outgoing event for a cluster.
func (l *Labeler) Label(c domain.FireCluster) domain.ClusterEvent {
	s, km, ok := settlement.Nearest(c.CenterLat, c.CenterLon, l.settlements)
	if !ok {
		return domain.NewClusterEvent(c, nil, 0)
	}
	return domain.NewClusterEvent(c, &s, km)
}
