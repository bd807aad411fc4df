package domain

import (
	"context"
	"time"
)

// RawDetectionRecord represents the flat JSON structure produced by the collector,
// one FIRMS CSV row with every column kept as a string.
type RawDetectionRecord struct {
	Latitude   string `json:"latitude"`
	Longitude  string `json:"longitude"`
	BrightTI4  string `json:"bright_ti4"`
	Scan       string `json:"scan"`
	Track      string `json:"track"`
	AcqDate    string `json:"acq_date"`
	AcqTime    string `json:"acq_time"`
	Satellite  string `json:"satellite"`
	Instrument string `json:"instrument"`
	Confidence string `json:"confidence"`
	Version    string `json:"version"`
	BrightTI5  string `json:"bright_ti5"`
	FRP        string `json:"frp"`
	DayNight   string `json:"daynight"`
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// FireDetection is a single thermal anomaly or user report.
type FireDetection struct {
	ID         string  `json:"id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	BrightTI4  float64 `json:"bright_ti4"`
	BrightTI5  float64 `json:"bright_ti5"`
	FRP        float64 `json:"frp"`
	Scan       float64 `json:"scan"`
	Track      float64 `json:"track"`
	AcqDate    string  `json:"acq_date"`
	AcqTime    string  `json:"acq_time"`
	Satellite  string  `json:"satellite"`
	Instrument string  `json:"instrument"`
	Confidence string  `json:"confidence"` // "h", "n", "l"
	Version    string  `json:"version,omitempty"`
	DayNight   string  `json:"daynight"` // "D" or "N"
	IsReport   bool    `json:"is_report,omitempty"`
	ImageURL   string  `json:"image_url,omitempty"`
}

// Aggregate summarizes a group of detections.
type Aggregate struct {
	Count        int     `json:"count"`
	FRPSum       float64 `json:"frp_sum"`
	FRPAvg       float64 `json:"frp_avg"`
	BrightTI4Avg float64 `json:"bright_ti4_avg"`
	BrightTI5Avg float64 `json:"bright_ti5_avg"`
	Confidence   string  `json:"confidence"` // "h" if any high, else "n" if any nominal, else first member's
	DayNight     string  `json:"daynight"`   // "D"/"N" when uniform, "M" when mixed
	DateRange    string  `json:"date_range"` // single date or "start…end"
}

// FireCluster is a connected component of detections under a distance threshold.
// Clusters are recomputed from scratch for every batch.
type FireCluster struct {
	ID         string          `json:"id"`
	CenterLat  float64         `json:"center_lat"`
	CenterLon  float64         `json:"center_lon"`
	Detections []FireDetection `json:"detections"`
	Summary    Aggregate       `json:"summary"`
}

// SpreadPrediction is the directional growth of one fire over a time horizon.
type SpreadPrediction struct {
	DirectionDeg float64 `json:"direction_deg"` // compass bearing the fire moves toward
	SpeedKPH     float64 `json:"speed_kph"`
	RadiusKm     float64 `json:"radius_km"`
	AreaKm2      float64 `json:"area_km2"`
}

// Drawable reports whether the predicted radius is large enough to be worth displaying.
func (p SpreadPrediction) Drawable() bool {
	return p.RadiusKm > 0.01
}

// Settlement is a named place used to label clusters and score city risk.
type Settlement struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// ClusterEvent is the enriched cluster published to the sink topic.
type ClusterEvent struct {
	Cluster           FireCluster `json:"cluster"`
	NearestSettlement string      `json:"nearest_settlement,omitempty"`
	SettlementKm      float64     `json:"settlement_distance_km,omitempty"`
	ProcessedAt       time.Time   `json:"processed_at"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
