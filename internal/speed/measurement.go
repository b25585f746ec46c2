package speed

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Measurement is one reported speed.
type Measurement struct {
	ID       string        `json:"id"`
	Frame    int           `json:"frame"`
	At       time.Time     `json:"at"`
	Interval time.Duration `json:"interval_ns"`
	KMH      float64       `json:"kmh"`
}

// NewMeasurement stamps a reading with a fresh ID.
func NewMeasurement(frame int, at time.Time, r Reading) Measurement {
	return Measurement{
		ID:       uuid.NewString(),
		Frame:    frame,
		At:       at,
		Interval: r.Interval,
		KMH:      r.KMH,
	}
}

// Summary aggregates the measurements of a session.
type Summary struct {
	Count     int     `json:"count"`
	MeanKMH   float64 `json:"mean_kmh"`
	StdDevKMH float64 `json:"stddev_kmh"`
	MinKMH    float64 `json:"min_kmh"`
	MaxKMH    float64 `json:"max_kmh"`
	MedianKMH float64 `json:"median_kmh"`
	P85KMH    float64 `json:"p85_kmh"`
}

// Summarize computes session statistics. An empty input yields a zero Summary.
func Summarize(ms []Measurement) Summary {
	if len(ms) == 0 {
		return Summary{}
	}

	speeds := make([]float64, len(ms))
	for i, m := range ms {
		speeds[i] = m.KMH
	}
	sort.Float64s(speeds)

	mean, std := stat.MeanStdDev(speeds, nil)
	if len(speeds) < 2 || math.IsNaN(std) {
		std = 0
	}

	return Summary{
		Count:     len(speeds),
		MeanKMH:   mean,
		StdDevKMH: std,
		MinKMH:    floats.Min(speeds),
		MaxKMH:    floats.Max(speeds),
		MedianKMH: stat.Quantile(0.5, stat.Empirical, speeds, nil),
		P85KMH:    stat.Quantile(0.85, stat.Empirical, speeds, nil),
	}
}
