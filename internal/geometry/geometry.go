// Package geometry implements the pure-function kernels that turn raw
// detector landmarks into the EHD, DPR and head-pose angle metrics
// (spec.md §4.1). Every kernel here is stateless and side-effect free;
// upstream callers own any caching (e.g. the DPR baseline latch).
package geometry

import (
	"math"

	"github.com/posture-coach/engine/internal/models"
)

// MetricResult is the value a geometry kernel hands to the signal processor.
type MetricResult struct {
	Value      float32
	Source     models.MetricSource
	Confidence models.MetricConfidence
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finite32(v float32) bool {
	return finite(float64(v))
}

func poseConfidenceBucket(conf float64) models.MetricConfidence {
	switch {
	case conf >= 0.3:
		return models.ConfidenceHigh
	case conf >= 0.1:
		return models.ConfidenceLow
	default:
		return models.ConfidenceNone
	}
}

// meanPoint averages a set of landmarks; caller guarantees a non-empty slice.
func meanPoint(pts ...models.Landmark) (x, y float64) {
	for _, p := range pts {
		x += p.X
		y += p.Y
	}
	n := float64(len(pts))
	return x / n, y / n
}
