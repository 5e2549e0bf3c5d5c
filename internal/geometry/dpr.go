package geometry

import (
	"math"

	"github.com/posture-coach/engine/internal/models"
)

// FaceBBoxSize computes sqrt(width*height) of the face landmarks' axis
// aligned bounding box. Returns ok=false if there are no points or any
// coordinate is non-finite.
func FaceBBoxSize(face models.FaceLandmarks) (size float64, ok bool) {
	if len(face.Points) == 0 {
		return 0, false
	}
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range face.Points {
		if !finite(p.X) || !finite(p.Y) {
			return 0, false
		}
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	width := maxX - minX
	height := maxY - minY
	size = math.Sqrt(width * height)
	return size, finite(size)
}

// DPR computes the depth-perception ratio: current face size over a
// baseline face size (spec.md §4.1). If baseline is nil, the caller has not
// latched a baseline yet and DPR reports ratio=1 with source=unknown. The
// baseline itself is latched by the caller (one-shot, on the first HIGH
// confidence sample) — this kernel is a pure function of its inputs.
func DPR(face models.FaceLandmarks, baselineFaceSize *float32, faceConfidenceHigh bool) *MetricResult {
	size, ok := FaceBBoxSize(face)
	if !ok {
		return nil
	}

	if baselineFaceSize == nil {
		return &MetricResult{
			Value:      1,
			Source:     models.SourceUnknown,
			Confidence: faceConfidenceBucket(face.Confidence),
		}
	}

	ratio := size / float64(*baselineFaceSize)
	if !finite(ratio) {
		return nil
	}

	return &MetricResult{
		Value:      float32(ratio),
		Source:     models.SourceDPRBaseline,
		Confidence: faceConfidenceBucket(face.Confidence),
	}
}

func faceConfidenceBucket(conf float64) models.MetricConfidence {
	switch {
	case conf >= 0.3:
		return models.ConfidenceHigh
	case conf >= 0.1:
		return models.ConfidenceLow
	default:
		return models.ConfidenceNone
	}
}

// ShouldLatchBaseline reports whether the caller should one-shot-latch the
// current face size as the DPR baseline: baseline unknown and this sample
// carries HIGH confidence.
func ShouldLatchBaseline(baselineFaceSize *float32, faceConfidenceHigh bool) bool {
	return baselineFaceSize == nil && faceConfidenceHigh
}
