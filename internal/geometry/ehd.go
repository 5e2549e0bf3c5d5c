package geometry

import (
	"math"

	"github.com/posture-coach/engine/internal/models"
)

const (
	earLeftIdx      = 7
	earRightIdx     = 8
	shoulderLeftIdx = 11
	shoulderRightIdx = 12
	minShoulderWidth = 1e-5
)

// EHD computes the ear-shoulder horizontal displacement (spec.md §4.1).
// World landmarks are preferred over image landmarks when both are present.
// Returns nil if the shoulder width is degenerate or any input is
// non-finite — these are transient-arithmetic conditions (spec.md §7), not
// errors.
func EHD(pose models.PoseLandmarks) *MetricResult {
	pts := pose.WorldPoints
	source := models.SourcePoseWorld
	if len(pts) <= shoulderRightIdx {
		pts = pose.Points
		source = models.SourcePoseImage
	}
	if len(pts) <= shoulderRightIdx {
		return nil
	}

	leftEar, rightEar := pts[earLeftIdx], pts[earRightIdx]
	leftShoulder, rightShoulder := pts[shoulderLeftIdx], pts[shoulderRightIdx]

	for _, p := range []models.Landmark{leftEar, rightEar, leftShoulder, rightShoulder} {
		if !finite(p.X) || !finite(p.Y) {
			return nil
		}
	}

	shoulderWidth := math.Abs(leftShoulder.X - rightShoulder.X)
	if shoulderWidth < minShoulderWidth {
		return nil
	}

	earX, _ := meanPoint(leftEar, rightEar)
	shoulderX, _ := meanPoint(leftShoulder, rightShoulder)

	value := math.Abs(earX-shoulderX) / shoulderWidth
	if !finite(value) {
		return nil
	}

	return &MetricResult{
		Value:      float32(value),
		Source:     source,
		Confidence: poseConfidenceBucket(pose.Confidence),
	}
}
