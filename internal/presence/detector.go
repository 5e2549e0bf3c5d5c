// Package presence implements the face/pose presence detector described in
// spec.md §4.3: a consecutive-frame hysteresis over face and pose
// confidence/visibility.
package presence

import "github.com/posture-coach/engine/internal/models"

const (
	faceConfidenceThreshold = 0.4
	poseConfidenceThreshold = 0.4
	poseVisibilityThreshold = 0.25

	defaultPresentConsecutiveFrames = 5
	defaultAbsentConsecutiveFrames  = 10

	leftShoulderIdx  = 11
	rightShoulderIdx = 12
	leftHipIdx       = 23
	rightHipIdx      = 24
)

// Options configures the detector's dwell frame counts and hip requirement.
type Options struct {
	PresentConsecutiveFrames int
	AbsentConsecutiveFrames  int
	RequireHips              bool
}

func (o Options) withDefaults() Options {
	if o.PresentConsecutiveFrames <= 0 {
		o.PresentConsecutiveFrames = defaultPresentConsecutiveFrames
	}
	if o.AbsentConsecutiveFrames <= 0 {
		o.AbsentConsecutiveFrames = defaultAbsentConsecutiveFrames
	}
	return o
}

// Snapshot is the detector's exposed state after a frame.
type Snapshot struct {
	Presence      models.Presence
	StreakFrames  int
	LastChangedAt float64 // ms, timestamp of the last state change
}

// Detector accumulates consecutive qualifying/non-qualifying frames and
// exposes a hysteresis-smoothed presence state.
type Detector struct {
	opts Options

	current       models.Presence
	consecutive   int
	lastChangedAt float64
}

// New creates a presence detector, initially ABSENT.
func New(opts Options) *Detector {
	return &Detector{
		opts:    opts.withDefaults(),
		current: models.PresenceAbsent,
	}
}

// Observe feeds one frame's face/pose payload and timestamp (ms) through the
// hysteresis and returns the resulting snapshot.
func (d *Detector) Observe(face *models.FaceLandmarks, pose *models.PoseLandmarks, timestampMs float64) Snapshot {
	qualifying := faceQualifies(face) || poseQualifies(pose, d.opts.RequireHips)

	switch d.current {
	case models.PresencePresent:
		if qualifying {
			d.consecutive = 0
		} else {
			d.consecutive++
			if d.consecutive >= d.opts.AbsentConsecutiveFrames {
				d.current = models.PresenceAbsent
				d.consecutive = 0
				d.lastChangedAt = timestampMs
			}
		}
	default:
		if qualifying {
			d.consecutive++
			if d.consecutive >= d.opts.PresentConsecutiveFrames {
				d.current = models.PresencePresent
				d.consecutive = 0
				d.lastChangedAt = timestampMs
			}
		} else {
			d.consecutive = 0
		}
	}

	return Snapshot{
		Presence:      d.current,
		StreakFrames:  d.consecutive,
		LastChangedAt: d.lastChangedAt,
	}
}

func faceQualifies(face *models.FaceLandmarks) bool {
	return face != nil && face.Confidence >= faceConfidenceThreshold
}

func poseQualifies(pose *models.PoseLandmarks, requireHips bool) bool {
	if pose == nil || pose.Confidence < poseConfidenceThreshold {
		return false
	}
	pts := pose.Points
	if !visible(pts, leftShoulderIdx) || !visible(pts, rightShoulderIdx) {
		return false
	}
	if requireHips && (!visible(pts, leftHipIdx) || !visible(pts, rightHipIdx)) {
		return false
	}
	return true
}

func visible(pts []models.Landmark, idx int) bool {
	if idx >= len(pts) {
		return false
	}
	return pts[idx].Visibility >= poseVisibilityThreshold
}
