package geometry

import "github.com/posture-coach/engine/internal/models"

// HeadPose result bundles the three Euler angles with their provenance.
type HeadPose struct {
	Angles EulerAngles
	Source models.MetricSource
}

// ResolveHeadPose prefers the face-transform matrix path; on gimbal lock or
// a missing matrix it falls back to the 6-point PnP solver (spec.md §4.1).
// ok=false means neither path produced a usable angle for this frame.
func ResolveHeadPose(face models.FaceLandmarks, imgW, imgH int, fovDeg float64) (HeadPose, bool) {
	if face.TransformationMatrix != nil {
		if angles, ok := HeadPoseFromMatrix(*face.TransformationMatrix); ok {
			return HeadPose{Angles: angles, Source: models.SourceFaceTransform}, true
		}
	}

	angles, err := SolvePnP(face, imgW, imgH, fovDeg)
	if err != nil {
		return HeadPose{}, false
	}
	return HeadPose{Angles: angles, Source: models.SourceSolvePnP}, true
}
