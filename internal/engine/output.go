package engine

import (
	"math"

	"github.com/posture-coach/engine/internal/geometry"
	"github.com/posture-coach/engine/internal/models"
	"github.com/posture-coach/engine/internal/signal"
)

// nominalImageWidth/Height describe a virtual camera frame used to resolve
// head pose when the upstream detector does not report pixel dimensions;
// the PnP solver's result is invariant to uniform scaling of these, but
// sensitive to their aspect ratio, so a common webcam aspect is assumed.
const (
	nominalImageWidth  = 640
	nominalImageHeight = 480
)

func (w *Worker) resolveAngles(frame models.EngineFramePayload) (geometry.EulerAngles, bool) {
	if frame.Face == nil {
		return geometry.EulerAngles{}, false
	}
	pose, ok := geometry.ResolveHeadPose(*frame.Face, nominalImageWidth, nominalImageHeight, defaultFOVDeg)
	if !ok {
		return geometry.EulerAngles{}, false
	}
	return pose.Angles, true
}

// computeMetrics runs the geometry kernels and feeds their outputs through
// the signal processor, producing one MetricValues per frame.
func (w *Worker) computeMetrics(frame models.EngineFramePayload, presenceState models.Presence, reliability models.Reliability, deltaSeconds float64) models.MetricValues {
	frameConfidence := frameConfidencePtr(frame)
	w.signals.BeginFrame(frameConfidence)

	fc := signal.FrameContext{DeltaSeconds: deltaSeconds, Reliability: reliability}

	out := models.MetricValues{FrameID: frame.FrameID, Timestamp: frame.ProcessedAt, Metrics: map[models.MetricKey]models.MetricSeries{}}

	if presenceState != models.PresencePresent {
		out.Flags.BaselinePending = w.baselineFaceSize == nil
		return out
	}

	angles, haveAngles := w.resolveAngles(frame)

	if haveAngles {
		pitch32 := float32(angles.PitchDeg)
		yaw32 := float32(angles.YawDeg)
		roll32 := float32(angles.RollDeg)
		out.Metrics[models.MetricPitch] = w.signals.Process(models.MetricPitch, signal.Sample{Raw: &pitch32, Confidence: models.ConfidenceHigh}, fc)
		out.Metrics[models.MetricYaw] = w.signals.Process(models.MetricYaw, signal.Sample{Raw: &yaw32, Confidence: models.ConfidenceHigh}, fc)
		out.Metrics[models.MetricRoll] = w.signals.Process(models.MetricRoll, signal.Sample{Raw: &roll32, Confidence: models.ConfidenceHigh}, fc)
	} else {
		out.Metrics[models.MetricPitch] = w.signals.Process(models.MetricPitch, signal.Sample{Confidence: models.ConfidenceNone}, fc)
	}

	if frame.Pose != nil {
		if ehd := geometry.EHD(*frame.Pose); ehd != nil {
			v := ehd.Value
			out.Metrics[models.MetricEHD] = w.signals.Process(models.MetricEHD, signal.Sample{Raw: &v, Confidence: ehd.Confidence}, fc)
		}
	}

	if frame.Face != nil {
		faceHighConf := frame.Face.Confidence >= 0.3
		if w.baselineFaceSize == nil && geometry.ShouldLatchBaseline(w.baselineFaceSize, faceHighConf) {
			if size, ok := geometry.FaceBBoxSize(*frame.Face); ok {
				s := float32(size)
				w.baselineFaceSize = &s
			}
		}
		if dpr := geometry.DPR(*frame.Face, w.baselineFaceSize, faceHighConf); dpr != nil {
			v := dpr.Value
			out.Metrics[models.MetricDPR] = w.signals.Process(models.MetricDPR, signal.Sample{Raw: &v, Confidence: dpr.Confidence}, fc)
		}
	}

	out.BaselineFaceSize = w.baselineFaceSize
	out.Flags.BaselinePending = w.baselineFaceSize == nil
	out.Flags.LowConfidence = frameConfidence != nil && *frameConfidence < w.store.Signal().ConfidenceThreshold

	return out
}

func frameConfidencePtr(frame models.EngineFramePayload) *float64 {
	conf := 0.0
	have := false
	if frame.Face != nil {
		conf = math.Max(conf, frame.Face.Confidence)
		have = true
	}
	if frame.Pose != nil {
		conf = math.Max(conf, frame.Pose.Confidence)
		have = true
	}
	if !have {
		return nil
	}
	return &conf
}

func confidenceOf(face *models.FaceLandmarks) float64 {
	if face == nil {
		return 0
	}
	return face.Confidence
}

func poseConfidenceOf(pose *models.PoseLandmarks) float64 {
	if pose == nil {
		return 0
	}
	return pose.Confidence
}

func buildTickMetrics(metrics models.MetricValues) models.TickMetrics {
	tm := models.TickMetrics{}
	if s, ok := metrics.Metrics[models.MetricPitch]; ok && s.Smoothed != nil {
		tm.PitchDeg = roundHalfAwayFromZero(*s.Smoothed, 3)
	}
	if s, ok := metrics.Metrics[models.MetricEHD]; ok && s.Smoothed != nil {
		tm.EHDNorm = *s.Smoothed
	}
	if s, ok := metrics.Metrics[models.MetricDPR]; ok && s.Smoothed != nil {
		tm.DPR = *s.Smoothed
	} else {
		tm.DPR = 1
	}

	conf := float32(1)
	for _, key := range []models.MetricKey{models.MetricPitch, models.MetricEHD, models.MetricDPR} {
		if s, ok := metrics.Metrics[key]; ok {
			switch s.Confidence {
			case models.ConfidenceLow:
				conf = minFloat32(conf, 0.5)
			case models.ConfidenceNone:
				conf = minFloat32(conf, 0)
			}
		}
	}
	tm.Conf = conf
	return tm
}

func minFloat32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func outwardPresence(p models.Presence) string {
	if p == models.PresencePresent {
		return "PRESENT"
	}
	return "ABSENT"
}

func outwardReliability(r models.Reliability) string {
	if r == models.ReliabilityUnreliable {
		return "UNRELIABLE"
	}
	return "OK"
}

func fpsFromDelta(deltaSeconds float64) (float32, bool) {
	if deltaSeconds <= 0 {
		return 0, false
	}
	return float32(1.0 / deltaSeconds), true
}

// roundHalfAwayFromZero rounds v to the given number of decimal places
// using round-half-away-from-zero, per spec.md §9's transport rounding
// rule.
func roundHalfAwayFromZero(v float32, decimals int) float32 {
	scale := math.Pow(10, float64(decimals))
	x := float64(v) * scale
	if x >= 0 {
		return float32(math.Floor(x+0.5) / scale)
	}
	return float32(math.Ceil(x-0.5) / scale)
}
