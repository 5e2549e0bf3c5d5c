// Package engine owns the single-threaded cooperative worker that
// orchestrates geometry, signal, presence, guardrail, risk, envelope,
// score and calibration components into one EngineTick per upstream frame
// (spec.md §4.10, §5).
package engine

import (
	"math"
	"sync/atomic"

	"github.com/posture-coach/engine/internal/calibration"
	"github.com/posture-coach/engine/internal/config"
	"github.com/posture-coach/engine/internal/envelope"
	"github.com/posture-coach/engine/internal/guardrail"
	"github.com/posture-coach/engine/internal/models"
	"github.com/posture-coach/engine/internal/presence"
	"github.com/posture-coach/engine/internal/risk"
	"github.com/posture-coach/engine/internal/score"
	"github.com/posture-coach/engine/internal/signal"
)

const defaultFOVDeg = 60.0

// ActiveCalibration is the calibration record currently installed, if any.
type ActiveCalibration struct {
	Baseline   risk.Baseline
	Thresholds risk.Thresholds
	Valid      bool
}

// Worker owns every non-shared, single-writer pipeline component. It
// processes one frame end-to-end before accepting the next; no suspension
// points exist inside a single frame (spec.md §5).
type Worker struct {
	store *config.Store

	presence   *presence.Detector
	guardrails *guardrail.Bank
	signals    *signal.Processor
	riskFSM    *risk.FSM
	env        *envelope.Envelope
	scoring    *score.Processor
	calib      *calibration.Flow

	active ActiveCalibration

	lastTickT   uint64
	hasLastTick bool
	lastScore   float32
	lastZone    models.Zone

	baselineFaceSize *float32

	lastMetrics     models.MetricValues
	lastReliability models.Reliability

	paused     atomic.Bool
	isStarting atomic.Bool
}

// NewWorker wires every component against a single live config store.
func NewWorker(store *config.Store) *Worker {
	return &Worker{
		store:      store,
		presence:   presence.New(presence.Options{}),
		guardrails: guardrail.New(store),
		signals:    signal.NewProcessor(store),
		riskFSM:    risk.NewFSM(risk.Params{}),
		env:        envelope.New(envelope.Params{}),
		scoring:    score.New(store),
		calib:      calibration.New(),
	}
}

// InstallCalibration applies a newly completed or explicitly-pushed
// calibration (calibration.complete / calibration.apply).
func (w *Worker) InstallCalibration(active ActiveCalibration) {
	w.active = active
}

// SetPaused implements the idempotent setPaused(bool) control message. The
// isStarting latch (spec.md §9 open question) prevents two concurrent
// resume sequences from racing: Resume is a no-op while a previous resume
// is still in flight.
func (w *Worker) SetPaused(paused bool) {
	if !paused {
		if !w.isStarting.CompareAndSwap(false, true) {
			return // a resume is already in progress; idempotent no-op
		}
		defer w.isStarting.Store(false)
	}
	w.paused.Store(paused)
}

func (w *Worker) Paused() bool { return w.paused.Load() }

// ProcessFrame assembles one EngineTick from an upstream detection frame.
// deltaSeconds is the monotonic time since the previous frame.
func (w *Worker) ProcessFrame(frame models.EngineFramePayload, deltaSeconds float64, nowMs float64) models.EngineTick {
	// 1. Resolve presence.
	presenceSnap := w.presence.Observe(frame.Face, frame.Pose, frame.CapturedAt)
	presenceState := presenceSnap.Presence

	// 2. Resolve reliability via the guardrail bank, falling back to the
	// incoming reliability when geometry/pose signals are unavailable.
	var guardrailResult guardrail.Result
	if frame.Pose != nil || frame.Face != nil {
		angles, haveAngles := w.resolveAngles(frame)
		yaw, roll := 0.0, 0.0
		if haveAngles {
			yaw, roll = angles.YawDeg, angles.RollDeg
		}
		guardrailResult = w.guardrails.Evaluate(guardrail.Input{
			YawDeg:         yaw,
			RollDeg:        roll,
			FaceConfidence: confidenceOf(frame.Face),
			PoseConfidence: poseConfidenceOf(frame.Pose),
			Illumination:   1.0, // illumination is an external collaborator signal; assume lit absent a dedicated input
			DeltaSeconds:   deltaSeconds,
		})
	} else {
		guardrailResult = guardrail.Result{Reliability: frame.Reliability}
	}

	reliability := guardrailResult.Reliability
	if reliability == "" {
		reliability = frame.Reliability
	}

	// 3. Compute metrics (zeroed/gated when absent).
	metrics := w.computeMetrics(frame, presenceState, reliability, deltaSeconds)

	freeze := presenceState == models.PresenceAbsent || reliability == models.ReliabilityUnreliable

	assessment := risk.Evaluate(metrics, w.active.Baseline, w.active.Thresholds)
	if freeze {
		assessment.ShouldHold = true
	}
	transition := w.riskFSM.Tick(deltaSeconds, assessment, w.active.Thresholds)

	// 4. Select score.
	sample := score.Sample{
		DPitch:          assessment.DPitch,
		DEHD:            assessment.DEHD,
		DDPR:            assessment.DDPR,
		Unreliable:      reliability == models.ReliabilityUnreliable,
		MetricsMissing:  assessment.InsufficientSignals,
		BaselinePending: assessment.BaselinePending,
		LowConfidence:   metrics.Flags.LowConfidence,
	}
	scoreResult := w.scoring.Process(sample)
	w.lastScore = scoreResult.Score
	w.lastZone = scoreResult.Zone

	// 5. Resolve outward state via the envelope FSM.
	envResult := w.env.Tick(deltaSeconds*1000, presenceState, reliability, transition.To, nowMs)

	// 6. Diagnostics: fps from the frame interval, elided when unavailable.
	var diag *models.TickDiagnostics
	if fps, ok := fpsFromDelta(deltaSeconds); ok {
		diag = &models.TickDiagnostics{FPS: &fps}
	}

	t := uint64(math.Round(nowMs))

	outMetrics := models.TickMetrics{}
	if presenceState == models.PresencePresent {
		outMetrics = buildTickMetrics(metrics)
	}

	tick := models.EngineTick{
		T:           t,
		Presence:    outwardPresence(presenceState),
		Reliability: outwardReliability(reliability),
		Metrics:     outMetrics,
		Score:       roundHalfAwayFromZero(w.lastScore, 1),
		Zone:        w.lastZone,
		State:       models.RiskState(envResult.State),
		Diagnostics: diag,
	}

	w.lastTickT = t
	w.hasLastTick = true
	w.lastMetrics = metrics
	w.lastReliability = reliability
	return tick
}

// RunCalibrationStep submits the metrics computed by the most recent
// ProcessFrame call to the calibration flow, if one is in progress. Callers
// drive this once per frame after ProcessFrame, publishing any resulting
// events onward.
func (w *Worker) RunCalibrationStep(nowMs float64) calibration.Events {
	if w.calib.Phase() != calibration.PhaseCollecting && w.calib.Phase() != calibration.PhaseValidating {
		return calibration.Events{}
	}
	confidence := 0.0
	if s, ok := w.lastMetrics.Metrics[models.MetricPitch]; ok {
		switch s.Confidence {
		case models.ConfidenceHigh:
			confidence = 1.0
		case models.ConfidenceLow:
			confidence = 0.5
		}
	}
	return w.SubmitCalibrationSample(w.lastMetrics, confidence, w.lastReliability, nowMs)
}
