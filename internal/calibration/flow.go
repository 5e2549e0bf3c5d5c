// Package calibration implements the event-driven calibration flow of
// spec.md §4.9 as a pull-based state machine: callers push typed input
// messages via Submit and read typed output events from the returned
// Events value, avoiding any callback or back-reference into the host.
package calibration

import (
	"math"

	"github.com/posture-coach/engine/internal/models"
)

const (
	defaultTargetSamples          = 50
	defaultMinQuality             = 40.0
	defaultValidationDurationMs   = 30000.0
	defaultMaxCollectionDurationMs = 80000.0
	defaultMinConfidence          = 0.3

	unreliableFrameRatioThreshold = 0.1
	adjustSensitivityQuality      = 80.0
)

var sensitivityMultiplier = map[models.Sensitivity]float64{
	models.SensitivityLow:    1.3,
	models.SensitivityMedium: 1.0,
	models.SensitivityHigh:   0.7,
}

var defaultThresholdDeltas = models.Thresholds{PitchDeg: 12, EHD: 0.18, DPR: 0.12}

// Phase is the flow's current state.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseCollecting Phase = "collecting"
	PhaseValidating Phase = "validating"
	PhaseComplete   Phase = "complete"
	PhaseFailed     Phase = "failed"
)

// StartOptions is the calibration.start control message payload.
type StartOptions struct {
	Sensitivity          models.Sensitivity
	CustomThresholds     *models.Thresholds
	TargetSamples        int
	MinQuality           float64
	ValidationDurationMs float64
}

func (o StartOptions) withDefaults() StartOptions {
	if o.Sensitivity == "" {
		o.Sensitivity = models.SensitivityMedium
	}
	if o.TargetSamples <= 0 {
		o.TargetSamples = defaultTargetSamples
	}
	if o.MinQuality <= 0 {
		o.MinQuality = defaultMinQuality
	}
	if o.ValidationDurationMs <= 0 {
		o.ValidationDurationMs = defaultValidationDurationMs
	}
	return o
}

// FrameSample is one incoming metric frame offered to the flow.
type FrameSample struct {
	Pitch, EHD, DPR       *float64
	Confidence            float64
	Reliability           models.Reliability
}

// FailureReason enumerates calibration.failed's reason taxonomy.
type FailureReason string

const (
	ReasonInsufficientSamples FailureReason = "insufficient_samples"
	ReasonLowQuality          FailureReason = "low_quality"
	ReasonUnreliableDetection FailureReason = "unreliable_detection"
	ReasonTimeout             FailureReason = "timeout"
	ReasonUnknown             FailureReason = "unknown"
)

// Suggestion is the completion suggestion taxonomy.
type Suggestion string

const (
	SuggestionRecoverableUnreliable Suggestion = "recoverable-unreliable"
	SuggestionRecalibrateLowQuality Suggestion = "recalibrate_low_quality"
	SuggestionAdjustSensitivity     Suggestion = "adjust_sensitivity"
	SuggestionOK                    Suggestion = "ok"
)

// ProgressEvent mirrors calibration.progress.
type ProgressEvent struct {
	Phase            Phase
	CollectedSamples int
	TargetSamples    int
	StabilityScore   float64
	QualityScore     *float64
}

// CompleteEvent mirrors calibration.complete.
type CompleteEvent struct {
	Baseline    models.Baseline
	Sensitivity models.Sensitivity
	Thresholds  models.Thresholds
	Validation  ValidationSummary
}

// ValidationSummary is the validation phase's tallied outcome.
type ValidationSummary struct {
	TotalFrames        int
	UnreliableFrames    int
	UnreliableFrameRatio float64
	Suggestion          Suggestion
}

// FailedEvent mirrors calibration.failed.
type FailedEvent struct {
	Reason  FailureReason
	Message string
}

// Events is the batch of output events produced by one Submit/Start/Cancel
// call.
type Events struct {
	Progress *ProgressEvent
	Complete *CompleteEvent
	Failed   *FailedEvent
}

type sampleAccumulator struct {
	pitch, ehd, dpr []float64
}

func (a *sampleAccumulator) add(p, e, d float64, havePitch, haveEHD, haveDPR bool) {
	if havePitch {
		a.pitch = append(a.pitch, p)
	}
	if haveEHD {
		a.ehd = append(a.ehd, e)
	}
	if haveDPR {
		a.dpr = append(a.dpr, d)
	}
}

// Flow owns the calibration state machine. It is not safe for concurrent
// use; the worker that owns the engine tick loop also owns the flow.
type Flow struct {
	phase Phase
	opts  StartOptions

	startedAtMs    float64
	validatingSinceMs float64

	samples sampleAccumulator

	baseline models.Baseline

	validationTotal      int
	validationUnreliable int
}

// New creates a flow starting in idle.
func New() *Flow {
	return &Flow{phase: PhaseIdle}
}

func (f *Flow) Phase() Phase { return f.phase }

// Start begins collection. Any in-progress flow is reset.
func (f *Flow) Start(opts StartOptions, nowMs float64) Events {
	f.opts = opts.withDefaults()
	f.phase = PhaseCollecting
	f.startedAtMs = nowMs
	f.samples = sampleAccumulator{}
	f.validationTotal = 0
	f.validationUnreliable = 0

	return Events{Progress: &ProgressEvent{
		Phase:         PhaseCollecting,
		TargetSamples: f.opts.TargetSamples,
	}}
}

// Cancel aborts the flow at any phase, transitioning to failed{unknown}
// (spec.md §5: "Calibration is cancellable at any time").
func (f *Flow) Cancel() Events {
	f.phase = PhaseFailed
	return Events{Failed: &FailedEvent{Reason: ReasonUnknown, Message: "cancelled"}}
}

// Submit offers one frame sample to the flow and advances its state.
// nowMs is a monotonic timestamp.
func (f *Flow) Submit(s FrameSample, nowMs float64) Events {
	switch f.phase {
	case PhaseCollecting:
		return f.submitCollecting(s, nowMs)
	case PhaseValidating:
		return f.submitValidating(s, nowMs)
	default:
		return Events{}
	}
}

func (f *Flow) submitCollecting(s FrameSample, nowMs float64) Events {
	if nowMs-f.startedAtMs > defaultMaxCollectionDurationMs {
		f.phase = PhaseFailed
		return Events{Failed: &FailedEvent{Reason: ReasonTimeout, Message: "collection exceeded max duration"}}
	}

	if !accept(s) {
		return Events{}
	}

	havePitch, haveEHD, haveDPR := false, false, false
	var p, e, d float64
	if s.Pitch != nil && finite(*s.Pitch) {
		p, havePitch = *s.Pitch, true
	}
	if s.EHD != nil && finite(*s.EHD) {
		e, haveEHD = *s.EHD, true
	}
	if s.DPR != nil && finite(*s.DPR) {
		d, haveDPR = *s.DPR, true
	}
	f.samples.add(p, e, d, havePitch, haveEHD, haveDPR)

	collected := len(f.samples.pitch)
	if collected < f.opts.TargetSamples {
		return Events{Progress: &ProgressEvent{
			Phase:            PhaseCollecting,
			CollectedSamples: collected,
			TargetSamples:    f.opts.TargetSamples,
		}}
	}

	return f.computeBaseline(nowMs)
}

func (f *Flow) computeBaseline(nowMs float64) Events {
	meanPitch, sdPitch := meanStd(f.samples.pitch)
	meanEHD, sdEHD := meanStd(f.samples.ehd)
	meanDPR, _ := meanStd(f.samples.dpr)

	quality := math.Round((math.Max(0, 100-50*sdPitch) + math.Max(0, 100-500*sdEHD)) / 2)

	f.baseline = models.Baseline{
		BaselinePitchDeg: meanPitch,
		BaselineEHD:      meanEHD,
		BaselineDPR:      meanDPR,
		Quality:          quality,
		SampleCount:      len(f.samples.pitch),
	}

	if quality < f.opts.MinQuality {
		f.phase = PhaseFailed
		return Events{Failed: &FailedEvent{Reason: ReasonLowQuality, Message: "baseline quality below minimum"}}
	}

	f.phase = PhaseValidating
	f.validatingSinceMs = nowMs
	f.validationTotal = 0
	f.validationUnreliable = 0

	q := quality
	return Events{Progress: &ProgressEvent{
		Phase:            PhaseValidating,
		CollectedSamples: f.baseline.SampleCount,
		TargetSamples:    f.opts.TargetSamples,
		StabilityScore:   quality,
		QualityScore:     &q,
	}}
}

func (f *Flow) submitValidating(s FrameSample, nowMs float64) Events {
	if nowMs-f.startedAtMs > defaultMaxCollectionDurationMs {
		f.phase = PhaseFailed
		return Events{Failed: &FailedEvent{Reason: ReasonTimeout, Message: "validation exceeded max collection duration"}}
	}

	f.validationTotal++
	if s.Reliability == models.ReliabilityUnreliable || s.Confidence < defaultMinConfidence {
		f.validationUnreliable++
	}

	if nowMs-f.validatingSinceMs < f.opts.ValidationDurationMs {
		return Events{}
	}

	return f.complete()
}

func (f *Flow) complete() Events {
	ratio := 0.0
	if f.validationTotal > 0 {
		ratio = float64(f.validationUnreliable) / float64(f.validationTotal)
	}

	suggestion := SuggestionOK
	switch {
	case ratio > unreliableFrameRatioThreshold:
		suggestion = SuggestionRecoverableUnreliable
	case f.baseline.Quality < f.opts.MinQuality:
		suggestion = SuggestionRecalibrateLowQuality
	case f.baseline.Quality < adjustSensitivityQuality:
		suggestion = SuggestionAdjustSensitivity
	}

	thresholds := f.deriveThresholds()

	f.phase = PhaseComplete
	return Events{Complete: &CompleteEvent{
		Baseline:    f.baseline,
		Sensitivity: f.opts.Sensitivity,
		Thresholds:  thresholds,
		Validation: ValidationSummary{
			TotalFrames:          f.validationTotal,
			UnreliableFrames:     f.validationUnreliable,
			UnreliableFrameRatio: ratio,
			Suggestion:           suggestion,
		},
	}}
}

// deriveThresholds applies the sensitivity multiplier to the default
// per-metric offsets or, when Sensitivity is custom, turns each custom
// threshold into its absolute distance from the baseline, capped at twice
// that metric's default delta.
func (f *Flow) deriveThresholds() models.Thresholds {
	if f.opts.Sensitivity == models.SensitivityCustom && f.opts.CustomThresholds != nil {
		return models.Thresholds{
			PitchDeg: clampOffset(f.opts.CustomThresholds.PitchDeg-f.baseline.BaselinePitchDeg, defaultThresholdDeltas.PitchDeg),
			EHD:      clampOffset(f.opts.CustomThresholds.EHD-f.baseline.BaselineEHD, defaultThresholdDeltas.EHD),
			DPR:      clampOffset(f.opts.CustomThresholds.DPR-f.baseline.BaselineDPR, defaultThresholdDeltas.DPR),
		}
	}

	mult := sensitivityMultiplier[f.opts.Sensitivity]
	if mult == 0 {
		mult = 1.0
	}
	return models.Thresholds{
		PitchDeg: defaultThresholdDeltas.PitchDeg * mult,
		EHD:      defaultThresholdDeltas.EHD * mult,
		DPR:      defaultThresholdDeltas.DPR * mult,
	}
}

func clampOffset(v, bound float64) float64 {
	if v < 0 {
		v = -v
	}
	if v > bound*2 {
		return bound * 2
	}
	return v
}

// accept applies the sampling rules of spec.md §4.9.
func accept(s FrameSample) bool {
	anyFinite := (s.Pitch != nil && finite(*s.Pitch)) ||
		(s.EHD != nil && finite(*s.EHD)) ||
		(s.DPR != nil && finite(*s.DPR))
	if !anyFinite {
		return false
	}

	conf := clamp(s.Confidence, defaultMinConfidence, 1)
	if s.Confidence < defaultMinConfidence && s.Reliability == models.ReliabilityUnreliable {
		return false
	}
	_ = conf
	return true
}

func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	for _, x := range xs {
		d := x - mean
		std += d * d
	}
	std = math.Sqrt(std / float64(len(xs)))
	return mean, std
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
