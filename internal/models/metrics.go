package models

// MetricKey identifies one of the smoothed signal channels.
type MetricKey string

const (
	MetricPitch MetricKey = "pitch"
	MetricYaw   MetricKey = "yaw"
	MetricRoll  MetricKey = "roll"
	MetricEHD   MetricKey = "ehd"
	MetricDPR   MetricKey = "dpr"
)

// MetricSource records which geometry kernel produced a raw sample.
type MetricSource string

const (
	SourcePoseWorld     MetricSource = "pose-world"
	SourcePoseImage     MetricSource = "pose-image"
	SourceFaceTransform MetricSource = "face-transform"
	SourceSolvePnP      MetricSource = "solve-pnp"
	SourceDPRBaseline   MetricSource = "dpr-baseline"
	SourceUnknown       MetricSource = "unknown"
)

// MetricConfidence is the coarse confidence bucket attached to a raw sample.
type MetricConfidence string

const (
	ConfidenceHigh MetricConfidence = "HIGH"
	ConfidenceLow  MetricConfidence = "LOW"
	ConfidenceNone MetricConfidence = "NONE"
)

// MetricSeries is the per-metric state surfaced in MetricValues (spec.md §3).
type MetricSeries struct {
	Raw               *float32
	Smoothed          *float32
	Source            MetricSource
	Confidence        MetricConfidence
	Outlier           bool
	Gated             bool
	ReliabilityPaused bool
}

// MetricFlags are frame-level qualifiers that ride alongside MetricValues.
type MetricFlags struct {
	YawDeweighted   bool
	LowConfidence   bool
	BaselinePending bool
}

// MetricValues is the signal processor's per-frame output.
type MetricValues struct {
	FrameID          uint64
	Timestamp        float64
	BaselineFaceSize *float32
	Metrics          map[MetricKey]MetricSeries
	Flags            MetricFlags
}
