package model

// MaskMode selects where masked documents are written.
type MaskMode string

const (
	// ModeInPlace overwrites the source documents by primary key.
	ModeInPlace MaskMode = "inplace"
	// ModeCopy inserts masked documents into a destination collection,
	// leaving the source untouched.
	ModeCopy MaskMode = "copy"
)

// BatchConfig bounds the adaptive batch size.
type BatchConfig struct {
	Initial int `json:"initial"`
	Min     int `json:"min"`
	Max     int `json:"max"`
}

// AdaptiveConfig holds the empirically chosen batch-size tuning knobs.
// The defaults mirror the original operator settings; they are
// configuration, not invariants.
type AdaptiveConfig struct {
	HighWatermark float64 `json:"highWatermark"` // shrink above this CPU/memory percent
	LowWatermark  float64 `json:"lowWatermark"`  // grow below this CPU/memory percent
	ShrinkFactor  float64 `json:"shrinkFactor"`
	GrowFactor    float64 `json:"growFactor"`
	Window        int     `json:"window"` // consecutive samples before reacting
}

// RetryConfig defines backoff behavior for batch writes and connects.
type RetryConfig struct {
	MaxAttempts   int     `json:"maxAttempts"`
	InitialDelay  string  `json:"initialDelay"` // e.g. "500ms"
	MaxDelay      string  `json:"maxDelay"`     // e.g. "30s"
	BackoffFactor float64 `json:"backoffFactor"`
}

// MaskJobSpec defines one masking run. Constructed once per run by the
// caller (CLI file or API body), immutable thereafter.
type MaskJobSpec struct {
	MongoURI         string                 `json:"mongoUri"`
	SourceDB         string                 `json:"sourceDb"`
	SourceCollection string                 `json:"sourceCollection"`
	DestDB           string                 `json:"destDb,omitempty"`
	DestCollection   string                 `json:"destCollection,omitempty"`
	Mode             MaskMode               `json:"mode"`
	DryRun           bool                   `json:"dryRun"`
	Reset            bool                   `json:"reset"` // discard checkpoint before the run
	Query            map[string]interface{} `json:"query,omitempty"`
	RulesFile        string                 `json:"rulesFile"`
	PrimaryFields    []string               `json:"primaryFields,omitempty"`

	CheckpointDir  string `json:"checkpointDir,omitempty"`
	CheckpointKey  string `json:"checkpointKey,omitempty"` // override for concurrent runs
	FlushEveryDocs int64  `json:"flushEveryDocs,omitempty"`
	FlushInterval  string `json:"flushInterval,omitempty"` // e.g. "30s"

	Batch          BatchConfig    `json:"batch"`
	Adaptive       AdaptiveConfig `json:"adaptive"`
	Retry          RetryConfig    `json:"retry"`
	SampleInterval string         `json:"sampleInterval,omitempty"` // resource monitor tick
	JobTimeout     string         `json:"jobTimeout,omitempty"`     // e.g. "2h"
}

// Normalize fills defaults for everything the caller left zero.
func (s *MaskJobSpec) Normalize() {
	if s.Mode == "" {
		s.Mode = ModeInPlace
	}
	if s.Batch.Initial == 0 {
		s.Batch.Initial = 500
	}
	if s.Batch.Min == 0 {
		s.Batch.Min = 50
	}
	if s.Batch.Max == 0 {
		s.Batch.Max = 5000
	}
	if s.Adaptive.HighWatermark == 0 {
		s.Adaptive.HighWatermark = 80
	}
	if s.Adaptive.LowWatermark == 0 {
		s.Adaptive.LowWatermark = 50
	}
	if s.Adaptive.ShrinkFactor == 0 {
		s.Adaptive.ShrinkFactor = 0.8
	}
	if s.Adaptive.GrowFactor == 0 {
		s.Adaptive.GrowFactor = 1.2
	}
	if s.Adaptive.Window == 0 {
		s.Adaptive.Window = 3
	}
	if s.Retry.MaxAttempts == 0 {
		s.Retry.MaxAttempts = 3
	}
	if s.Retry.InitialDelay == "" {
		s.Retry.InitialDelay = "500ms"
	}
	if s.Retry.MaxDelay == "" {
		s.Retry.MaxDelay = "30s"
	}
	if s.Retry.BackoffFactor == 0 {
		s.Retry.BackoffFactor = 2.0
	}
	if s.FlushEveryDocs == 0 {
		s.FlushEveryDocs = 10000
	}
	if s.FlushInterval == "" {
		s.FlushInterval = "30s"
	}
	if s.SampleInterval == "" {
		s.SampleInterval = "5s"
	}
	if s.CheckpointDir == "" {
		s.CheckpointDir = "checkpoints"
	}
}
