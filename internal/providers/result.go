package providers

import (
	"fmt"
	"maps"
	"strings"
)

// Action is the verdict on an image.
type Action string

// Actions.
const (
	ActionKeep   Action = "keep"
	ActionDelete Action = "delete"
)

// Metadata keys set on results.
const (
	MetaProvider = "provider"
	MetaModel    = "model"
	MetaError    = "error"
	MetaCached   = "cached"
)

// AnalysisResult is a provider's verdict on one image. Treat it as immutable
// once returned.
type AnalysisResult struct {
	Metadata         map[string]any `json:"metadata"`
	Action           Action         `json:"action"`
	Reasoning        string         `json:"reasoning"`
	Confidence       float64        `json:"confidence"`
	ProcessingTimeMS float64        `json:"processing_time_ms"`
}

// Validate checks that the action is keep or delete, the confidence lies in
// [0, 1], and the reasoning is not blank.
func (r AnalysisResult) Validate() error {
	if r.Action != ActionKeep && r.Action != ActionDelete {
		return fmt.Errorf("%w: action %q", ErrInvalidResult, r.Action)
	}
	if r.Confidence < 0 || r.Confidence > 1 || r.Confidence != r.Confidence {
		return fmt.Errorf("%w: confidence %v out of range", ErrInvalidResult, r.Confidence)
	}
	if strings.TrimSpace(r.Reasoning) == "" {
		return fmt.Errorf("%w: empty reasoning", ErrInvalidResult)
	}
	return nil
}

// WithMetadata returns a copy of r with the given key set.
func (r AnalysisResult) WithMetadata(key string, value any) AnalysisResult {
	out := r
	out.Metadata = make(map[string]any, len(r.Metadata)+1)
	maps.Copy(out.Metadata, r.Metadata)
	out.Metadata[key] = value
	return out
}

// ConservativeDefault is returned when no provider produced a verdict.
// It always keeps the image.
func ConservativeDefault(reason string) AnalysisResult {
	return AnalysisResult{
		Action:     ActionKeep,
		Confidence: 0,
		Reasoning:  "no provider could analyze the image; keeping it",
		Metadata:   map[string]any{MetaError: reason},
	}
}
