package providers

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultPrompt asks for a JSON verdict on a camera snapshot.
const DefaultPrompt = `You review snapshots from home security and doorbell cameras.
Decide whether this image is worth keeping or can be deleted.
Keep images that show people, vehicles, animals, packages, or unusual activity.
Delete images that are empty scenes, blurry, mostly dark, or duplicates of routine views.
Answer with a single JSON object and nothing else:
{"action": "keep" | "delete", "confidence": <number between 0 and 1>, "reasoning": "<one sentence>"}`

// ParseVerdict extracts a validated AnalysisResult from model output. It
// tolerates markdown code fences and prose around the JSON object.
func ParseVerdict(text string) (AnalysisResult, error) {
	raw := extractJSONObject(text)
	if raw == "" {
		return AnalysisResult{}, fmt.Errorf("%w: no JSON object in response", ErrInvalidResult)
	}
	if !gjson.Valid(raw) {
		return AnalysisResult{}, fmt.Errorf("%w: malformed JSON in response", ErrInvalidResult)
	}

	parsed := gjson.Parse(raw)
	confidence := parsed.Get("confidence")
	if confidence.Type != gjson.Number {
		return AnalysisResult{}, fmt.Errorf("%w: confidence must be a number", ErrInvalidResult)
	}
	reasoning := firstString(parsed, "reasoning", "reason", "explanation")

	result := AnalysisResult{
		Action:     Action(strings.ToLower(strings.TrimSpace(parsed.Get("action").String()))),
		Confidence: confidence.Float(),
		Reasoning:  reasoning,
		Metadata:   map[string]any{},
	}
	if meta := parsed.Get("metadata"); meta.IsObject() {
		meta.ForEach(func(key, value gjson.Result) bool {
			result.Metadata[key.String()] = value.Value()
			return true
		})
	}
	if tags := parsed.Get("tags"); tags.IsArray() {
		result.Metadata["tags"] = tags.Value()
	}

	if err := result.Validate(); err != nil {
		return AnalysisResult{}, err
	}
	return result, nil
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := strings.TrimSpace(r.Get(p).String()); v != "" {
			return v
		}
	}
	return ""
}

// extractJSONObject returns the outermost {...} span of text, or "".
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
