package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Matches an optional ```json ... ``` fence around the model output.
var fenceRE = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// StripFence removes a fenced code block wrapper if present and returns the
// trimmed inner text; otherwise the trimmed input.
func StripFence(raw string) string {
	if m := fenceRE.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}

// ParseJSON decodes a structured model response, tolerating an optional code
// fence. A decode failure is a hard error; there is no partial-result
// fallback.
func ParseJSON[T any](raw string) (T, error) {
	var out T
	if err := json.Unmarshal([]byte(StripFence(raw)), &out); err != nil {
		return out, fmt.Errorf("%w: malformed model output: %v", ErrGenerationFailed, err)
	}
	return out, nil
}
