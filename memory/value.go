package memory

import (
	"encoding/json"
	"strings"
)

// valueEnvelope is the current on-disk encoding of a profile value. Earlier
// deployments stored the bare string (sometimes JSON-quoted); decodeValue
// accepts all three shapes so old rows keep working.
type valueEnvelope struct {
	Content *string `json:"content"`
}

// encodeValue wraps a profile value in the versioned envelope used for new
// writes.
func encodeValue(value string) string {
	b, _ := json.Marshal(valueEnvelope{Content: &value})
	return string(b)
}

// decodeValue extracts the profile value from a stored row, accepting the
// envelope format, a JSON-quoted string, or a legacy bare string.
func decodeValue(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var env valueEnvelope
		if err := json.Unmarshal([]byte(trimmed), &env); err == nil && env.Content != nil {
			return *env.Content
		}
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
			return s
		}
	}
	return raw
}
