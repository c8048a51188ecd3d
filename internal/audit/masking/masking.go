// Package masking scrubs secrets out of audit metadata before it is stored.
package masking

import "strings"

var sensitiveNames = []string{"code", "password", "secret", "token"}

// Redacted replaces every value stored under a sensitive key. It carries no
// trace of the original, not even its length.
const Redacted = "[redacted]"

// IsSensitive reports whether a metadata key names a secret, either exactly
// ("code") or as a suffix ("grant_code").
func IsSensitive(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, name := range sensitiveNames {
		if key == name || strings.HasSuffix(key, "_"+name) {
			return true
		}
	}
	return false
}

// Scrub returns a copy of metadata with sensitive string values replaced by
// Redacted.
// Nested maps and lists are walked. Empty keys are dropped.
func Scrub(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = scrubValue(IsSensitive(key), value)
	}
	return out
}

func scrubValue(sensitive bool, value any) any {
	switch cast := value.(type) {
	case string:
		if sensitive {
			return Redacted
		}
		return cast
	case map[string]any:
		return Scrub(cast)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, scrubValue(sensitive, item))
		}
		return out
	default:
		return value
	}
}
