package relations

import "strings"

// NormalizePatch converts a raw partial update into a clean patch. String
// values are trimmed; an empty string becomes nil so the storage layer
// writes NULL (the field is cleared). Keys absent from the input stay
// absent (the field is untouched). false and 0 are real values and pass
// through unchanged.
func NormalizePatch(raw map[string]any) map[string]any {
	patch := make(map[string]any, len(raw))
	for key, value := range raw {
		s, ok := value.(string)
		if !ok {
			patch[key] = value
			continue
		}
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			patch[key] = nil
			continue
		}
		patch[key] = trimmed
	}
	return patch
}

// FilterPatch strips keys that do not map to a patchable column. The
// returned patch keeps the JSON field names; column translation happens in
// the service layer.
func FilterPatch(raw map[string]any, columnsByField map[string]string) map[string]any {
	patch := make(map[string]any, len(raw))
	for key, value := range raw {
		if _, ok := columnsByField[key]; ok {
			patch[key] = value
		}
	}
	return patch
}
