package prescription

import "strings"

// Separator joins symptoms in the stored profile string
const Separator = "*"

// ValidateSymptom trims text and rejects blanks and the separator
func ValidateSymptom(text string) (string, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return "", ErrorRegistry.NewWithMessage(CodeInvalidSymptom, "Symptom cannot be empty")
	}
	if strings.Contains(s, Separator) {
		return "", ErrorRegistry.NewWithMessage(CodeInvalidSymptom, "Symptom cannot contain '*'").
			WithDetail("symptom", s)
	}
	return s, nil
}

// sanitizeSymptom makes model output safe to store: separators become
// spaces and runs of whitespace collapse.
func sanitizeSymptom(text string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(text, Separator, " ")), " ")
}

// SplitSymptoms decodes a stored symptom string, dropping empty tokens
func SplitSymptoms(stored string) []string {
	out := []string{}
	for _, s := range strings.Split(stored, Separator) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// MergeSymptoms prepends the new symptoms to the stored string. The stored
// string is kept verbatim.
func MergeSymptoms(added []string, stored string) string {
	joined := strings.Join(added, Separator)
	switch {
	case joined == "":
		return stored
	case stored == "":
		return joined
	default:
		return joined + Separator + stored
	}
}
