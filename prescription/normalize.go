package prescription

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Abraxas-365/rxintake/errx"
)

// placeholders are values the model emits for "unknown"
var placeholders = map[string]struct{}{
	"null":          {},
	"none":          {},
	"nil":           {},
	"n/a":           {},
	"na":            {},
	"unknown":       {},
	"undefined":     {},
	"not specified": {},
	"not mentioned": {},
	"-":             {},
}

type rawEntry struct {
	Symptom json.RawMessage `json:"symptom"`
	Meds    json.RawMessage `json:"meds"`
}

type rawMedicine struct {
	Name     json.RawMessage `json:"name"`
	Dosage   json.RawMessage `json:"dosage"`
	Duration json.RawMessage `json:"duration"`
	IDMed    json.RawMessage `json:"idmed"`
}

// Normalize parses the raw extraction text into a fresh working set.
//
// The top level must be a JSON array of {symptom, meds} entries (a single
// object is accepted as a one-element array). Entries that are not objects
// carrying a symptom or meds key are skipped and counted, as are medicine
// items that are not objects. A non-empty array with no readable entry is
// malformed, never an empty result. Symptoms are split on commas and
// deduplicated in order of first appearance. Missing or placeholder fields
// become "".
func Normalize(raw string) (Extraction, error) {
	body := stripFences(raw)
	if body == "" {
		return Extraction{}, ErrorRegistry.NewWithMessage(CodeMalformedExtraction,
			"Extraction result is empty")
	}

	var entries []json.RawMessage
	switch body[0] {
	case '[':
		if err := json.Unmarshal([]byte(body), &entries); err != nil {
			return Extraction{}, malformed(err, body)
		}
	case '{':
		if !json.Valid([]byte(body)) {
			return Extraction{}, malformed(nil, body)
		}
		entries = []json.RawMessage{json.RawMessage(body)}
	default:
		return Extraction{}, malformed(nil, body)
	}

	out := Extraction{Symptoms: []string{}, Medicines: []Medicine{}}
	seen := make(map[string]struct{})

	readable := 0
	for _, item := range entries {
		entry, ok := decodeEntry(item)
		if !ok {
			out.Skipped++
			continue
		}
		readable++

		for _, token := range symptomTokens(entry.Symptom) {
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			out.Symptoms = append(out.Symptoms, token)
		}

		var meds []json.RawMessage
		if json.Unmarshal(entry.Meds, &meds) != nil {
			continue
		}
		for _, m := range meds {
			var rm rawMedicine
			if isNull(m) || json.Unmarshal(m, &rm) != nil {
				out.Skipped++
				continue
			}
			out.Medicines = append(out.Medicines, Medicine{
				Name:     scalarText(rm.Name),
				Dosage:   scalarText(rm.Dosage),
				Duration: scalarText(rm.Duration),
				IDMed:    scalarText(rm.IDMed),
			})
		}
	}

	if len(entries) > 0 && readable == 0 {
		return Extraction{}, malformed(nil, body).WithDetail("skipped", len(entries))
	}
	return out, nil
}

func decodeEntry(item json.RawMessage) (rawEntry, bool) {
	var entry rawEntry
	if isNull(item) || json.Unmarshal(item, &entry) != nil {
		return rawEntry{}, false
	}
	return entry, entry.Symptom != nil || entry.Meds != nil
}

const previewRunes = 120

func malformed(cause error, body string) *errx.Error {
	preview := body
	if utf8.RuneCountInString(preview) > previewRunes {
		preview = string([]rune(preview)[:previewRunes]) + "..."
	}
	err := ErrorRegistry.New(CodeMalformedExtraction).WithDetail("preview", preview)
	if cause != nil {
		err.WithCause(cause)
	}
	return err
}

// stripFences removes a surrounding ```json ... ``` block
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// symptomTokens accepts a comma joined string or an array of strings
func symptomTokens(raw json.RawMessage) []string {
	var parts []string

	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil {
		for _, item := range list {
			parts = append(parts, scalarText(item))
		}
	} else {
		parts = append(parts, scalarText(raw))
	}

	var tokens []string
	for _, part := range parts {
		for _, token := range strings.Split(part, ",") {
			token = sanitizeSymptom(token)
			if token == "" || isPlaceholder(token) {
				continue
			}
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// scalarText renders a JSON string, number or boolean; anything else is ""
func scalarText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if json.Unmarshal(raw, &v) != nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if isPlaceholder(s) {
			return ""
		}
		return s
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func isPlaceholder(s string) bool {
	_, ok := placeholders[strings.ToLower(strings.TrimSpace(s))]
	return ok
}
