package prescription

import (
	"encoding/base64"
	"strings"
)

// Source says where an image came from
type Source string

const (
	SourceCamera Source = "camera"
	SourceFile   Source = "file"
)

// Image is an acquired prescription photo, held in memory until uploaded
type Image struct {
	Data     []byte
	MIMEType string
	Source   Source
	Filename string
}

// PreviewDataURL returns the image as a data: URL for display
func (i Image) PreviewDataURL() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// StoredImage points at an uploaded image
type StoredImage struct {
	URL      string `json:"url"`
	Path     string `json:"path"`
	OwnerID  string `json:"owner_id"`
	Filename string `json:"filename"`
}

// ExtractionRecord is the untrusted output of one extraction call
type ExtractionRecord struct {
	Raw              string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Medicine is one prescribed item. Every field may be blank while editing.
type Medicine struct {
	Name     string `json:"name" db:"name"`
	Dosage   string `json:"dosage" db:"dosage"`
	Duration string `json:"duration" db:"duration"`
	IDMed    string `json:"idmed,omitempty" db:"idmed"`
}

// MedicineField names an editable Medicine attribute
type MedicineField string

const (
	FieldName     MedicineField = "name"
	FieldDosage   MedicineField = "dosage"
	FieldDuration MedicineField = "duration"
	FieldIDMed    MedicineField = "idmed"
)

// Set assigns value to field
func (m *Medicine) Set(field MedicineField, value string) error {
	switch field {
	case FieldName:
		m.Name = value
	case FieldDosage:
		m.Dosage = value
	case FieldDuration:
		m.Duration = value
	case FieldIDMed:
		m.IDMed = strings.TrimSpace(value)
	default:
		return ErrorRegistry.New(CodeInvalidField).WithDetail("field", string(field))
	}
	return nil
}

// Complete reports whether name, dosage and duration are all filled in
func (m Medicine) Complete() bool {
	return strings.TrimSpace(m.Name) != "" &&
		strings.TrimSpace(m.Dosage) != "" &&
		strings.TrimSpace(m.Duration) != ""
}

// Extraction is a normalized extraction result
type Extraction struct {
	Symptoms  []string
	Medicines []Medicine
	// Skipped counts entries or medicine items that could not be read
	Skipped int
}

// Empty means the response parsed but named nothing
func (e Extraction) Empty() bool {
	return len(e.Symptoms) == 0 && len(e.Medicines) == 0
}
