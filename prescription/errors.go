package prescription

import (
	"net/http"

	"github.com/Abraxas-365/rxintake/errx"
)

var (
	ErrorRegistry = errx.NewRegistry("RX")

	CodeInvalidImage = ErrorRegistry.Register("INVALID_IMAGE", errx.TypeValidation,
		http.StatusBadRequest, "Only image files can be uploaded")
	CodeStorageFailed = ErrorRegistry.Register("STORAGE_FAILED", errx.TypeExternal,
		http.StatusBadGateway, "Prescription image could not be stored")
	CodeExtractionFailed = ErrorRegistry.Register("EXTRACTION_FAILED", errx.TypeExternal,
		http.StatusBadGateway, "Prescription could not be read by the extraction service")
	CodeExtractionEmpty = ErrorRegistry.Register("EXTRACTION_EMPTY", errx.TypeExternal,
		http.StatusBadGateway, "Extraction service returned no content")
	CodeExtractionTimeout = ErrorRegistry.Register("EXTRACTION_TIMEOUT", errx.TypeTimeout,
		http.StatusGatewayTimeout, "Extraction service did not answer in time")
	CodeMalformedExtraction = ErrorRegistry.Register("MALFORMED_EXTRACTION", errx.TypeExternal,
		http.StatusUnprocessableEntity, "Extraction result is not in the expected format")
	CodePersistenceFailed = ErrorRegistry.Register("PERSISTENCE_FAILED", errx.TypeSystem,
		http.StatusInternalServerError, "Prescription could not be saved")
	CodeSymptomConflict = ErrorRegistry.Register("SYMPTOM_CONFLICT", errx.TypeConflict,
		http.StatusConflict, "Symptoms were changed concurrently, try saving again")
	CodeInvalidSymptom = ErrorRegistry.Register("INVALID_SYMPTOM", errx.TypeValidation,
		http.StatusBadRequest, "Symptom is not valid")
	CodeInvalidField = ErrorRegistry.Register("INVALID_FIELD", errx.TypeValidation,
		http.StatusBadRequest, "Unknown medicine field")

	CodeInvalidTransition = ErrorRegistry.Register("INVALID_TRANSITION", errx.TypeConflict,
		http.StatusConflict, "Operation is not allowed in the current state")
	CodeSessionNotFound = ErrorRegistry.Register("SESSION_NOT_FOUND", errx.TypeNotFound,
		http.StatusNotFound, "Intake session not found")
	CodeIndexOutOfRange = ErrorRegistry.Register("INDEX_OUT_OF_RANGE", errx.TypeValidation,
		http.StatusBadRequest, "No entry at that position")
	CodeEntryPersisted = ErrorRegistry.Register("ENTRY_PERSISTED", errx.TypeConflict,
		http.StatusConflict, "Entry is already saved and can no longer change")
	CodeCancelled = ErrorRegistry.Register("CANCELLED", errx.TypeConflict,
		http.StatusConflict, "Intake session was discarded")
)

// IsExtractionFailure reports whether err ends an extraction attempt in a way
// the user can recover from by entering the prescription manually.
func IsExtractionFailure(err error) bool {
	switch errx.CodeOf(err) {
	case CodeExtractionFailed, CodeExtractionEmpty, CodeExtractionTimeout, CodeMalformedExtraction:
		return true
	}
	return false
}
