package api

import (
	"github.com/Abraxas-365/rxintake/auth"
	"github.com/Abraxas-365/rxintake/docx"
	"github.com/Abraxas-365/rxintake/errx"
	"github.com/Abraxas-365/rxintake/prescription"
	"github.com/Abraxas-365/rxintake/validatex"
)

func codes(cs ...errx.Code) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}

var (
	sessionErrs = []errx.Code{auth.CodeUnauthenticated, prescription.CodeSessionNotFound, prescription.CodeInvalidTransition}
	indexErrs   = append(append([]errx.Code{}, sessionErrs...), prescription.CodeIndexOutOfRange, prescription.CodeEntryPersisted)
)

func sessionPath(suffix string) *docx.Endpoint {
	return docx.NewEndpoint("/sessions/:id"+suffix, docx.POST).
		WithAuth(docx.Bearer).
		WithTags("sessions").
		WithPathParam("id", "string", "Session id").
		WithResponseDTO(SessionResponse{})
}

// Docs describes every route mounted by RegisterRoutes
func Docs(basePath string) *docx.RouterDoc {
	d := docx.NewRouterDoc("rxintake", basePath)

	d.AddEndpoint(docx.NewEndpoint("/prescriptions", docx.POST).
		WithSummary("Upload a prescription photo").
		WithDescription("Accepts a multipart field named image or a JSON camera capture. The image is stored, read by the vision model and a review session is returned.").
		WithAuth(docx.Bearer).
		WithTags("prescriptions").
		WithContentType("multipart/form-data").
		WithQueryParam("async", "bool", "Return 202 while the extraction runs", false).
		WithRequestDTO(ImageRequest{}).
		WithResponseDTO(SessionResponse{}).
		WithErrors(codes(auth.CodeUnauthenticated, prescription.CodeInvalidImage, prescription.CodeStorageFailed,
			prescription.CodeExtractionFailed, prescription.CodeExtractionTimeout, prescription.CodeMalformedExtraction)...))

	d.AddEndpoint(docx.NewEndpoint("/sessions", docx.POST).
		WithSummary("Start a manual entry session").
		WithAuth(docx.Bearer).
		WithTags("sessions").
		WithResponseDTO(SessionResponse{}))

	d.AddEndpoint(docx.NewEndpoint("/sessions/:id", docx.GET).
		WithSummary("Read a session").
		WithAuth(docx.Bearer).
		WithTags("sessions").
		WithPathParam("id", "string", "Session id").
		WithResponseDTO(SessionResponse{}).
		WithErrors(codes(sessionErrs...)...))

	d.AddEndpoint(docx.NewEndpoint("/sessions/:id", docx.DELETE).
		WithSummary("Discard a session").
		WithAuth(docx.Bearer).
		WithTags("sessions").
		WithPathParam("id", "string", "Session id").
		WithErrors(codes(sessionErrs...)...))

	d.AddEndpoint(sessionPath("/symptoms").
		WithSummary("Add a symptom").
		WithRequestDTO(SymptomRequest{}).
		WithRequestExample(SymptomRequest{Text: "fever"}).
		WithErrors(codes(append(sessionErrs, prescription.CodeInvalidSymptom, validatex.CodeInvalid)...)...))

	del := sessionPath("/symptoms/:index").
		WithSummary("Remove a symptom").
		WithPathParam("index", "int", "Zero based position").
		WithErrors(codes(indexErrs...)...)
	del.Method = docx.DELETE
	d.AddEndpoint(del)

	d.AddEndpoint(sessionPath("/medicines").
		WithSummary("Append a blank medicine row"))

	edit := sessionPath("/medicines/:index").
		WithSummary("Edit one medicine field").
		WithPathParam("index", "int", "Zero based position").
		WithRequestDTO(MedicineEditRequest{}).
		WithRequestExample(MedicineEditRequest{Field: "duration", Value: "7 days"}).
		WithErrors(codes(append(indexErrs, validatex.CodeInvalid)...)...)
	edit.Method = docx.PATCH
	d.AddEndpoint(edit)

	rm := sessionPath("/medicines/:index").
		WithSummary("Remove a medicine row").
		WithPathParam("index", "int", "Zero based position").
		WithErrors(codes(indexErrs...)...)
	rm.Method = docx.DELETE
	d.AddEndpoint(rm)

	d.AddEndpoint(sessionPath("/review").
		WithSummary("Ask to save").
		WithDescription("Moves to the warning state. The response lists medicine rows with blank fields."))

	d.AddEndpoint(sessionPath("/review/cancel").
		WithSummary("Return to editing from the warning"))

	d.AddEndpoint(sessionPath("/confirm").
		WithSummary("Persist the reviewed entries").
		WithErrors(codes(append(sessionErrs, prescription.CodePersistenceFailed, prescription.CodeSymptomConflict)...)...))

	d.AddEndpoint(sessionPath("/manual").
		WithSummary("Switch a failed session to manual entry"))

	d.AddEndpoint(docx.NewEndpoint("/profile", docx.GET).
		WithSummary("Saved symptoms and medicines").
		WithAuth(docx.Bearer).
		WithTags("profile").
		WithQueryParam("page", "int", "Medicine page", 1).
		WithQueryParam("page_size", "int", "Medicines per page", 25).
		WithResponseDTO(ProfileResponse{}))

	return d
}
