package api

import (
	"github.com/Abraxas-365/rxintake/intake"
	"github.com/Abraxas-365/rxintake/persist"
)

// ImageRequest carries a camera capture as a data URL
type ImageRequest struct {
	Image string `json:"image" validatex:"required,prefix=data:image/"`
}

type SymptomRequest struct {
	Text string `json:"text" validatex:"required,max=200,notcontains=*"`
}

type MedicineEditRequest struct {
	Field string `json:"field" validatex:"required,oneof=name dosage duration idmed"`
	Value string `json:"value" validatex:"max=500"`
}

// SessionResponse wraps a session view
type SessionResponse struct {
	Session intake.View `json:"session"`
}

type ProfileResponse struct {
	Profile persist.Profile `json:"profile"`
}
