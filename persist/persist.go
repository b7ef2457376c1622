// Package persist commits confirmed prescriptions to durable storage.
package persist

import (
	"context"
	"time"

	"github.com/Abraxas-365/rxintake/prescription"
	"github.com/Abraxas-365/rxintake/storex"
)

// MedicineRecord is a stored medicine row
type MedicineRecord struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	prescription.Medicine
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ProfileRepository owns the per-user symptom string
type ProfileRepository interface {
	// ReadSymptoms returns "" when the user has no profile row yet
	ReadSymptoms(ctx context.Context, userID string) (string, error)

	// SwapSymptoms stores next only if the stored value still equals prev
	// (a missing row counts as ""). It reports whether the write happened.
	SwapSymptoms(ctx context.Context, userID, prev, next string) (bool, error)
}

// MedicineRepository owns medicine rows
type MedicineRepository interface {
	InsertMedicine(ctx context.Context, userID string, m prescription.Medicine) (MedicineRecord, error)

	// InsertMedicines inserts all rows or none
	InsertMedicines(ctx context.Context, userID string, ms []prescription.Medicine) ([]MedicineRecord, error)

	ListMedicines(ctx context.Context, userID string, page storex.PageRequest) (storex.Paginated[MedicineRecord], error)
}

// Store is a backend implementing both repositories
type Store interface {
	ProfileRepository
	MedicineRepository
	Close(ctx context.Context) error
}
