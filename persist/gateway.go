package persist

import (
	"context"
	"strings"

	"github.com/Abraxas-365/rxintake/auth"
	"github.com/Abraxas-365/rxintake/errx"
	"github.com/Abraxas-365/rxintake/logx"
	"github.com/Abraxas-365/rxintake/prescription"
	"github.com/Abraxas-365/rxintake/storex"
)

// Options tunes commit behaviour
type Options struct {
	// AtomicMedicines inserts all medicines in one transaction instead of
	// one row at a time
	AtomicMedicines bool

	// MergeAttempts bounds the read/conditional-write loop on the symptom string
	MergeAttempts int
}

// DefaultOptions keeps per-item inserts and retries the merge three times
func DefaultOptions() Options {
	return Options{MergeAttempts: 3}
}

// Report describes what a commit wrote, also on failure
type Report struct {
	SymptomsMerged    bool `json:"symptoms_merged"`
	MedicinesInserted int  `json:"medicines_inserted"`
}

// Profile is what the user has saved so far
type Profile struct {
	Symptoms  []string                          `json:"symptoms"`
	Medicines storex.Paginated[MedicineRecord] `json:"medicines"`
}

// Gateway commits confirmed working sets
type Gateway struct {
	profiles  ProfileRepository
	medicines MedicineRepository
	opts      Options
}

// NewGateway builds a gateway over the given repositories
func NewGateway(profiles ProfileRepository, medicines MedicineRepository, opts Options) *Gateway {
	if opts.MergeAttempts < 1 {
		opts.MergeAttempts = 1
	}
	return &Gateway{profiles: profiles, medicines: medicines, opts: opts}
}

// Commit merges symptoms into the stored string, then inserts medicines.
//
// Medicines are inserted one by one unless AtomicMedicines is set; a failed
// insert leaves earlier rows in place and the Report says how many landed.
func (g *Gateway) Commit(ctx context.Context, userID string, symptoms []string, medicines []prescription.Medicine) (Report, error) {
	var report Report

	if err := auth.RequireUser(userID); err != nil {
		return report, err
	}
	for i, s := range symptoms {
		if strings.TrimSpace(s) == "" || strings.Contains(s, prescription.Separator) {
			return report, prescription.ErrorRegistry.New(prescription.CodeInvalidSymptom).
				WithDetail("index", i)
		}
	}

	if len(symptoms) > 0 {
		if err := g.mergeSymptoms(ctx, userID, symptoms); err != nil {
			return report, err
		}
		report.SymptomsMerged = true
	}

	if len(medicines) == 0 {
		logx.Info("commit for user %s: %d symptoms, no medicines", userID, len(symptoms))
		return report, nil
	}

	if g.opts.AtomicMedicines {
		if _, err := g.medicines.InsertMedicines(ctx, userID, medicines); err != nil {
			return report, persistenceFailed(err, "medicines").WithDetail("atomic", true)
		}
		report.MedicinesInserted = len(medicines)
	} else {
		for i, m := range medicines {
			if _, err := g.medicines.InsertMedicine(ctx, userID, m); err != nil {
				logx.Error("medicine %d/%d for user %s failed, %d already stored", i+1, len(medicines), userID, i)
				return report, persistenceFailed(err, "medicines").
					WithDetail("failed_index", i).
					WithDetail("inserted", report.MedicinesInserted)
			}
			report.MedicinesInserted++
		}
	}

	logx.Info("commit for user %s: %d symptoms, %d medicines", userID, len(symptoms), report.MedicinesInserted)
	return report, nil
}

func (g *Gateway) mergeSymptoms(ctx context.Context, userID string, symptoms []string) error {
	for attempt := 1; attempt <= g.opts.MergeAttempts; attempt++ {
		stored, err := g.profiles.ReadSymptoms(ctx, userID)
		if err != nil {
			return persistenceFailed(err, "read_symptoms")
		}

		swapped, err := g.profiles.SwapSymptoms(ctx, userID, stored, prescription.MergeSymptoms(symptoms, stored))
		if err != nil {
			return persistenceFailed(err, "write_symptoms")
		}
		if swapped {
			return nil
		}
		logx.Warn("symptom merge for user %s lost a race (attempt %d/%d)", userID, attempt, g.opts.MergeAttempts)
	}

	return prescription.ErrorRegistry.New(prescription.CodeSymptomConflict).
		WithDetail("attempts", g.opts.MergeAttempts)
}

// Profile reads the stored symptoms and a page of medicines
func (g *Gateway) Profile(ctx context.Context, userID string, page storex.PageRequest) (Profile, error) {
	if err := auth.RequireUser(userID); err != nil {
		return Profile{}, err
	}

	stored, err := g.profiles.ReadSymptoms(ctx, userID)
	if err != nil {
		return Profile{}, persistenceFailed(err, "read_symptoms")
	}

	meds, err := g.medicines.ListMedicines(ctx, userID, page.Normalize())
	if err != nil {
		return Profile{}, persistenceFailed(err, "list_medicines")
	}

	return Profile{Symptoms: prescription.SplitSymptoms(stored), Medicines: meds}, nil
}

func persistenceFailed(cause error, stage string) *errx.Error {
	return prescription.ErrorRegistry.New(prescription.CodePersistenceFailed).
		WithCause(cause).
		WithDetail("stage", stage)
}
