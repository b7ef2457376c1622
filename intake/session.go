package intake

import (
	"context"
	"sync"
	"time"

	"github.com/Abraxas-365/rxintake/errx"
	"github.com/Abraxas-365/rxintake/persist"
	"github.com/Abraxas-365/rxintake/prescription"
)

// State is the position of a session in the confirmation flow
type State string

const (
	StateLoading   State = "loading"
	StateEditing   State = "editing"
	StateWarning   State = "warning"
	StateSaving    State = "saving"
	StateDone      State = "done"
	StateFailed    State = "failed"
	StateDiscarded State = "discarded"
)

// Outcome says how the working set came to be
type Outcome string

const (
	OutcomeExtracted    Outcome = "extracted"
	OutcomeNothingFound Outcome = "nothing_found"
	OutcomeManual       Outcome = "manual"
	OutcomeFailed       Outcome = "failed"
)

// WarningMessage is shown before anything is saved
const WarningMessage = "Details read from a prescription image may be inaccurate. " +
	"Check every symptom, medicine, dosage and duration before saving."

// Warning is the mandatory pre-save confirmation
type Warning struct {
	Message string `json:"message"`
	// Incomplete lists medicine rows with a blank name, dosage or duration
	Incomplete []int `json:"incomplete,omitempty"`
}

// SymptomEntry is one symptom in the working set
type SymptomEntry struct {
	Text      string `json:"text"`
	Persisted bool   `json:"persisted,omitempty"`
}

// MedicineRow is one medicine in the working set
type MedicineRow struct {
	prescription.Medicine
	Persisted bool `json:"persisted,omitempty"`
}

// Committer saves a confirmed working set
type Committer interface {
	Commit(ctx context.Context, userID string, symptoms []string, medicines []prescription.Medicine) (persist.Report, error)
}

// View is a snapshot of a session
type View struct {
	ID        string                    `json:"id"`
	State     State                     `json:"state"`
	Outcome   Outcome                   `json:"outcome,omitempty"`
	Image     *prescription.StoredImage `json:"image,omitempty"`
	Symptoms  []SymptomEntry            `json:"symptoms"`
	Medicines []MedicineRow             `json:"medicines"`
	Skipped   int                       `json:"skipped,omitempty"`
	Warning   *Warning                  `json:"warning,omitempty"`
	LastError *errx.Error               `json:"last_error,omitempty"`
	Report    *persist.Report           `json:"report,omitempty"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// Session is one pass through the confirmation flow. Every operation is
// only legal in specific states; anything else fails with
// RX_INVALID_TRANSITION and leaves the session untouched.
type Session struct {
	ID     string
	UserID string

	mu        sync.Mutex
	state     State
	outcome   Outcome
	image     *prescription.StoredImage
	symptoms  []SymptomEntry
	medicines []MedicineRow
	skipped   int
	warning   *Warning
	lastErr   error
	report    *persist.Report
	cancel    context.CancelFunc
	updatedAt time.Time
	now       func() time.Time
}

// NewSession starts in loading, waiting for an extraction
func NewSession(id, userID string, image prescription.StoredImage) *Session {
	s := newSession(id, userID, StateLoading)
	s.image = &image
	return s
}

// NewManualSession starts in editing with one blank medicine row
func NewManualSession(id, userID string) *Session {
	s := newSession(id, userID, StateEditing)
	s.outcome = OutcomeManual
	s.medicines = []MedicineRow{{}}
	return s
}

func newSession(id, userID string, state State) *Session {
	s := &Session{ID: id, UserID: userID, state: state, now: time.Now}
	s.updatedAt = s.now()
	return s
}

// lockIn locks the session if it is in one of the allowed states. The
// caller must unlock.
func (s *Session) lockIn(op string, allowed ...State) error {
	s.mu.Lock()
	for _, st := range allowed {
		if s.state == st {
			s.updatedAt = s.now()
			return nil
		}
	}
	err := s.invalid(op)
	s.mu.Unlock()
	return err
}

func (s *Session) invalid(op string) *errx.Error {
	return prescription.ErrorRegistry.New(prescription.CodeInvalidTransition).
		WithDetail("operation", op).
		WithDetail("state", string(s.state))
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IdleSince is the time of the last accepted operation
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// View returns a copy that is safe to hand out
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		ID:        s.ID,
		State:     s.state,
		Outcome:   s.outcome,
		Image:     s.image,
		Symptoms:  append([]SymptomEntry{}, s.symptoms...),
		Medicines: append([]MedicineRow{}, s.medicines...),
		Skipped:   s.skipped,
		Warning:   s.warning,
		Report:    s.report,
		UpdatedAt: s.updatedAt,
	}
	if s.lastErr != nil {
		v.LastError = errx.From(s.lastErr)
	}
	return v
}

// attach remembers how to abort the running extraction
func (s *Session) attach(cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = cancel
}

// Loaded moves a loading session to editing with the normalized result
func (s *Session) Loaded(ex prescription.Extraction) error {
	if err := s.lockIn("loaded", StateLoading); err != nil {
		return err
	}
	defer s.mu.Unlock()

	s.symptoms = make([]SymptomEntry, 0, len(ex.Symptoms))
	for _, text := range ex.Symptoms {
		s.symptoms = append(s.symptoms, SymptomEntry{Text: text})
	}
	s.medicines = make([]MedicineRow, 0, len(ex.Medicines))
	for _, m := range ex.Medicines {
		s.medicines = append(s.medicines, MedicineRow{Medicine: m})
	}
	s.skipped = ex.Skipped
	s.outcome = OutcomeExtracted
	if ex.Empty() {
		s.outcome = OutcomeNothingFound
	}
	s.state = StateEditing
	s.cancel = nil
	return nil
}

// Fail records an extraction or normalization failure
func (s *Session) Fail(cause error) error {
	if err := s.lockIn("fail", StateLoading); err != nil {
		return err
	}
	defer s.mu.Unlock()

	s.state = StateFailed
	s.outcome = OutcomeFailed
	s.lastErr = cause
	s.cancel = nil
	return nil
}

// FallbackToManual lets the user type the prescription after a failed read
func (s *Session) FallbackToManual() error {
	if err := s.lockIn("manual", StateFailed); err != nil {
		return err
	}
	defer s.mu.Unlock()

	s.state = StateEditing
	s.outcome = OutcomeManual
	s.symptoms = nil
	s.medicines = nil
	s.lastErr = nil
	return nil
}

// AddSymptom appends text. Repeated symptoms are kept.
func (s *Session) AddSymptom(text string) error {
	clean, err := prescription.ValidateSymptom(text)
	if err != nil {
		return err
	}
	if err := s.lockIn("add_symptom", StateEditing); err != nil {
		return err
	}
	defer s.mu.Unlock()

	s.symptoms = append(s.symptoms, SymptomEntry{Text: clean})
	return nil
}

func (s *Session) RemoveSymptom(i int) error {
	if err := s.lockIn("remove_symptom", StateEditing); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.symptoms) {
		return outOfRange("symptoms", i, len(s.symptoms))
	}
	if s.symptoms[i].Persisted {
		return persisted("symptoms", i)
	}
	s.symptoms = append(s.symptoms[:i], s.symptoms[i+1:]...)
	return nil
}

// AddMedicine appends a blank row and returns its index
func (s *Session) AddMedicine() (int, error) {
	if err := s.lockIn("add_medicine", StateEditing); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()

	s.medicines = append(s.medicines, MedicineRow{})
	return len(s.medicines) - 1, nil
}

func (s *Session) EditMedicine(i int, field prescription.MedicineField, value string) error {
	if err := s.lockIn("edit_medicine", StateEditing); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.medicines) {
		return outOfRange("medicines", i, len(s.medicines))
	}
	if s.medicines[i].Persisted {
		return persisted("medicines", i)
	}
	return s.medicines[i].Set(field, value)
}

func (s *Session) RemoveMedicine(i int) error {
	if err := s.lockIn("remove_medicine", StateEditing); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.medicines) {
		return outOfRange("medicines", i, len(s.medicines))
	}
	if s.medicines[i].Persisted {
		return persisted("medicines", i)
	}
	s.medicines = append(s.medicines[:i], s.medicines[i+1:]...)
	return nil
}

// RequestSave interposes the warning step. Nothing is written.
func (s *Session) RequestSave() (Warning, error) {
	if err := s.lockIn("request_save", StateEditing); err != nil {
		return Warning{}, err
	}
	defer s.mu.Unlock()

	w := Warning{Message: WarningMessage}
	for i, row := range s.medicines {
		if !row.Persisted && !row.Complete() {
			w.Incomplete = append(w.Incomplete, i)
		}
	}
	s.warning = &w
	s.state = StateWarning
	return w, nil
}

// CancelSave returns to editing without any write
func (s *Session) CancelSave() error {
	if err := s.lockIn("cancel_save", StateWarning); err != nil {
		return err
	}
	defer s.mu.Unlock()

	s.warning = nil
	s.state = StateEditing
	return nil
}

// Commit is the working set a Confirm handed to the committer, with the
// committer's report.
type Commit struct {
	Symptoms  []string
	Medicines []prescription.Medicine
	Report    persist.Report
}

// Confirm commits the entries not yet persisted. The lock is released while
// the commit runs; the saving state keeps every other operation out.
//
// On failure the session returns to editing with its working set intact.
// Entries the commit did write are flagged persisted so a retry skips them.
func (s *Session) Confirm(ctx context.Context, c Committer) (Commit, error) {
	if err := s.lockIn("confirm", StateWarning); err != nil {
		return Commit{}, err
	}

	var (
		symptoms    []string
		symptomIdx  []int
		medicines   []prescription.Medicine
		medicineIdx []int
	)
	for i, e := range s.symptoms {
		if !e.Persisted {
			symptoms = append(symptoms, e.Text)
			symptomIdx = append(symptomIdx, i)
		}
	}
	for i, row := range s.medicines {
		if !row.Persisted {
			medicines = append(medicines, row.Medicine)
			medicineIdx = append(medicineIdx, i)
		}
	}
	s.state = StateSaving
	s.warning = nil
	s.mu.Unlock()

	report, err := c.Commit(ctx, s.UserID, symptoms, medicines)
	commit := Commit{Symptoms: symptoms, Medicines: medicines, Report: report}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updatedAt = s.now()

	if err != nil {
		if report.SymptomsMerged {
			for _, i := range symptomIdx {
				s.symptoms[i].Persisted = true
			}
		}
		for _, i := range medicineIdx[:min(report.MedicinesInserted, len(medicineIdx))] {
			s.medicines[i].Persisted = true
		}
		s.lastErr = err
		s.state = StateEditing
		return commit, err
	}

	s.report = &report
	s.lastErr = nil
	s.symptoms = nil
	s.medicines = nil
	s.state = StateDone
	return commit, nil
}

// expire discards the session if nothing touched it since cutoff. A session
// mid-commit never expires.
func (s *Session) expire(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.updatedAt.Before(cutoff) || s.state == StateSaving {
		return false
	}
	s.discardLocked()
	return true
}

// Discard abandons the session. A running extraction is cancelled; a commit
// in flight cannot be discarded.
func (s *Session) Discard() error {
	if err := s.lockIn("discard", StateLoading, StateEditing, StateWarning, StateFailed); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.discardLocked()
	return nil
}

func (s *Session) discardLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.symptoms = nil
	s.medicines = nil
	s.warning = nil
	if s.state != StateDone {
		s.state = StateDiscarded
	}
}

func outOfRange(list string, i, n int) error {
	return prescription.ErrorRegistry.New(prescription.CodeIndexOutOfRange).
		WithDetail("list", list).
		WithDetail("index", i).
		WithDetail("length", n)
}

func persisted(list string, i int) error {
	return prescription.ErrorRegistry.New(prescription.CodeEntryPersisted).
		WithDetail("list", list).
		WithDetail("index", i)
}
