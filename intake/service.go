// Package intake runs the prescription intake flow: upload, extraction,
// review and confirmation.
package intake

import (
	"context"

	"github.com/Abraxas-365/rxintake/auth"
	"github.com/Abraxas-365/rxintake/errx"
	"github.com/Abraxas-365/rxintake/eventx"
	"github.com/Abraxas-365/rxintake/logx"
	"github.com/Abraxas-365/rxintake/prescription"
	"github.com/google/uuid"
)

// EventConfirmed is published after a working set is saved
const EventConfirmed = "prescription.confirmed"

// Confirmed is the payload of EventConfirmed
type Confirmed struct {
	UserID    string                  `json:"user_id"`
	SessionID string                  `json:"session_id"`
	Symptoms  []string                `json:"symptoms"`
	Medicines []prescription.Medicine `json:"medicines"`
}

// Service ties the pipeline stages to the session registry
type Service struct {
	uploader  *Uploader
	extractor *Extractor
	committer Committer
	sessions  *Sessions
	bus       eventx.Bus
	newID     func() string
}

func NewService(uploader *Uploader, extractor *Extractor, committer Committer, sessions *Sessions, bus eventx.Bus) *Service {
	if bus == nil {
		bus = eventx.NopBus{}
	}
	return &Service{
		uploader:  uploader,
		extractor: extractor,
		committer: committer,
		sessions:  sessions,
		bus:       bus,
		newID:     uuid.NewString,
	}
}

func (s *Service) Sessions() *Sessions { return s.sessions }

// StartFromImage uploads img, waits for the extraction and returns the
// session in editing. When the image cannot be read the session is kept in
// failed and the error carries its id with fallback=manual.
func (s *Service) StartFromImage(ctx context.Context, userID string, img prescription.Image) (View, error) {
	job, err := s.begin(ctx, userID, img, false)
	if err != nil {
		return View{}, err
	}
	err = s.extract(job)
	return job.sess.View(), err
}

// BeginFromImage uploads img and returns the loading session at once. The
// extraction continues in the background and can be cancelled by
// discarding the session.
func (s *Service) BeginFromImage(ctx context.Context, userID string, img prescription.Image) (View, error) {
	job, err := s.begin(ctx, userID, img, true)
	if err != nil {
		return View{}, err
	}
	go func() {
		_ = s.extract(job)
	}()
	return job.sess.View(), nil
}

// extraction is a loading session with the context its provider call runs
// under. Discarding the session cancels ctx.
type extraction struct {
	sess   *Session
	stored prescription.StoredImage
	img    prescription.Image
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *Service) begin(ctx context.Context, userID string, img prescription.Image, detached bool) (*extraction, error) {
	if err := auth.RequireUser(userID); err != nil {
		return nil, err
	}
	stored, err := s.uploader.Upload(ctx, userID, img)
	if err != nil {
		return nil, err
	}

	parent := ctx
	if detached {
		parent = context.WithoutCancel(ctx)
	}
	job := &extraction{sess: NewSession(s.newID(), userID, stored), stored: stored, img: img}
	job.ctx, job.cancel = context.WithCancel(parent)
	// cancellable before anyone can look it up
	job.sess.attach(job.cancel)
	s.sessions.Add(job.sess)

	logx.Info("session %s for user %s loading from %s", job.sess.ID, userID, stored.Path)
	return job, nil
}

func (s *Service) extract(job *extraction) error {
	defer job.cancel()
	sess := job.sess

	var (
		rec prescription.ExtractionRecord
		err error
	)
	if cause := job.ctx.Err(); cause != nil {
		err = prescription.ErrorRegistry.New(prescription.CodeCancelled).WithCause(cause)
	} else {
		rec, err = s.extractor.Extract(job.ctx, job.stored, job.img)
	}
	var ex prescription.Extraction
	if err == nil {
		ex, err = prescription.Normalize(rec.Raw)
	}

	if errx.IsCode(err, prescription.CodeCancelled) {
		_ = sess.Discard()
		logx.Info("session %s discarded while loading", sess.ID)
		return withSession(err, sess.ID)
	}
	if err != nil {
		if sess.Fail(err) != nil {
			return cancelled(sess.ID)
		}
		logx.Warn("session %s extraction failed: %s", sess.ID, errx.CodeOf(err))
		return withSession(err, sess.ID).WithDetail("fallback", "manual")
	}

	if sess.Loaded(ex) != nil {
		return cancelled(sess.ID)
	}
	logx.Info("session %s loaded: %d symptoms, %d medicines, %d skipped",
		sess.ID, len(ex.Symptoms), len(ex.Medicines), ex.Skipped)
	return nil
}

func withSession(err error, id string) *errx.Error {
	return errx.From(err).WithDetail("session_id", id)
}

func cancelled(id string) error {
	return prescription.ErrorRegistry.New(prescription.CodeCancelled).WithDetail("session_id", id)
}

// StartManual opens a session for typing a prescription in
func (s *Service) StartManual(_ context.Context, userID string) (View, error) {
	if err := auth.RequireUser(userID); err != nil {
		return View{}, err
	}
	sess := NewManualSession(s.newID(), userID)
	s.sessions.Add(sess)
	logx.Info("manual session %s for user %s", sess.ID, userID)
	return sess.View(), nil
}

func (s *Service) Get(_ context.Context, userID, id string) (View, error) {
	sess, err := s.sessions.Get(userID, id)
	if err != nil {
		return View{}, err
	}
	return sess.View(), nil
}

// apply runs op on the caller's session and returns the resulting view
func (s *Service) apply(userID, id string, op func(*Session) error) (View, error) {
	sess, err := s.sessions.Get(userID, id)
	if err != nil {
		return View{}, err
	}
	if err := op(sess); err != nil {
		return sess.View(), err
	}
	return sess.View(), nil
}

func (s *Service) AddSymptom(_ context.Context, userID, id, text string) (View, error) {
	return s.apply(userID, id, func(sess *Session) error { return sess.AddSymptom(text) })
}

func (s *Service) RemoveSymptom(_ context.Context, userID, id string, index int) (View, error) {
	return s.apply(userID, id, func(sess *Session) error { return sess.RemoveSymptom(index) })
}

func (s *Service) AddMedicine(_ context.Context, userID, id string) (View, error) {
	return s.apply(userID, id, func(sess *Session) error {
		_, err := sess.AddMedicine()
		return err
	})
}

func (s *Service) EditMedicine(_ context.Context, userID, id string, index int, field prescription.MedicineField, value string) (View, error) {
	return s.apply(userID, id, func(sess *Session) error { return sess.EditMedicine(index, field, value) })
}

func (s *Service) RemoveMedicine(_ context.Context, userID, id string, index int) (View, error) {
	return s.apply(userID, id, func(sess *Session) error { return sess.RemoveMedicine(index) })
}

func (s *Service) RequestSave(_ context.Context, userID, id string) (View, error) {
	return s.apply(userID, id, func(sess *Session) error {
		_, err := sess.RequestSave()
		return err
	})
}

func (s *Service) CancelSave(_ context.Context, userID, id string) (View, error) {
	return s.apply(userID, id, func(sess *Session) error { return sess.CancelSave() })
}

func (s *Service) FallbackToManual(_ context.Context, userID, id string) (View, error) {
	return s.apply(userID, id, func(sess *Session) error { return sess.FallbackToManual() })
}

// Confirm saves the reviewed working set and publishes EventConfirmed
func (s *Service) Confirm(ctx context.Context, userID, id string) (View, error) {
	sess, err := s.sessions.Get(userID, id)
	if err != nil {
		return View{}, err
	}

	commit, err := sess.Confirm(ctx, s.committer)
	if err != nil {
		logx.Error("session %s confirm failed after %d medicines: %v", id, commit.Report.MedicinesInserted, err)
		return sess.View(), err
	}
	logx.Info("session %s confirmed: symptoms merged=%t, %d medicines", id, commit.Report.SymptomsMerged, commit.Report.MedicinesInserted)

	payload := Confirmed{UserID: userID, SessionID: id, Symptoms: commit.Symptoms, Medicines: commit.Medicines}
	if err := s.bus.Publish(ctx, eventx.NewEvent(EventConfirmed, payload, eventx.WithSubject(userID))); err != nil {
		logx.Error("publish %s for session %s: %v", EventConfirmed, id, err)
	}

	return sess.View(), nil
}

// Discard drops the session. Finished sessions are simply forgotten.
func (s *Service) Discard(_ context.Context, userID, id string) error {
	sess, err := s.sessions.Get(userID, id)
	if err != nil {
		return err
	}
	switch sess.State() {
	case StateDone, StateDiscarded:
	default:
		if err := sess.Discard(); err != nil {
			return err
		}
	}
	s.sessions.Remove(id)
	logx.Info("session %s removed", id)
	return nil
}
