package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/Abraxas-365/rxintake/errx"
	"github.com/Abraxas-365/rxintake/persist"
	"github.com/Abraxas-365/rxintake/prescription"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func editing(t *testing.T, ex prescription.Extraction) *Session {
	t.Helper()
	s := NewSession("s1", "u1", prescription.StoredImage{URL: "https://cdn/u1/rx.jpg"})
	require.NoError(t, s.Loaded(ex))
	return s
}

func okCommitter() *MockCommitter {
	return &MockCommitter{CommitFunc: func(_ context.Context, _ string, _ []string, ms []prescription.Medicine) (persist.Report, error) {
		return persist.Report{SymptomsMerged: true, MedicinesInserted: len(ms)}, nil
	}}
}

func assertInvalid(t *testing.T, err error) {
	t.Helper()
	assert.True(t, errx.IsCode(err, prescription.CodeInvalidTransition), "got %v", err)
}

func TestLoadedOutcome(t *testing.T) {
	s := editing(t, prescription.Extraction{Symptoms: []string{"fever"}})
	assert.Equal(t, OutcomeExtracted, s.View().Outcome)

	empty := editing(t, prescription.Extraction{})
	v := empty.View()
	assert.Equal(t, StateEditing, v.State)
	assert.Equal(t, OutcomeNothingFound, v.Outcome)
	assert.Empty(t, v.Medicines)
}

func TestManualSymptomsAreNotDeduplicated(t *testing.T) {
	s := editing(t, prescription.Extraction{})
	require.NoError(t, s.AddSymptom("headache"))
	require.NoError(t, s.AddSymptom("  headache "))

	assert.Equal(t, []SymptomEntry{{Text: "headache"}, {Text: "headache"}}, s.View().Symptoms)
}

func TestAddSymptomRejectsBlank(t *testing.T) {
	s := editing(t, prescription.Extraction{})
	assert.True(t, errx.IsCode(s.AddSymptom("   "), prescription.CodeInvalidSymptom))
	assert.True(t, errx.IsCode(s.AddSymptom("a*b"), prescription.CodeInvalidSymptom))
	assert.Empty(t, s.View().Symptoms)
}

func TestEditingOperations(t *testing.T) {
	s := editing(t, prescription.Extraction{
		Symptoms:  []string{"fever", "cough"},
		Medicines: []prescription.Medicine{{Name: "Paracetamol"}},
	})

	require.NoError(t, s.RemoveSymptom(0))
	i, err := s.AddMedicine()
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	require.NoError(t, s.EditMedicine(1, prescription.FieldName, "Ibuprofen"))
	require.NoError(t, s.RemoveMedicine(0))

	v := s.View()
	assert.Equal(t, []SymptomEntry{{Text: "cough"}}, v.Symptoms)
	require.Len(t, v.Medicines, 1)
	assert.Equal(t, "Ibuprofen", v.Medicines[0].Name)

	assert.True(t, errx.IsCode(s.RemoveSymptom(5), prescription.CodeIndexOutOfRange))
	assert.True(t, errx.IsCode(s.EditMedicine(-1, prescription.FieldName, "x"), prescription.CodeIndexOutOfRange))
	assert.True(t, errx.IsCode(s.EditMedicine(0, "colour", "x"), prescription.CodeInvalidField))
}

func TestOperationsOutsideEditingAreRejected(t *testing.T) {
	s := NewSession("s1", "u1", prescription.StoredImage{})
	assertInvalid(t, s.AddSymptom("fever"))
	_, err := s.RequestSave()
	assertInvalid(t, err)
	_, err = s.Confirm(context.Background(), okCommitter())
	assertInvalid(t, err)
	assertInvalid(t, s.FallbackToManual())
	assert.Equal(t, StateLoading, s.State())
}

func TestRequestSaveListsIncompleteRows(t *testing.T) {
	s := editing(t, prescription.Extraction{Medicines: []prescription.Medicine{
		{Name: "A", Dosage: "1", Duration: "2"},
		{Name: "B"},
	}})
	_, _ = s.AddMedicine()

	w, err := s.RequestSave()
	require.NoError(t, err)
	assert.Equal(t, WarningMessage, w.Message)
	assert.Equal(t, []int{1, 2}, w.Incomplete)
	assert.Equal(t, StateWarning, s.State())
	assertInvalid(t, s.AddSymptom("late"))
}

func TestConfirmRequiresWarning(t *testing.T) {
	c := okCommitter()
	s := editing(t, prescription.Extraction{Symptoms: []string{"fever"}})

	_, err := s.Confirm(context.Background(), c)
	assertInvalid(t, err)
	assert.Zero(t, c.Calls())
}

func TestCancelFromWarningWritesNothing(t *testing.T) {
	c := okCommitter()
	s := editing(t, prescription.Extraction{Symptoms: []string{"fever"}})

	_, err := s.RequestSave()
	require.NoError(t, err)
	require.NoError(t, s.CancelSave())

	assert.Equal(t, StateEditing, s.State())
	assert.Nil(t, s.View().Warning)
	assert.Zero(t, c.Calls())
}

func TestConfirmSuccessClearsWorkingSet(t *testing.T) {
	c := okCommitter()
	s := editing(t, prescription.Extraction{
		Symptoms:  []string{"fever"},
		Medicines: []prescription.Medicine{{Name: "A", Dosage: "1", Duration: "2"}},
	})
	_, _ = s.RequestSave()

	commit, err := s.Confirm(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 1, commit.Report.MedicinesInserted)
	assert.Equal(t, []string{"fever"}, commit.Symptoms)
	assert.Equal(t, []prescription.Medicine{{Name: "A", Dosage: "1", Duration: "2"}}, commit.Medicines)

	v := s.View()
	assert.Equal(t, StateDone, v.State)
	assert.Empty(t, v.Symptoms)
	assert.Empty(t, v.Medicines)
	require.NotNil(t, v.Report)
	assertInvalid(t, s.Discard())
}

func TestConfirmFailureKeepsEditsAndRetriesRemainder(t *testing.T) {
	var seen [][]prescription.Medicine
	c := &MockCommitter{}
	c.CommitFunc = func(_ context.Context, _ string, symptoms []string, ms []prescription.Medicine) (persist.Report, error) {
		seen = append(seen, ms)
		if len(seen) == 1 {
			return persist.Report{SymptomsMerged: true, MedicinesInserted: 1}, errors.New("insert failed")
		}
		assert.Empty(t, symptoms)
		return persist.Report{MedicinesInserted: len(ms)}, nil
	}

	s := editing(t, prescription.Extraction{
		Symptoms:  []string{"fever"},
		Medicines: []prescription.Medicine{{Name: "A"}, {Name: "B"}},
	})
	_, _ = s.RequestSave()

	_, err := s.Confirm(context.Background(), c)
	require.Error(t, err)

	v := s.View()
	assert.Equal(t, StateEditing, v.State)
	require.NotNil(t, v.LastError)
	assert.True(t, v.Symptoms[0].Persisted)
	assert.True(t, v.Medicines[0].Persisted)
	assert.False(t, v.Medicines[1].Persisted)

	assert.True(t, errx.IsCode(s.EditMedicine(0, prescription.FieldDosage, "2"), prescription.CodeEntryPersisted))
	assert.True(t, errx.IsCode(s.RemoveSymptom(0), prescription.CodeEntryPersisted))
	require.NoError(t, s.EditMedicine(1, prescription.FieldDosage, "10mg"))

	_, _ = s.RequestSave()
	commit, err := s.Confirm(context.Background(), c)
	require.NoError(t, err)
	assert.Empty(t, commit.Symptoms)
	assert.Equal(t, seen[1], commit.Medicines)

	require.Len(t, seen, 2)
	assert.Equal(t, []prescription.Medicine{{Name: "B", Dosage: "10mg"}}, seen[1])
	assert.Equal(t, StateDone, s.State())
}

func TestDiscardDuringSavingIsRejected(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	c := &MockCommitter{CommitFunc: func(context.Context, string, []string, []prescription.Medicine) (persist.Report, error) {
		close(entered)
		<-release
		return persist.Report{}, nil
	}}
	s := editing(t, prescription.Extraction{Symptoms: []string{"fever"}})
	_, _ = s.RequestSave()

	done := make(chan error)
	go func() {
		_, err := s.Confirm(context.Background(), c)
		done <- err
	}()
	<-entered

	assert.Equal(t, StateSaving, s.State())
	assertInvalid(t, s.Discard())
	assertInvalid(t, s.AddSymptom("cough"))

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateDone, s.State())
}

func TestDiscardWhileLoadingCancels(t *testing.T) {
	s := NewSession("s1", "u1", prescription.StoredImage{})
	ctx, cancel := context.WithCancel(context.Background())
	s.attach(cancel)

	require.NoError(t, s.Discard())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Equal(t, StateDiscarded, s.State())
	assertInvalid(t, s.Loaded(prescription.Extraction{}))
}

func TestFailThenManual(t *testing.T) {
	s := NewSession("s1", "u1", prescription.StoredImage{})
	require.NoError(t, s.Fail(prescription.ErrorRegistry.New(prescription.CodeMalformedExtraction)))

	v := s.View()
	assert.Equal(t, StateFailed, v.State)
	assert.Equal(t, OutcomeFailed, v.Outcome)
	assert.Equal(t, prescription.CodeMalformedExtraction, v.LastError.Code)

	require.NoError(t, s.FallbackToManual())
	v = s.View()
	assert.Equal(t, StateEditing, v.State)
	assert.Equal(t, OutcomeManual, v.Outcome)
	assert.Nil(t, v.LastError)
}

func TestManualSessionStartsWithBlankRow(t *testing.T) {
	v := NewManualSession("s1", "u1").View()
	assert.Equal(t, StateEditing, v.State)
	assert.Equal(t, OutcomeManual, v.Outcome)
	assert.Equal(t, []MedicineRow{{}}, v.Medicines)
}
