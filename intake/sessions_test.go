package intake

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepDropsIdleSessions(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewSessions(30 * time.Minute)
	r.now = func() time.Time { return now }

	old := NewManualSession("old", "u1")
	old.now = func() time.Time { return now.Add(-time.Hour) }
	old.updatedAt = old.now()
	fresh := NewManualSession("fresh", "u1")

	r.Add(old)
	r.Add(fresh)

	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, StateDiscarded, old.State())
	_, err := r.Get("u1", "fresh")
	require.NoError(t, err)
	_, err = r.Get("u1", "old")
	assert.Error(t, err)
}

func TestSweepSkipsSaving(t *testing.T) {
	r := NewSessions(time.Minute)
	r.now = func() time.Time { return time.Now().Add(time.Hour) }

	s := NewManualSession("s", "u1")
	s.state = StateSaving
	r.Add(s)

	assert.Zero(t, r.Sweep())
	assert.Equal(t, 1, r.Len())
}

func TestExpireRespectsLateActivity(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-30 * time.Minute)

	s := NewManualSession("s", "u1")
	s.now = func() time.Time { return now.Add(-time.Hour) }
	s.updatedAt = s.now()

	// the owner edits after the sweeper listed the session
	s.now = func() time.Time { return now }
	require.NoError(t, s.AddSymptom("cough"))

	assert.False(t, s.expire(cutoff))
	assert.Equal(t, StateEditing, s.State())
	assert.Len(t, s.View().Symptoms, 1)
}

func TestExpireKeepsDoneState(t *testing.T) {
	s := NewManualSession("s", "u1")
	s.state = StateDone
	assert.True(t, s.expire(time.Now().Add(time.Hour)))
	assert.Equal(t, StateDone, s.State())
}
