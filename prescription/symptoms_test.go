package prescription

import (
	"testing"

	"github.com/Abraxas-365/rxintake/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSymptomsPrependsNew(t *testing.T) {
	assert.Equal(t, "headache*fever*cough", MergeSymptoms([]string{"headache"}, "fever*cough"))
	assert.Equal(t, "a*b*old", MergeSymptoms([]string{"a", "b"}, "old"))
	assert.Equal(t, "a", MergeSymptoms([]string{"a"}, ""))
	assert.Equal(t, "fever*cough", MergeSymptoms(nil, "fever*cough"))
}

func TestMergeKeepsStoredVerbatim(t *testing.T) {
	stored := " fever **cough*"
	assert.Equal(t, "new*"+stored, MergeSymptoms([]string{"new"}, stored))
}

func TestSplitSymptoms(t *testing.T) {
	assert.Equal(t, []string{"headache", "fever", "cough"}, SplitSymptoms("headache*fever*cough"))
	assert.Equal(t, []string{"a", "b"}, SplitSymptoms("*a**b*"))
	assert.Equal(t, []string{}, SplitSymptoms(""))
}

func TestValidateSymptom(t *testing.T) {
	s, err := ValidateSymptom("  dizziness ")
	require.NoError(t, err)
	assert.Equal(t, "dizziness", s)

	for _, bad := range []string{"", "   ", "\t\n", "a*b"} {
		_, err := ValidateSymptom(bad)
		assert.True(t, errx.IsCode(err, CodeInvalidSymptom), bad)
	}
}

func TestMedicineSet(t *testing.T) {
	var m Medicine
	require.NoError(t, m.Set(FieldDuration, "7 days"))
	require.NoError(t, m.Set(FieldIDMed, " 991 "))
	assert.Equal(t, Medicine{Duration: "7 days", IDMed: "991"}, m)
	assert.False(t, m.Complete())

	err := m.Set("color", "red")
	assert.True(t, errx.IsCode(err, CodeInvalidField))
}
