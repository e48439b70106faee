package adapt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseplan/pulseplan/internal/domain"
)

func TestPersonalize_UsesProvenPlateauBreakers(t *testing.T) {
	sig := domain.NewDefaultSignature("user-1", time.Now())
	sig.ProvenPlateauBreakers = []string{"kettlebell complexes"}

	recs := []domain.Recommendation{
		{Type: domain.TypeExerciseSwap, Priority: domain.PriorityHigh, Explanation: "Swap exercises."},
	}

	out := NewPersonalizer().Apply(recs, sig)

	require.Len(t, out, 1)
	assert.Contains(t, out[0].Explanation, "kettlebell complexes")
	assert.Equal(t, domain.TypeExerciseSwap, out[0].Type, "type never changes")
	assert.Equal(t, domain.PriorityHigh, out[0].Priority, "priority never changes")
}

func TestPersonalize_FallsBackToGenericStrategy(t *testing.T) {
	sig := domain.NewDefaultSignature("user-1", time.Now())

	recs := []domain.Recommendation{
		{Type: domain.TypeExerciseSwap, Priority: domain.PriorityMedium, Explanation: "Swap exercises."},
	}

	out := NewPersonalizer().Apply(recs, sig)

	require.Len(t, out, 1)
	assert.Contains(t, out[0].Explanation, "unfamiliar movement patterns")
}

func TestPersonalize_Idempotent(t *testing.T) {
	sig := domain.NewDefaultSignature("user-1", time.Now())
	sig.MotivationalTriggers = []string{"training partners"}

	recs := []domain.Recommendation{
		{Type: domain.TypeFrequency, Priority: domain.PriorityMedium, Explanation: "Reduce frequency."},
	}

	p := NewPersonalizer()
	once := p.Apply(recs, sig)
	twice := p.Apply(once, sig)

	assert.Equal(t, once, twice)
}

func TestPersonalize_DoesNotMutateInput(t *testing.T) {
	sig := domain.NewDefaultSignature("user-1", time.Now())
	recs := []domain.Recommendation{
		{Type: domain.TypeRecovery, Priority: domain.PriorityMedium, Explanation: "Back off."},
	}

	_ = NewPersonalizer().Apply(recs, sig)

	assert.Equal(t, "Back off.", recs[0].Explanation)
}
