package plan

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlan(t *testing.T) {
	t.Run("assigns uuid when id empty", func(t *testing.T) {
		p := NewPlan("", "ship feature", "tdd")
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, "ship feature", p.Goal)
		assert.Equal(t, "tdd", p.Approach)
		assert.NotNil(t, p.Steps)
		assert.False(t, p.CreatedAt.IsZero())
	})

	t.Run("keeps explicit id", func(t *testing.T) {
		p := NewPlan("plan-7", "g", "a")
		assert.Equal(t, "plan-7", p.ID)
	})
}

func TestPlan_AddStep(t *testing.T) {
	p := NewPlan("", "g", "a")
	p.AddStep("design schema")
	p.AddStep("implement endpoints")

	require.Len(t, p.Steps, 2)
	assert.Equal(t, 1, p.Steps[0].ID)
	assert.Equal(t, 2, p.Steps[1].ID)
	assert.Equal(t, "pending", p.Steps[0].Status)
}

func TestPlan_StepDescriptions(t *testing.T) {
	p := buildAPIPlan()

	want := []string{"design schema", "implement endpoints"}
	if diff := cmp.Diff(want, p.StepDescriptions()); diff != "" {
		t.Errorf("StepDescriptions mismatch (-want +got):\n%s", diff)
	}

	var empty Plan
	assert.Empty(t, empty.StepDescriptions())
}
