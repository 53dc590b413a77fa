package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(RunContext) error { return nil }

func TestPlan_Validate(t *testing.T) {
	tests := []struct {
		name    string
		steps   []Step
		wantErr string
	}{
		{
			name:  "valid",
			steps: []Step{NewStep("a", Fatal).Do(noop), NewStep("b", DegradedContinue).Do(noop)},
		},
		{
			name:    "empty name",
			steps:   []Step{NewStep("", Fatal).Do(noop)},
			wantErr: "step 1 has no name",
		},
		{
			name:    "duplicate name",
			steps:   []Step{NewStep("a", Fatal).Do(noop), NewStep("a", Fatal).Do(noop)},
			wantErr: `duplicate step name "a"`,
		},
		{
			name:    "missing action",
			steps:   []Step{NewStep("a", Fatal)},
			wantErr: "has no action",
		},
		{
			name:    "unknown criticality",
			steps:   []Step{NewStep("a", Criticality("maybe")).Do(noop)},
			wantErr: "invalid criticality",
		},
		{
			name:    "access guard must be fatal",
			steps:   []Step{NewStep("ssh", DegradedContinue).Do(noop).Verify(noop).GuardsAccess()},
			wantErr: "must be fatal",
		},
		{
			name:    "access guard must verify",
			steps:   []Step{NewStep("ssh", Fatal).Do(noop).GuardsAccess()},
			wantErr: "must verify its result",
		},
		{
			name:  "verified fatal access guard",
			steps: []Step{NewStep("ssh", Fatal).Do(noop).Verify(noop).GuardsAccess()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPlan(tt.steps...).Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStep_BuildersReturnCopies(t *testing.T) {
	base := NewStep("firewall", Fatal)
	described := base.Describe("enable ufw").Do(noop).Verify(noop)

	assert.Empty(t, base.Description())
	assert.False(t, base.HasVerification())
	assert.Equal(t, "enable ufw", described.Description())
	assert.True(t, described.HasVerification())
	assert.False(t, described.HasRollback())
	assert.False(t, described.IsAccessGuard())
}

func TestPlan_StepsIsACopy(t *testing.T) {
	plan := NewPlan(NewStep("a", Fatal).Do(noop))
	steps := plan.Steps()
	steps[0] = NewStep("b", Fatal)

	require.Equal(t, 1, plan.Len())
	assert.Equal(t, "a", plan.Steps()[0].Name())
}
