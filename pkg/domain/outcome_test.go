package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		in      string
		want    domain.Outcome
		wantErr bool
	}{
		{"pass", domain.Pass, false},
		{"PASS", domain.Pass, false},
		{" success ", domain.Pass, false},
		{"fail", domain.Fail, false},
		{"failure", domain.Fail, false},
		{"false", domain.Fail, false},
		{"maybe", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := domain.ParseOutcome(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutcome_Invert(t *testing.T) {
	assert.Equal(t, domain.Fail, domain.Pass.Invert())
	assert.Equal(t, domain.Pass, domain.Fail.Invert())
	assert.False(t, domain.Outcome(0).Valid())
}

func TestOutcomeRecord_JSON(t *testing.T) {
	rec := domain.OutcomeRecord{RunID: "r1", Seq: 2, NodeID: 7, NodeName: "build", Outcome: domain.Fail}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"outcome":"fail"`)

	var back domain.OutcomeRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, domain.Fail, back.Outcome)
	assert.Equal(t, domain.NodeID(7), back.NodeID)
}

func TestStructuralError(t *testing.T) {
	err := error(&domain.StructuralError{NodeID: 3, Kind: domain.KindRepeat, Reason: "no producer"})

	assert.True(t, errors.Is(err, domain.ErrStructural))
	assert.Equal(t, "repeat on node #3: no producer", err.Error())

	var se *domain.StructuralError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, domain.NodeID(3), se.NodeID)
}
