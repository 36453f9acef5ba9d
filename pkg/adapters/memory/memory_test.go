package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	contract "github.com/aretw0/arbor/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal_Contract(t *testing.T) {
	ports.RunJournalContract(t, memory.NewJournal())
}

func TestJournal_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	j := memory.NewJournal()
	require.NoError(t, j.Append(ctx, "r", domain.OutcomeRecord{NodeName: "a", Outcome: domain.Pass}))

	recs, err := j.Load(ctx, "r")
	require.NoError(t, err)
	recs[0].NodeName = "mutated"

	again, err := j.Load(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "a", again[0].NodeName)
}

func TestSource_Contract(t *testing.T) {
	data := map[string]string{
		"build":  "name: build\nkind: sequence\n",
		"deploy": "name: deploy\nkind: end_with\n",
	}
	bytesData := make(map[string][]byte)
	for k, v := range data {
		bytesData[k] = []byte(v)
	}

	contract.TreeSourceContractTest(t, memory.NewSource(data), bytesData)
}

func TestSourceFromValues(t *testing.T) {
	src, err := memory.NewSourceFromValues(map[string]any{
		"hello": map[string]any{"name": "hello", "kind": "end_with"},
	})
	require.NoError(t, err)

	raw, err := src.GetTree("hello")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "kind: end_with")

	_, err = memory.NewSourceFromValues(map[string]any{"": 1})
	assert.Error(t, err)
}
