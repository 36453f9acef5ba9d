package tests

import (
	"errors"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// TreeSourceContractTest is a reusable test suite that verifies if an adapter complies with ports.TreeSource.
func TreeSourceContractTest(t *testing.T, source ports.TreeSource, setupData map[string][]byte) {
	t.Helper()

	t.Run("GetTree_Success", func(t *testing.T) {
		for name, expected := range setupData {
			content, err := source.GetTree(name)
			if err != nil {
				t.Fatalf("unexpected error getting tree %s: %v", name, err)
			}
			if string(content) != string(expected) {
				t.Errorf("content mismatch for %s. got %q, want %q", name, content, expected)
			}
		}
	})

	t.Run("GetTree_NotFound", func(t *testing.T) {
		_, err := source.GetTree("non-existent-tree")
		if !errors.Is(err, domain.ErrTreeNotFound) {
			t.Errorf("expected ErrTreeNotFound, got %v", err)
		}
	})

	t.Run("ListTrees", func(t *testing.T) {
		names, err := source.ListTrees()
		if err != nil {
			t.Fatalf("unexpected error listing trees: %v", err)
		}
		found := make(map[string]bool)
		for _, n := range names {
			found[n] = true
		}
		for name := range setupData {
			if !found[name] {
				t.Errorf("expected tree %s in list", name)
			}
		}
	})
}
