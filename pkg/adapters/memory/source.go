package memory

import (
	"fmt"
	"sort"

	"github.com/aretw0/arbor/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Source implements ports.TreeSource using an in-memory map.
type Source struct {
	trees map[string][]byte
}

// NewSource creates a Source from raw YAML definitions keyed by tree name.
func NewSource(data map[string]string) *Source {
	trees := make(map[string][]byte)
	for k, v := range data {
		trees[k] = []byte(v)
	}
	return &Source{trees: trees}
}

// NewSourceFromValues marshals each value to YAML.
// This keeps tests free of hand-written YAML.
func NewSourceFromValues(values map[string]any) (*Source, error) {
	trees := make(map[string][]byte)
	for name, v := range values {
		if name == "" {
			return nil, fmt.Errorf("tree missing name")
		}
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tree %s: %w", name, err)
		}
		trees[name] = data
	}
	return &Source{trees: trees}, nil
}

// GetTree retrieves the raw definition of a tree.
func (s *Source) GetTree(name string) ([]byte, error) {
	content, ok := s.trees[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrTreeNotFound)
	}
	return content, nil
}

// ListTrees returns all tree names.
func (s *Source) ListTrees() ([]string, error) {
	keys := make([]string, 0, len(s.trees))
	for k := range s.trees {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
