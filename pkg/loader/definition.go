package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/arbor/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Definition is a named tree.
type Definition struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Vars        map[string]any `yaml:"vars,omitempty" json:"vars,omitempty"`
	Root        Node           `yaml:"root" json:"root"`
}

// Node is one node of a definition.
type Node struct {
	Name      string              `yaml:"name" json:"name"`
	Kind      domain.BehaviorKind `yaml:"kind" json:"kind"`
	With      map[string]any      `yaml:"with,omitempty" json:"with,omitempty"`
	Score     *float64            `yaml:"score,omitempty" json:"score,omitempty"`
	ScoreExpr string              `yaml:"score_expr,omitempty" json:"score_expr,omitempty"`
	Repeat    map[string]any      `yaml:"repeat,omitempty" json:"repeat,omitempty"`
	Children  []Node              `yaml:"children,omitempty" json:"children,omitempty"`
}

// Parse decodes a YAML definition and checks its shape.
// Unknown fields are rejected.
func Parse(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty definition")
		}
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}
	if err := def.Check(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Check verifies names and kinds are present and node names are unique.
// Behavior-specific structure is checked by the engine at build time.
func (d *Definition) Check() error {
	if d.Name == "" {
		return fmt.Errorf("definition missing name")
	}
	seen := make(map[string]bool)
	return d.Root.check(seen, d.Name)
}

func (n *Node) check(seen map[string]bool, path string) error {
	if n.Name == "" {
		return fmt.Errorf("%s: node missing name", path)
	}
	path = path + "/" + n.Name
	if seen[n.Name] {
		return fmt.Errorf("%s: duplicate node name %q", path, n.Name)
	}
	seen[n.Name] = true
	if n.Kind == "" {
		return fmt.Errorf("%s: node missing kind", path)
	}
	if n.Score != nil && n.ScoreExpr != "" {
		return fmt.Errorf("%s: score and score_expr are exclusive", path)
	}
	for i := range n.Children {
		if err := n.Children[i].check(seen, path); err != nil {
			return err
		}
	}
	return nil
}

// Walk visits every node depth-first, parents before children.
func (d *Definition) Walk(fn func(n *Node, parent *Node) error) error {
	return walk(&d.Root, nil, fn)
}

func walk(n, parent *Node, fn func(*Node, *Node) error) error {
	if err := fn(n, parent); err != nil {
		return err
	}
	for i := range n.Children {
		if err := walk(&n.Children[i], n, fn); err != nil {
			return err
		}
	}
	return nil
}
