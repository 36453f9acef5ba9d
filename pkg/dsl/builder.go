package dsl

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/loader"
	"gopkg.in/yaml.v3"
)

// Builder manages the construction of one tree definition.
type Builder struct {
	def  loader.Definition
	root *NodeBuilder
}

// New creates a builder for the tree called name.
func New(name string) *Builder {
	return &Builder{def: loader.Definition{Name: name}}
}

// Describe sets the description.
func (b *Builder) Describe(text string) *Builder {
	b.def.Description = text
	return b
}

// Var sets a default variable, visible to score expressions as vars.<key>.
func (b *Builder) Var(key string, value any) *Builder {
	if b.def.Vars == nil {
		b.def.Vars = make(map[string]any)
	}
	b.def.Vars[key] = value
	return b
}

// Root sets the root node.
func (b *Builder) Root(n *NodeBuilder) *Builder {
	b.root = n
	return b
}

// Build returns the checked definition.
func (b *Builder) Build() (*loader.Definition, error) {
	if b.root == nil {
		return nil, fmt.Errorf("%s: no root node", b.def.Name)
	}
	def := b.def
	def.Root = b.root.Build()
	if err := def.Check(); err != nil {
		return nil, err
	}
	return &def, nil
}

// YAML renders the definition as a *.tree.yaml document.
func (b *Builder) YAML() ([]byte, error) {
	def, err := b.Build()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(def)
}

// Source compiles the builders into an in-memory tree source.
func Source(builders ...*Builder) (*memory.Source, error) {
	trees := make(map[string]string, len(builders))
	for _, b := range builders {
		data, err := b.YAML()
		if err != nil {
			return nil, fmt.Errorf("failed to build %s: %w", b.def.Name, err)
		}
		if _, dup := trees[b.def.Name]; dup {
			return nil, fmt.Errorf("duplicate tree %q", b.def.Name)
		}
		trees[b.def.Name] = string(data)
	}
	return memory.NewSource(trees), nil
}
