package ports

import "context"

// TreeSource defines how tree definitions are retrieved.
// This decouples definition storage (directory, memory) from the loader.
type TreeSource interface {
	// GetTree returns the raw definition of a tree by name.
	// Returns domain.ErrTreeNotFound if the tree does not exist.
	GetTree(name string) ([]byte, error)

	// ListTrees returns the names of all available trees.
	ListTrees() ([]string, error)
}

// Watchable defines an interface for sources that can notify about changes.
// This is typically used to reload trees while serving.
type Watchable interface {
	// Watch returns a channel that is signaled when definitions change.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
