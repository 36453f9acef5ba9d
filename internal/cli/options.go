package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
)

// Options holds the flags shared by every command.
type Options struct {
	// Dir holds the *.tree.yaml definitions.
	Dir      string
	LogLevel string
	// RedisURL switches the run journal and tree locks to redis.
	RedisURL string
	// CommandsPath points at the allow-listed commands file. A relative path
	// is resolved against Dir.
	CommandsPath string
	UnsafeInline bool
	Color        string
	// Metrics registers prometheus collectors on the stack registry.
	Metrics bool
}

// DefaultCommandsFile is looked up in Dir when no path is given.
const DefaultCommandsFile = "commands.yaml"

func (o Options) commandsPath() string {
	p := o.CommandsPath
	if p == "" {
		p = DefaultCommandsFile
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.Dir, p)
}

// ParseVars decodes a JSON object of tree variables. An empty string means none.
func ParseVars(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var vars map[string]any
	if err := json.Unmarshal([]byte(raw), &vars); err != nil {
		return nil, fmt.Errorf("error parsing --vars JSON: %w", err)
	}
	return vars, nil
}
