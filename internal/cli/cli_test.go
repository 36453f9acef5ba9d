package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greetTree = `name: greet
root:
  name: greet
  kind: sequence
  children:
    - name: hello
      kind: command
      with: {command: hello}
    - name: gate
      kind: end_with
      with: {outcome: pass}
`

const failTree = `name: broken_gate
root:
  name: broken_gate
  kind: end_with
  with: {outcome: fail}
`

const commands = `commands:
  - name: hello
    command: echo
    args: [hello, arbor]
`

func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greet.tree.yaml"), []byte(greetTree), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken_gate.tree.yaml"), []byte(failTree), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultCommandsFile), []byte(commands), 0644))
	return dir
}

func TestParseVars(t *testing.T) {
	vars, err := ParseVars(`{"region":"eu","replicas":3}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"region": "eu", "replicas": float64(3)}, vars)

	vars, err = ParseVars("")
	require.NoError(t, err)
	assert.Nil(t, vars)

	_, err = ParseVars("{")
	assert.ErrorContains(t, err, "--vars")
}

func TestRun_PrintsOutputAndResult(t *testing.T) {
	s, err := NewStack(Options{Dir: project(t), LogLevel: "error"})
	require.NoError(t, err)
	defer s.Close()

	var buf bytes.Buffer
	err = Run(context.Background(), s, RunOptions{Tree: "greet", Verbose: true}, &buf, tui.ColorNever)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "[hello] hello arbor")
	assert.Contains(t, out, "greet pass in")
	assert.Regexp(t, `gate\s+pass`, out)

	buf.Reset()
	require.NoError(t, ListRuns(context.Background(), s, &buf))
	ids := bytes.Fields(buf.Bytes())
	require.Len(t, ids, 1)

	buf.Reset()
	require.NoError(t, ShowRun(context.Background(), s, string(ids[0]), &buf))
	assert.Contains(t, buf.String(), "SEQ")
	assert.Regexp(t, `3\s+greet\s+pass`, buf.String())

	buf.Reset()
	require.NoError(t, DeleteRun(context.Background(), s, string(ids[0]), &buf))
	assert.Error(t, ShowRun(context.Background(), s, string(ids[0]), &buf))
}

func TestRun_FailedTreeIsAnError(t *testing.T) {
	s, err := NewStack(Options{Dir: project(t), LogLevel: "error"})
	require.NoError(t, err)

	var buf bytes.Buffer
	err = Run(context.Background(), s, RunOptions{Tree: "broken_gate"}, &buf, tui.ColorNever)
	assert.ErrorIs(t, err, ErrTreeFailed)
	assert.Contains(t, buf.String(), "broken_gate fail")
}

func TestRun_JSON(t *testing.T) {
	s, err := NewStack(Options{Dir: project(t), LogLevel: "error"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Run(context.Background(), s, RunOptions{Tree: "greet", JSON: true, Banner: true}, &buf, tui.ColorNever))
	assert.Contains(t, buf.String(), `"outcome": "pass"`)
	assert.NotContains(t, buf.String(), "[hello]")
}

func TestValidate(t *testing.T) {
	dir := project(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.tree.yaml"), []byte("name: bad\nroot: {name: bad, kind: nope}"), 0644))
	s, err := NewStack(Options{Dir: dir, LogLevel: "error"})
	require.NoError(t, err)

	var buf bytes.Buffer
	err = Validate(s, nil, &buf)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "✗ bad")
	assert.Contains(t, buf.String(), "✓ greet")

	buf.Reset()
	assert.NoError(t, Validate(s, []string{"greet"}, &buf))
}

func TestNewStack_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewStack(Options{Dir: project(t), LogLevel: "error", RedisURL: "redis://" + mr.Addr(), Metrics: true})
	require.NoError(t, err)
	defer s.Close()
	require.NotNil(t, s.Prometheus)

	var buf bytes.Buffer
	require.NoError(t, Run(context.Background(), s, RunOptions{Tree: "greet"}, &buf, tui.ColorNever))

	ids, err := s.Sessions.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 1)
	assert.NotEmpty(t, mr.Keys())

	families, err := s.Prometheus.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "arbor_node_outcomes_total")
}

func TestNewStack_Errors(t *testing.T) {
	_, err := NewStack(Options{Dir: t.TempDir(), LogLevel: "loud"})
	assert.Error(t, err)

	_, err = NewStack(Options{Dir: t.TempDir(), RedisURL: "://nope"})
	assert.ErrorContains(t, err, "invalid redis url")
}

func TestRunWatch_RerunsOnChange(t *testing.T) {
	dir := project(t)
	s, err := NewStack(Options{Dir: dir, LogLevel: "error"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	w := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- RunWatch(ctx, s, RunOptions{Tree: "broken_gate"}, w, tui.ColorNever)
	}()

	require.Eventually(t, func() bool {
		return bytes.Contains(w.Bytes(), []byte("Waiting for changes"))
	}, 5*time.Second, 20*time.Millisecond)

	fixed := []byte("name: broken_gate\nroot: {name: broken_gate, kind: end_with, with: {outcome: pass}}\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken_gate.tree.yaml"), fixed, 0644))

	require.Eventually(t, func() bool {
		return bytes.Contains(w.Bytes(), []byte("broken_gate pass"))
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
