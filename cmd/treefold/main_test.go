package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/speakeasy-api/treefold/reconciler"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestFold_YAML(t *testing.T) {
	out, _, err := run(t, "fold", "../../pkg/fixture/testdata/branches.yaml", "--format", "yaml")
	require.NoError(t, err)

	var report yamlReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, "App", report.Root.Name)
	assert.Equal(t, reconciler.NodeInlined, report.Root.Status)
	require.Len(t, report.Branches, 2)
	assert.Equal(t, "Counter", report.Branches[0].Name)
	require.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0], "boom")
	assert.Equal(t, 2, report.Statistics.OptimizedTrees)
}

func TestFold_Text(t *testing.T) {
	out, _, err := run(t, "fold", "../../pkg/fixture/testdata/closures.yaml", "--color", "never", "--metrics")
	require.NoError(t, err)

	assert.Contains(t, out, "Theme.Consumer  RENDER_PROPS")
	assert.Contains(t, out, "\nclosures:\n")
	assert.Contains(t, out, "Badge")
	assert.Contains(t, out, "nested closures: 1")
	assert.Contains(t, out, "treefold_optimized_nested_closures_total 1\n")
	assert.NotContains(t, out, "\x1b[")
}

func TestFold_Verbose(t *testing.T) {
	_, logs, err := run(t, "fold", "../../pkg/fixture/testdata/basic.yaml", "--verbose", "--format", "yaml")
	require.NoError(t, err)

	assert.Contains(t, logs, "[INFO]")
	assert.Contains(t, logs, "✔ Header (inlined)")
}

func TestFold_Errors(t *testing.T) {
	t.Run("root failure", func(t *testing.T) {
		out, _, err := run(t, "fold", "../../pkg/fixture/testdata/side_effects.yaml", "--color", "never")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mutation of window.count")
		assert.Contains(t, out, "failures:")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := run(t, "fold", "../../pkg/fixture/testdata/basic.yaml", "--format", "json")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown format "json"`)
	})

	t.Run("missing fixture", func(t *testing.T) {
		_, _, err := run(t, "fold", "nope.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read fixture nope.yaml")
	})

	t.Run("arguments", func(t *testing.T) {
		_, _, err := run(t, "fold")
		require.Error(t, err)
	})
}
