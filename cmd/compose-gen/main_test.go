package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmdWritesFile(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "docker-compose-dev.yaml")

	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{out, "2"})
	require.NoError(t, cmd.Execute())

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(b), "client2:")
	assert.NotContains(t, string(b), "client3:")
	assert.Contains(t, stdout.String(), "with 2 clients")
}

func TestRootCmdRejectsBadArgs(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{{"out.yaml"}, {"out.yaml", "many"}, {"out.yaml", "0"}} {
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		assert.Error(t, cmd.Execute(), "%v", args)
	}
}
