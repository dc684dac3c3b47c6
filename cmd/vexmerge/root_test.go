package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd(t *testing.T) {
	dir := t.TempDir()
	vex := filepath.Join(dir, "in.openvex.json")
	require.NoError(t, os.WriteFile(vex, []byte(`{
  "@context": "https://openvex.dev/ns/v0.2.0", "@id": "doc", "author": "a", "version": 1,
  "statements": [
    {"@id": "s1", "vulnerability": {"name": "CVE-2022-48174"}, "products": [{"@id": "busybox@1.36.1"}],
     "status": "under_investigation", "timestamp": "2024-01-01T00:00:00Z"}
  ]
}`), 0o644))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"--snapshot", filepath.Join(dir, "state.yaml"),
		"--openvex", vex,
		"--out-openvex", filepath.Join(dir, "out.openvex.json"),
	})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "1 packages, 1 vulnerabilities, 2 assessments (0 opened, 1 expired, 0 revived)")

	_, err := os.Stat(filepath.Join(dir, "state.yaml"))
	assert.NoError(t, err)
}

func TestRootCmdBadInput(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--snapshot", filepath.Join(t.TempDir(), "s.json"), "--sbom", "/does/not/exist.json"})
	assert.Error(t, cmd.Execute())
}
