package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	path := writeScenario(t, `
name: basic
description: one add
collections: [users]
steps:
  - op: add
    collection: users
    key: u1
    fields:
      name: Ada
`)

	sc, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "basic", sc.Name)
	assert.Equal(t, []string{"users"}, sc.Collections)
	require.Len(t, sc.Steps, 1)
	assert.Equal(t, "add", sc.Steps[0].Op)
	assert.Equal(t, "Ada", sc.Steps[0].Fields["name"])
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
collections: [users]
stepz: []
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			"missing name",
			"collections: [users]",
			"name is required",
		},
		{
			"no collections",
			"name: x",
			"collections list is required",
		},
		{
			"negative cap",
			"name: x\ncollections: [users]\nnotification_cap: -1",
			"notification_cap must not be negative",
		},
		{
			"unknown op",
			"name: x\ncollections: [users]\nsteps: [{op: upsert, collection: users, key: u1}]",
			"unknown op",
		},
		{
			"add without key",
			"name: x\ncollections: [users]\nsteps: [{op: add, collection: users}]",
			"key is required",
		},
		{
			"notify without title",
			"name: x\ncollections: [users]\nsteps: [{op: notify, category: info}]",
			"title is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
