package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"legalcosts-backend/storage"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const builtinBundle = "../../calculator/bundles/civil_fixed_costs.yaml"

const brokenBundle = `
module_id: broken
nodes:
  - node_id: a
    confidence: 2
    what:
      - proposition: ""
        weight: 1
  - node_id: a
    what:
      - proposition: dup
        weight: 1
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValidate(t *testing.T) {
	broken := writeFile(t, "broken.yaml", brokenBundle)

	out, err := execute(t, "validate", builtinBundle)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ "+builtinBundle)

	out, err = execute(t, "validate", builtinBundle, broken)
	require.EqualError(t, err, "1 of 2 bundle(s) invalid")
	assert.Contains(t, out, "✗ "+broken+": 3 violation(s)")
	assert.Contains(t, out, `duplicate node_id "a"`)
}

func TestValidate_MissingFile(t *testing.T) {
	out, err := execute(t, "validate", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
	assert.Contains(t, out, "✗ ")
}

func TestEvaluate(t *testing.T) {
	facts := writeFile(t, "facts.json", `{"court_level":"High Court","case_type":"default_judgment","party_count":3}`)

	out, err := execute(t, "evaluate", "--facts", facts)
	require.NoError(t, err)

	var got struct {
		Result struct {
			TotalCosts json.Number `json:"total_costs"`
			RuleIDs    []string    `json:"rule_ids"`
		} `json:"result"`
		State string `json:"enhancement_state"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "3050.00", got.Result.TotalCosts.String())
	assert.Equal(t, []string{"hc_default_judgment", "additional_defendant_uplift"}, got.Result.RuleIDs)
	assert.Equal(t, "skipped", got.State)
}

func TestEvaluate_Enhance(t *testing.T) {
	facts := writeFile(t, "facts.json", `{"court_level":"High Court","case_type":"default_judgment","party_count":1}`)

	out, err := execute(t, "evaluate", "--bundle", builtinBundle, "--facts", facts, "--enhance")
	require.NoError(t, err)
	assert.Contains(t, out, `"enhancement_state": "accepted"`)
	assert.Contains(t, out, "The fixed costs come to $2450.00")
}

func TestEvaluate_RequiresFacts(t *testing.T) {
	_, err := execute(t, "evaluate")
	assert.Error(t, err)
}

func TestPublish(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(&out)

	require.NoError(t, runPublish(cmd, store, builtinBundle))
	assert.Equal(t, "✓ published civil_fixed_costs as bundles/civil_fixed_costs.yaml\n", out.String())

	keys, err := store.List(context.Background(), storage.BundlePrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"bundles/civil_fixed_costs.yaml"}, keys)

	broken := writeFile(t, "broken.yaml", brokenBundle)
	err = runPublish(cmd, store, broken)
	assert.Error(t, err)
	assert.False(t, strings.Contains(out.String(), "broken"))
}
