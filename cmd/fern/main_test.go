package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Ramsey-B/fern/pkg/flags"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Commands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"run", "transfers", "interactions", "connections", "family", "flags", "migrate", "serve", "viz"}, names)

	cmd, _, err := root.Find([]string{"flags"})
	require.NoError(t, err)
	assert.NotNil(t, cmd.Flags().Lookup("dry-run"))

	cmd, _, err = root.Find([]string{"interactions"})
	require.NoError(t, err)
	assert.Equal(t, "-1", cmd.Flags().Lookup("days-back").DefValue)
}

func TestVizCmd_RejectsUnknownFormat(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"viz", "--customer", "1", "--format", "gif"})
	root.SetOut(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported format "gif"`)
	assert.Contains(t, err.Error(), "dot, png, svg")
}

func TestVizCmd_RequiresCustomer(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"viz"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	assert.Error(t, root.Execute())
}

func TestPrintFlagResult(t *testing.T) {
	var buf bytes.Buffer
	printFlagResult(&buf, flags.Result{Rules: []flags.RuleResult{
		{FlagName: "first_time_day_pass_2wk_offer", Eligible: []int64{1, 2}, ToSet: []int64{2}, ToClear: []int64{7, 9}},
		{FlagName: "waiver_reminder", Skipped: "messages source absent"},
	}})

	assert.Equal(t,
		"first_time_day_pass_2wk_offer: eligible=2 to_set=[2] to_clear=[7,9]\n"+
			"waiver_reminder: skipped (messages source absent)\n",
		buf.String())
}

func TestCustomerNames(t *testing.T) {
	names := customerNames([]models.Customer{{ID: 1, FirstName: "Nancy", LastName: "Davis"}})
	assert.Equal(t, "Nancy Davis (#1)", names(1))
	assert.Equal(t, "#2", names(2))
}

func TestWriteOutput(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, writeOutput("", []byte("digraph {}"), &stdout))
	assert.Equal(t, "digraph {}", stdout.String())

	path := filepath.Join(t.TempDir(), "out.dot")
	require.NoError(t, writeOutput(path, []byte("graph {}"), &stdout))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "graph {}", string(data))

	assert.Error(t, writeOutput(filepath.Join(t.TempDir(), "missing", "out.dot"), nil, &stdout))
}
