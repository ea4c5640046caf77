package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/BarCut/internal/engine"
	"github.com/piwi3910/BarCut/internal/model"
	"github.com/piwi3910/BarCut/internal/project"
)

// testCommand points the global flags at a temp dir and returns a command
// whose output is captured.
func testCommand(t *testing.T) (*cobra.Command, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	configPath = filepath.Join(dir, "config.yaml")
	logLevel = "error"

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	return cmd, &out, dir
}

func writeCutList(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "cutlist.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestBuildRequest(t *testing.T) {
	pieces := []model.Piece{{WorkOrderID: "W1", ProfileType: "P40", Length: 1200, Quantity: 2}}
	req := buildRequest(pieces, []float64{6000, 6500}, "P40", 2.5)

	assert.Equal(t, pieces, req.Items)
	assert.Equal(t, 2.5, req.Constraints.KerfWidth)
	require.Len(t, req.Objectives, 1)
	assert.Equal(t, model.ObjectiveMinimizeWaste, req.Objectives[0].Type)

	require.Len(t, req.MaterialStockLengths, 2)
	for _, s := range req.MaterialStockLengths {
		assert.Equal(t, "P40", s.ProfileType)
		assert.True(t, s.Unlimited())
		assert.Len(t, s.ID, 8)
	}
	assert.Equal(t, 6500.0, req.MaterialStockLengths[1].StockLength)
}

func TestImportThenOptimize(t *testing.T) {
	cmd, out, dir := testCommand(t)

	importInput = writeCutList(t, dir, "Order,Profile,Length,Qty\nW1,P40,1200,2\nW2,P40,800,3\n")
	importOutput = filepath.Join(dir, "request.json")
	importStock = []float64{6000}
	importProfile = ""
	importKerf = -1
	importAlgorithm = "ffd"
	require.NoError(t, runImport(cmd, nil))
	assert.Contains(t, out.String(), "Imported 2 items")

	req, err := project.LoadRequest(importOutput)
	require.NoError(t, err)
	assert.Equal(t, model.AlgorithmFFD, req.Algorithm)
	assert.Equal(t, model.DefaultSettings().KerfWidth, req.Constraints.KerfWidth)

	out.Reset()
	optimizeInput = importOutput
	optimizeOutput = filepath.Join(dir, "out", "response.json")
	optimizeAlgorithm = ""
	optimizeArchive = filepath.Join(dir, "run.json")
	optimizeStockFile = ""
	require.NoError(t, runOptimize(cmd, nil))
	assert.Contains(t, out.String(), "Bars used:   1")

	archive, err := project.LoadRunArchive(optimizeArchive)
	require.NoError(t, err)
	assert.True(t, archive.Response.Success)
	require.Len(t, archive.Response.Cuts, 1)
	assert.Len(t, archive.Response.Cuts[0].Segments, 5)
}

func TestImportNoPieces(t *testing.T) {
	cmd, out, dir := testCommand(t)

	importInput = writeCutList(t, dir, "Order,Profile,Length,Qty\nW1,,1200,2\n")
	importOutput = filepath.Join(dir, "request.json")
	importKerf = -1
	importAlgorithm = ""

	err := runImport(cmd, nil)
	assert.ErrorContains(t, err, "no pieces imported")
	assert.Contains(t, out.String(), "Missing profile")
}

func TestOptimizeInfeasibleWritesFailureResponse(t *testing.T) {
	cmd, _, dir := testCommand(t)

	req := buildRequest([]model.Piece{{WorkOrderID: "W1", ProfileType: "P40", Length: 7000, Quantity: 1}}, []float64{6000}, "", 3)
	optimizeInput = filepath.Join(dir, "request.json")
	require.NoError(t, project.SaveRequest(optimizeInput, req))
	optimizeOutput = filepath.Join(dir, "response.json")
	optimizeAlgorithm = ""
	optimizeArchive = ""
	optimizeStockFile = ""

	err := runOptimize(cmd, nil)
	require.Error(t, err)
	var engErr *engine.Error
	assert.True(t, errors.As(err, &engErr))

	data, readErr := os.ReadFile(optimizeOutput)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), `"success": false`)
}

func TestValidateCommand(t *testing.T) {
	cmd, out, dir := testCommand(t)

	req := buildRequest([]model.Piece{{ProfileType: "P40", Length: 1000, Quantity: 1}}, []float64{6000}, "", 3)
	validateInput = filepath.Join(dir, "request.json")
	require.NoError(t, project.SaveRequest(validateInput, req))
	require.NoError(t, runValidate(cmd, nil))
	assert.Contains(t, out.String(), "Validation passed: 1 items, 1 stock lengths")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"items": [], "objectives": [], "materialStockLengths": [], "algorithm": "random"}`), 0644))
	validateInput = bad
	err := runValidate(cmd, nil)
	assert.ErrorContains(t, err, "validation failed")
}

func TestWriteComparison(t *testing.T) {
	results := []engine.ComparisonResult{
		{Scenario: engine.ComparisonScenario{Name: "ffd"}, BarsUsed: 3, TotalCuts: 9, WastePercent: 12.5},
		{Scenario: engine.ComparisonScenario{Name: "bfd"}, BarsUsed: 2, TotalCuts: 9, WastePercent: 4.25},
		{Scenario: engine.ComparisonScenario{Name: "genetic"}, Err: errors.New("boom")},
	}

	var buf bytes.Buffer
	writeComparison(&buf, results, 1)
	text := buf.String()

	assert.Contains(t, text, "SCENARIO")
	assert.Contains(t, text, "bfd *")
	assert.Contains(t, text, "4.25")
	assert.Contains(t, text, engine.CodeOptimizationError)
	assert.NotContains(t, text, "ffd *")
}

func TestInitConfig(t *testing.T) {
	cmd, _, _ := testCommand(t)

	initConfigForce = false
	require.NoError(t, runInitConfig(cmd, nil))
	_, err := os.Stat(configPath)
	require.NoError(t, err)

	assert.ErrorContains(t, runInitConfig(cmd, nil), "already exists")

	initConfigForce = true
	assert.NoError(t, runInitConfig(cmd, nil))
	initConfigForce = false
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"", "debug", "info", "warn", "error"} {
		logger, err := newLogger(level)
		require.NoError(t, err, level)
		require.NotNil(t, logger)
	}
	_, err := newLogger("loud")
	assert.Error(t, err)
}
