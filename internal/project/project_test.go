package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/BarCut/internal/model"
	"github.com/piwi3910/BarCut/internal/schemas"
)

func sampleRequest() model.Request {
	seed := int64(7)
	return model.Request{
		Items: []model.Piece{
			{WorkOrderID: "W1", ProfileType: "P40", Length: 1200, Quantity: 3},
			{WorkOrderID: "W2", ProfileType: "P60", Length: 800, Quantity: 2},
		},
		Algorithm: model.AlgorithmGenetic,
		Objectives: []model.Objective{
			{Type: model.ObjectiveMinimizeWaste, Weight: 1, Priority: 1},
		},
		Constraints: model.Constraints{KerfWidth: 3, StartSafety: 10, EndSafety: 10},
		MaterialStockLengths: []model.StockDefinition{
			{ProfileType: "P40", StockLength: 6000, CostPerStock: 45},
			{StockLength: 6500},
		},
		Performance: model.PerformanceSettings{DeterministicSeed: &seed},
	}
}

func TestSaveAndLoadRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs", "request.json")
	req := sampleRequest()

	require.NoError(t, SaveRequest(path, req))
	loaded, err := LoadRequest(path)
	require.NoError(t, err)
	assert.Equal(t, req, loaded)
}

func TestLoadRequest_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadRequest(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "failed to read request file")

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"items": [{"profileType": "P40", "length": 0, "quantity": 1}], "objectives": [], "materialStockLengths": []}`), 0644))
	_, err = LoadRequest(invalid)
	var ve *schemas.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestSaveResponse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "response.json")
	resp := model.Response{
		Success:   true,
		Algorithm: model.AlgorithmBFD,
		Cuts: []model.Cut{{
			ID:          "C001",
			ProfileType: "P40",
			StockLength: 6000,
			Segments:    []model.Segment{{Offset: 10, Length: 1200, ProfileType: "P40", WorkOrderID: "W1"}},
		}},
	}
	require.NoError(t, SaveResponse(path, resp))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"wastePercentage"`)
	assert.Contains(t, string(data), `"workOrderId": "W1"`)
}

func TestLoadStock_MissingFileIsEmpty(t *testing.T) {
	stocks, err := LoadStock(filepath.Join(t.TempDir(), "stock.json"))
	require.NoError(t, err)
	assert.NotNil(t, stocks)
	assert.Empty(t, stocks)
}

func TestMergeOffcuts(t *testing.T) {
	existing := []model.StockDefinition{
		{ID: "bar-6000", ProfileType: "P40", StockLength: 6000},
		{ID: "a1b2c3d4", ProfileType: "P40", StockLength: 900, Availability: 1},
	}
	offcuts := []model.Offcut{
		{ID: "a1b2c3d4", ProfileType: "P40", Length: 900},
		{ID: "e5f6a7b8", ProfileType: "P60", Length: 1500, Value: 12.5},
	}

	merged := MergeOffcuts(existing, offcuts)
	require.Len(t, merged, 3)
	added := merged[2]
	assert.Equal(t, "e5f6a7b8", added.ID)
	assert.Equal(t, "P60", added.ProfileType)
	assert.Equal(t, 1500.0, added.StockLength)
	assert.Equal(t, 1, added.Availability)
	assert.Equal(t, 12.5, added.CostPerStock)
}

func TestReturnOffcutsToStock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stock.json")
	require.NoError(t, SaveStock(path, []model.StockDefinition{{ID: "s1", ProfileType: "P40", StockLength: 6000}}))

	offcuts := []model.Offcut{{ID: "o1", ProfileType: "P40", Length: 700}}
	n, err := ReturnOffcutsToStock(path, offcuts)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Running again adds nothing
	n, err = ReturnOffcutsToStock(path, offcuts)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	stocks, err := LoadStock(path)
	require.NoError(t, err)
	assert.Len(t, stocks, 2)
}

func TestRunArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	archive := NewRunArchive(sampleRequest(), model.Response{Success: true, Algorithm: model.AlgorithmGenetic})
	assert.NotEmpty(t, archive.ID)
	assert.Equal(t, archiveVersion, archive.Version)

	require.NoError(t, SaveRunArchive(path, archive))
	loaded, err := LoadRunArchive(path)
	require.NoError(t, err)
	assert.Equal(t, archive.ID, loaded.ID)
	assert.Equal(t, archive.Request, loaded.Request)
	assert.True(t, loaded.Response.Success)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"id": "x"}`), 0644))
	_, err = LoadRunArchive(bad)
	assert.ErrorContains(t, err, "missing version")
}
