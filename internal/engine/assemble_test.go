package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/BarCut/internal/model"
)

func solvedProblem(t *testing.T, req model.Request) (*problem, model.Solution) {
	t.Helper()
	p := mustNormalize(t, defaultTestSettings(), req)
	bins, err := packHeuristic(p, ruleFirstFit)
	require.NoError(t, err)
	return p, evaluateBins(p, bins, model.AlgorithmMetadata{Algorithm: p.algorithm})
}

func TestVerifyPlan(t *testing.T) {
	p, sol := solvedProblem(t, mixedRequest(model.AlgorithmFFD))
	require.NoError(t, verifyPlan(p, sol.Cuts))

	t.Run("missing segment", func(t *testing.T) {
		cuts := append([]model.Cut(nil), sol.Cuts...)
		cuts[0].Segments = cuts[0].Segments[1:]
		err := verifyPlan(p, cuts)
		require.Error(t, err)
		assert.Equal(t, CodeOptimizationError, CodeOf(err))
	})

	t.Run("overflowing bar", func(t *testing.T) {
		cuts := append([]model.Cut(nil), sol.Cuts...)
		cuts[0].UsedLength = cuts[0].StockLength
		err := verifyPlan(p, cuts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "needs")
	})

	t.Run("mixed profile", func(t *testing.T) {
		cuts := append([]model.Cut(nil), sol.Cuts...)
		segs := append([]model.Segment(nil), cuts[0].Segments...)
		segs[0].ProfileType = "P99"
		cuts[0].Segments = segs
		assert.Error(t, verifyPlan(p, cuts))
	})
}

func TestOrderAllocations(t *testing.T) {
	p, sol := solvedProblem(t, mixedRequest(model.AlgorithmFFD))
	allocs := orderAllocations(p, sol.Cuts)

	require.Len(t, allocs, len(p.items))
	for i, a := range allocs {
		assert.Equal(t, i, a.ItemIndex)
		assert.Equal(t, a.Requested, a.Allocated, "item %d", i)
		assert.NotEmpty(t, a.CutIndexes)
		for k := 1; k < len(a.CutIndexes); k++ {
			assert.Less(t, a.CutIndexes[k-1], a.CutIndexes[k])
		}
		for _, ci := range a.CutIndexes {
			assert.Equal(t, a.ProfileType, sol.Cuts[ci].ProfileType)
		}
	}
}

func TestWasteDistribution(t *testing.T) {
	cuts := []model.Cut{
		{WasteCategory: model.WasteMinimal},
		{WasteCategory: model.WasteReclaimable, Reclaimable: true, RemainingLength: 800},
		{WasteCategory: model.WasteReclaimable, Reclaimable: true, RemainingLength: 600},
		{WasteCategory: model.WasteExcessive},
	}
	d := wasteDistribution(cuts)
	assert.Equal(t, 4, d.TotalCuts)
	assert.Equal(t, 1, d.Minimal)
	assert.Equal(t, 2, d.Reclaimable)
	assert.Equal(t, 1, d.Excessive)
	assert.Equal(t, 1400.0, d.ReclaimableTotal)
}

func TestRecommend(t *testing.T) {
	req := testRequest(model.AlgorithmFFD,
		[]model.Piece{piece("W1", "P40", 700, 2)},
		[]model.StockDefinition{stock("P40", 1000, 0), stock("P40", 800, 0)},
	)
	p, sol := solvedProblem(t, req)
	sol.Metadata.TimeBounded = true

	recs := recommend(p, sol, nil)
	require.NotEmpty(t, recs)

	types := make(map[string]model.RecommendationPriority)
	for i, r := range recs {
		types[r.Type] = r.Priority
		if i > 0 {
			assert.LessOrEqual(t, priorityRank[recs[i-1].Priority], priorityRank[r.Priority])
		}
	}
	assert.Equal(t, model.PriorityMedium, types["time-bounded"])
	assert.NotContains(t, types, "excellent-efficiency")
}

func TestRecommend_StockLengthAlternative(t *testing.T) {
	p, sol := solvedProblem(t, testRequest(model.AlgorithmFFD,
		[]model.Piece{piece("W1", "P40", 700, 2)},
		[]model.StockDefinition{stock("P40", 1000, 0)},
	))
	// Offer a tighter bar only after packing
	p.stocks = append(p.stocks, stock("P40", 750, 0))

	recs := stockLengthRecommendations(p, sol.Cuts)
	require.Len(t, recs, 1)
	assert.Equal(t, "stock-length-waste", recs[0].Type)
	assert.Contains(t, recs[0].Message, "Consider 750mm")
}

func TestAssemble(t *testing.T) {
	req := testRequest(model.AlgorithmFFD,
		[]model.Piece{piece("W1", "P40", 700, 1), piece("W2", "P40", 950, 1)},
		[]model.StockDefinition{stock("P40", 1000, 0)},
	)
	req.Constraints.MinScrapLength = 200
	p, sol := solvedProblem(t, req)

	resp, err := assemble(p, sol, 12*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(12), resp.ExecutionTime)
	assert.Equal(t, model.AlgorithmFFD, resp.Algorithm)
	require.Len(t, resp.Cuts, 2)

	require.Len(t, resp.Offcuts, 1)
	assert.Equal(t, 300.0, resp.Offcuts[0].Length)
	assert.Equal(t, 1, resp.Offcuts[0].CutIndex)
	assert.Equal(t, 1, resp.WasteDistribution.Reclaimable)
	assert.Equal(t, 1, resp.WasteDistribution.Small)

	var types []string
	for _, r := range resp.Recommendations {
		types = append(types, r.Type)
	}
	assert.Contains(t, types, "reclaimable-offcuts")
	assert.Len(t, resp.OrderAllocations, 2)
}

func TestAssemble_NoOffcutsIsEmptySlice(t *testing.T) {
	p, sol := solvedProblem(t, scenarioA(model.AlgorithmFFD))
	resp, err := assemble(p, sol, 0)
	require.NoError(t, err)
	assert.NotNil(t, resp.Offcuts)
	assert.Empty(t, resp.Offcuts)
}
