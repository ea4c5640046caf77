package engine

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/piwi3910/BarCut/internal/model"
)

func makeGeneticRequest() model.Request {
	req := testRequest(model.AlgorithmGenetic,
		[]model.Piece{
			piece("W1", "P40", 1830, 2),
			piece("W1", "P40", 1220, 3),
			piece("W2", "P40", 940, 4),
			piece("W2", "P40", 610, 3),
			piece("W3", "P60", 2440, 2),
			piece("W3", "P60", 760, 5),
		},
		[]model.StockDefinition{stock("P40", 6000, 0), stock("P60", 6500, 0)},
	)
	req.Constraints.KerfWidth = 3
	req.Performance.MaxIterations = 30
	return req
}

func TestGeneticOptimizerPlacesAllPieces(t *testing.T) {
	req := makeGeneticRequest()
	p := mustNormalize(t, defaultTestSettings(), req)

	sol, err := newGeneticOptimizer(p, CPUEvaluator{}, zap.NewNop()).optimize(context.Background())
	require.NoError(t, err)

	if got := sol.SegmentCount(); got != len(p.units) {
		t.Errorf("expected %d segments, got %d", len(p.units), got)
	}
	if !sol.Feasible() {
		t.Errorf("expected a feasible solution, got violations %v", sol.Violations)
	}
	assert.Equal(t, model.AlgorithmGenetic, sol.Metadata.Algorithm)
	assert.Equal(t, "bfd", sol.Metadata.InnerAlgorithms[0])
	assert.Equal(t, p.genetic.populationSize, sol.Metadata.PopulationSize)
	assert.LessOrEqual(t, sol.Metadata.Generations, 30)
	assert.NotEmpty(t, sol.Metadata.ConvergenceReason)
}

func TestGeneticOptimizerNotWorseThanGreedy(t *testing.T) {
	req := makeGeneticRequest()
	p := mustNormalize(t, defaultTestSettings(), req)
	ga := newGeneticOptimizer(p, CPUEvaluator{}, zap.NewNop())

	greedy, err := ga.decode(ga.createGreedyChromosome().genes)
	require.NoError(t, err)

	sol, err := ga.optimize(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sol.Fitness, greedy.Fitness-1e-9)
}

func TestGeneticOptimizerReproducible(t *testing.T) {
	req := makeGeneticRequest()
	seed := int64(1234)
	req.Performance.DeterministicSeed = &seed

	run := func(e FitnessEvaluator) model.Solution {
		p := mustNormalize(t, defaultTestSettings(), req)
		sol, err := newGeneticOptimizer(p, e, zap.NewNop()).optimize(context.Background())
		require.NoError(t, err)
		return sol
	}

	first := run(CPUEvaluator{})
	second := run(CPUEvaluator{})
	parallel := run(BatchedEvaluator{Workers: 4})

	assert.Equal(t, first.Cuts, second.Cuts)
	assert.Equal(t, first.Cuts, parallel.Cuts)
	assert.Equal(t, first.Metadata.Generations, parallel.Metadata.Generations)
	assert.Equal(t, int64(1234), first.Metadata.Seed)
}

func TestGeneticOptimizerAllInfeasible(t *testing.T) {
	req := testRequest(model.AlgorithmGenetic,
		[]model.Piece{piece("W1", "P40", 700, 3)},
		[]model.StockDefinition{stock("P40", 1000, 0)},
	)
	req.Constraints.MaxWastePercentage = 1
	req.Performance.MaxIterations = 5
	p := mustNormalize(t, defaultTestSettings(), req)

	_, err := newGeneticOptimizer(p, CPUEvaluator{}, zap.NewNop()).optimize(context.Background())
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeInfeasible))
}

func TestGeneticOptimizerTimeBudget(t *testing.T) {
	p := mustNormalize(t, defaultTestSettings(), makeGeneticRequest())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sol, err := newGeneticOptimizer(p, CPUEvaluator{}, zap.NewNop()).optimize(ctx)
	require.NoError(t, err)
	assert.True(t, sol.Metadata.TimeBounded)
	assert.Equal(t, reasonTimeBudget, sol.Metadata.ConvergenceReason)
	assert.Equal(t, 0, sol.Metadata.Generations)
}

func TestGreedyChromosomeIsLengthDescending(t *testing.T) {
	p := mustNormalize(t, defaultTestSettings(), makeGeneticRequest())
	ga := newGeneticOptimizer(p, CPUEvaluator{}, zap.NewNop())

	c := ga.createGreedyChromosome()
	require.Len(t, c.genes, len(p.units))
	for i := 1; i < len(c.genes); i++ {
		if p.units[c.genes[i-1]].Length < p.units[c.genes[i]].Length {
			t.Fatalf("gene %d is longer than its predecessor", i)
		}
	}
}

func TestOrderCrossoverKeepsPermutation(t *testing.T) {
	rng := streamRand(42, 1, 1)
	p1 := chromosome{genes: []int{0, 1, 2, 3, 4, 5, 6, 7}}
	p2 := chromosome{genes: []int{7, 6, 5, 4, 3, 2, 1, 0}}

	for i := 0; i < 50; i++ {
		child := orderCrossover(rng, p1, p2)
		got := append([]int(nil), child.genes...)
		sort.Ints(got)
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, got)
	}
}

func TestMutateKeepsPermutation(t *testing.T) {
	p := mustNormalize(t, defaultTestSettings(), makeGeneticRequest())
	ga := newGeneticOptimizer(p, CPUEvaluator{}, zap.NewNop())
	ga.params.mutationRate = 1

	c := ga.createGreedyChromosome()
	rng := streamRand(1, 2, 3)
	for i := 0; i < 20; i++ {
		ga.mutate(rng, &c)
	}
	seen := make(map[int]bool)
	for _, g := range c.genes {
		assert.False(t, seen[g], "gene %d duplicated", g)
		seen[g] = true
	}
	assert.Len(t, seen, len(p.units))
}

func TestStreamRandIsIndexAddressable(t *testing.T) {
	a := streamRand(42, 3, 7).Int63()
	b := streamRand(42, 3, 7).Int63()
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, streamRand(42, 3, 8).Int63())
	assert.NotEqual(t, a, streamRand(42, 4, 7).Int63())
	assert.NotEqual(t, a, streamRand(43, 3, 7).Int63())
}
