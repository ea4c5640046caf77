package engine

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/piwi3910/BarCut/internal/model"
)

// Convergence reasons reported in the algorithm metadata.
const (
	reasonGenerationCap = "generation-cap"
	reasonConverged     = "converged"
	reasonTimeBudget    = "time-budget"
)

// chromosome is a packing order over every unit piece of the request.
type chromosome struct {
	genes    []int // indexes into problem.units
	fitness  float64
	feasible bool
}

// geneticOptimizer evolves packing orders. Each order is decoded pool by
// pool with the FFD or BFD placement rule.
type geneticOptimizer struct {
	p         *problem
	params    geneticParams
	evaluator FitnessEvaluator
	logger    *zap.Logger
	poolOf    []int // pool index per unit
}

func newGeneticOptimizer(p *problem, evaluator FitnessEvaluator, logger *zap.Logger) *geneticOptimizer {
	poolOf := make([]int, len(p.units))
	for pi, pl := range p.pools {
		for _, u := range pl.units {
			poolOf[u.Index] = pi
		}
	}
	return &geneticOptimizer{
		p:         p,
		params:    p.genetic,
		evaluator: evaluator,
		logger:    logger,
		poolOf:    poolOf,
	}
}

// optimize runs the genetic algorithm and returns the best feasible solution.
func (g *geneticOptimizer) optimize(ctx context.Context) (model.Solution, error) {
	start := time.Now()
	cfg := g.params
	size := cfg.populationSize

	population := g.initPopulation()
	g.evaluator.Evaluate(size, func(i int) {
		g.evaluate(&population[i])
	})

	reason := reasonGenerationCap
	timeBounded := false
	generations := 0
	var history []float64

	// Evolution loop
	for gen := 1; gen <= cfg.generations; gen++ {
		if ctx.Err() != nil {
			reason = reasonTimeBudget
			timeBounded = true
			break
		}
		sortPopulation(population)

		best := population[0].fitness
		history = append(history, best)
		if w := cfg.convergenceWindow; len(history) > w {
			if best-history[len(history)-1-w] < cfg.convergenceEpsilon {
				reason = reasonConverged
				break
			}
		}

		next := make([]chromosome, size)

		// Elitism: carry over the best individuals unchanged
		for i := 0; i < cfg.eliteCount; i++ {
			next[i] = copyChromosome(population[i])
		}

		// Offspring i of generation gen always draws from the same stream
		for i := cfg.eliteCount; i < size; i++ {
			rng := streamRand(g.p.seed, gen, i)
			parent1 := g.tournamentSelect(rng, population)
			parent2 := g.tournamentSelect(rng, population)

			var child chromosome
			if rng.Float64() < cfg.crossoverRate {
				child = orderCrossover(rng, parent1, parent2)
			} else {
				child = copyChromosome(parent1)
			}
			g.mutate(rng, &child)
			next[i] = child
		}

		offspring := next[cfg.eliteCount:]
		g.evaluator.Evaluate(len(offspring), func(i int) {
			g.evaluate(&offspring[i])
		})

		population = next
		generations = gen

		if gen%10 == 0 {
			g.logger.Debug("genetic generation",
				zap.Int("generation", gen),
				zap.Float64("best_fitness", best),
			)
		}
	}

	sortPopulation(population)

	bestIdx := -1
	for i := range population {
		if population[i].feasible {
			bestIdx = i
			break
		}
	}
	if bestIdx < 0 {
		return model.Solution{}, newError(CodeInfeasible,
			"no feasible cutting plan found after %d generations", generations)
	}

	sol, err := g.decode(population[bestIdx].genes)
	if err != nil {
		return model.Solution{}, err
	}
	sol.Metadata = model.AlgorithmMetadata{
		Algorithm:         model.AlgorithmGenetic,
		ComplexityClass:   complexityClass(model.AlgorithmGenetic),
		Generations:       generations,
		ConvergenceReason: reason,
		BestFitness:       sol.Fitness,
		ElapsedMs:         time.Since(start).Milliseconds(),
		Seed:              g.p.seed,
		PopulationSize:    size,
		Evaluator:         g.evaluator.Name(),
		TimeBounded:       timeBounded,
		PoolCount:         len(g.p.pools),
		InnerAlgorithms:   []string{cfg.rule.String()},
	}
	return sol, nil
}

// initPopulation creates the initial population. Individual 0 is the
// length-descending order; the rest are random permutations, each drawn
// from its own stream.
func (g *geneticOptimizer) initPopulation() []chromosome {
	n := len(g.p.units)
	population := make([]chromosome, g.params.populationSize)
	population[0] = g.createGreedyChromosome()
	for i := 1; i < len(population); i++ {
		rng := streamRand(g.p.seed, 0, i)
		population[i] = chromosome{genes: rng.Perm(n)}
	}
	return population
}

// createGreedyChromosome orders pieces by length descending (mimics FFD/BFD).
func (g *geneticOptimizer) createGreedyChromosome() chromosome {
	sorted := sortDescending(g.p.units)
	genes := make([]int, len(sorted))
	for i, u := range sorted {
		genes[i] = u.Index
	}
	return chromosome{genes: genes}
}

// evaluate decodes a chromosome and stores its fitness. Orders that cannot
// be decoded rank below everything else.
func (g *geneticOptimizer) evaluate(c *chromosome) {
	sol, err := g.decode(c.genes)
	if err != nil {
		c.fitness = math.Inf(-1)
		c.feasible = false
		return
	}
	c.fitness = sol.Fitness
	c.feasible = sol.Feasible()
}

// decode packs every pool in chromosome order against a fresh inventory.
func (g *geneticOptimizer) decode(genes []int) (model.Solution, error) {
	orders := make([][]model.UnitPiece, len(g.p.pools))
	for _, gi := range genes {
		pi := g.poolOf[gi]
		orders[pi] = append(orders[pi], g.p.units[gi])
	}

	pk := newPacker(g.p, g.params.rule)
	inv := newInventory(g.p.stocks)
	var all []*bin
	for pi, pl := range g.p.pools {
		bins, err := pk.packPool(pl, orders[pi], inv)
		if err != nil {
			return model.Solution{}, err
		}
		all = append(all, bins...)
	}
	return evaluateBins(g.p, all, model.AlgorithmMetadata{Algorithm: model.AlgorithmGenetic}), nil
}

// tournamentSelect picks the best individual from a random tournament.
func (g *geneticOptimizer) tournamentSelect(rng *rand.Rand, population []chromosome) chromosome {
	best := population[rng.Intn(len(population))]
	for i := 1; i < g.params.tournamentSize; i++ {
		candidate := population[rng.Intn(len(population))]
		if candidate.fitness > best.fitness {
			best = candidate
		}
	}
	return best
}

// orderCrossover implements Order Crossover (OX1) for permutation chromosomes.
// It preserves the relative order of genes from both parents.
func orderCrossover(rng *rand.Rand, parent1, parent2 chromosome) chromosome {
	n := len(parent1.genes)
	if n <= 2 {
		return copyChromosome(parent1)
	}

	// Select two random crossover points
	point1 := rng.Intn(n)
	point2 := rng.Intn(n)
	if point1 > point2 {
		point1, point2 = point2, point1
	}

	child := chromosome{genes: make([]int, n)}

	// Copy segment from parent1
	inSegment := make([]bool, n)
	for i := point1; i <= point2; i++ {
		child.genes[i] = parent1.genes[i]
		inSegment[parent1.genes[i]] = true
	}

	// Fill remaining positions with genes from parent2 in order
	childIdx := (point2 + 1) % n
	for _, pg := range parent2.genes {
		if !inSegment[pg] {
			child.genes[childIdx] = pg
			childIdx = (childIdx + 1) % n
		}
	}

	return child
}

// mutate applies random mutations to a chromosome.
func (g *geneticOptimizer) mutate(rng *rand.Rand, c *chromosome) {
	n := len(c.genes)
	if n < 2 {
		return
	}

	// Swap mutation: swap two random genes' positions
	if rng.Float64() < g.params.mutationRate {
		i := rng.Intn(n)
		j := rng.Intn(n)
		c.genes[i], c.genes[j] = c.genes[j], c.genes[i]
	}

	// Inversion mutation: reverse a small segment (less frequent)
	if rng.Float64() < g.params.mutationRate*0.5 {
		i := rng.Intn(n)
		j := rng.Intn(n)
		if i > j {
			i, j = j, i
		}
		for i < j {
			c.genes[i], c.genes[j] = c.genes[j], c.genes[i]
			i++
			j--
		}
	}
}

// copyChromosome creates a deep copy of a chromosome.
func copyChromosome(c chromosome) chromosome {
	genes := make([]int, len(c.genes))
	copy(genes, c.genes)
	return chromosome{genes: genes, fitness: c.fitness, feasible: c.feasible}
}

// sortPopulation orders by fitness descending; ties keep their position.
func sortPopulation(population []chromosome) {
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].fitness > population[j].fitness
	})
}

// streamRand returns the generator for individual idx of generation gen.
// Streams are addressed by index, so they can be drawn in any order.
func streamRand(seed int64, gen, idx int) *rand.Rand {
	x := splitmix64(uint64(seed))
	x = splitmix64(x ^ uint64(gen)*0x9E3779B97F4A7C15)
	x = splitmix64(x ^ uint64(idx)*0xBF58476D1CE4E5B9)
	return rand.New(rand.NewSource(int64(x)))
}

func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}
