package engine

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/piwi3910/BarCut/internal/model"
)

// paretoCandidate is one inner run of the advanced mode.
type paretoCandidate struct {
	weights map[model.ObjectiveType]float64
	scores  map[model.ObjectiveType]float64 // normalized, higher is better
	sol     model.Solution
}

// activeObjectives returns the objective types the front is built over.
// A single objective gives no trade-off, so waste and cost are used instead.
func activeObjectives(p *problem) []model.ObjectiveType {
	if len(p.objectives) < 2 {
		return []model.ObjectiveType{model.ObjectiveMinimizeWaste, model.ObjectiveMinimizeCost}
	}
	types := make([]model.ObjectiveType, 0, len(p.objectives))
	for _, o := range p.objectives {
		types = append(types, o.Type)
	}
	return types
}

// weightVectors returns unit vectors for each objective followed by the
// interior points of a simplex lattice with the given resolution, capped
// at maxRuns.
func weightVectors(types []model.ObjectiveType, steps, maxRuns int) []map[model.ObjectiveType]float64 {
	k := len(types)
	if steps < 1 {
		steps = 1
	}
	var out []map[model.ObjectiveType]float64
	seen := make(map[string]bool)
	add := func(parts []int) {
		key := make([]byte, 0, len(parts))
		for _, v := range parts {
			key = append(key, byte(v))
		}
		if seen[string(key)] || (maxRuns > 0 && len(out) >= maxRuns) {
			return
		}
		seen[string(key)] = true
		w := make(map[model.ObjectiveType]float64, k)
		for i, t := range types {
			w[t] = float64(parts[i]) / float64(steps)
		}
		out = append(out, w)
	}

	for i := range types {
		parts := make([]int, k)
		parts[i] = steps
		add(parts)
	}

	// Compositions of steps into k parts, in lexicographic order
	parts := make([]int, k)
	var walk func(pos, left int)
	walk = func(pos, left int) {
		if pos == k-1 {
			parts[pos] = left
			add(append([]int(nil), parts...))
			return
		}
		for v := left; v >= 0; v-- {
			parts[pos] = v
			walk(pos+1, left-v)
		}
	}
	walk(0, steps)
	return out
}

// dominates reports whether a is at least as good as b on every objective
// and strictly better on one.
func dominates(a, b map[model.ObjectiveType]float64, types []model.ObjectiveType) bool {
	strictly := false
	for _, t := range types {
		if a[t] < b[t]-eps {
			return false
		}
		if a[t] > b[t]+eps {
			strictly = true
		}
	}
	return strictly
}

func sameScores(a, b map[model.ObjectiveType]float64, types []model.ObjectiveType) bool {
	for _, t := range types {
		if math.Abs(a[t]-b[t]) > eps {
			return false
		}
	}
	return true
}

// paretoFilter keeps feasible, mutually non-dominated candidates with
// distinct objective vectors. If no candidate is feasible all are considered.
func paretoFilter(cands []paretoCandidate, types []model.ObjectiveType) []paretoCandidate {
	var pool []paretoCandidate
	for _, c := range cands {
		if c.sol.Feasible() {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		pool = cands
	}

	var front []paretoCandidate
	for i, c := range pool {
		dominated := false
		for j, other := range pool {
			if i != j && dominates(other.scores, c.scores, types) {
				dominated = true
				break
			}
		}
		if dominated {
			continue
		}
		duplicate := false
		for _, f := range front {
			if sameScores(f.scores, c.scores, types) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			front = append(front, c)
		}
	}
	return front
}

// kneePoint min-max normalizes each objective over the front (0 = ideal) and
// returns the index closest to the ideal point with each entry's distance.
// Ties go to the better score on the highest priority objective, then to the
// lower index.
func kneePoint(front []paretoCandidate, types []model.ObjectiveType, priority []model.ObjectiveType) (int, []float64) {
	dist := make([]float64, len(front))
	if len(front) == 0 {
		return -1, dist
	}
	for _, t := range types {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, c := range front {
			lo = math.Min(lo, c.scores[t])
			hi = math.Max(hi, c.scores[t])
		}
		span := hi - lo
		if span < eps {
			continue
		}
		for i, c := range front {
			d := (hi - c.scores[t]) / span
			dist[i] += d * d
		}
	}
	for i := range dist {
		dist[i] = math.Sqrt(dist[i])
	}

	order := make([]int, len(front))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if math.Abs(dist[ia]-dist[ib]) > eps {
			return dist[ia] < dist[ib]
		}
		for _, t := range priority {
			sa, sb := front[ia].scores[t], front[ib].scores[t]
			if math.Abs(sa-sb) > eps {
				return sa > sb
			}
		}
		return false
	})
	return order[0], dist
}

// paretoSearch runs the configured algorithm once per weight vector,
// concurrently, and reduces the results to a front with a knee point.
func (o *Optimizer) paretoSearch(ctx context.Context, p *problem) (model.ParetoFront, error) {
	cfg := o.Settings.Pareto
	types := activeObjectives(p)
	vectors := weightVectors(types, cfg.Steps, cfg.MaxRuns)

	o.logger.Debug("pareto search",
		zap.Int("runs", len(vectors)),
		zap.Int("objectives", len(types)),
	)

	results := make([]paretoCandidate, len(vectors))
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Concurrency > 0 {
		g.SetLimit(cfg.Concurrency)
	}
	for i, w := range vectors {
		g.Go(func() (err error) {
			// errgroup does not recover panics on its goroutines
			defer func() {
				if r := recover(); r != nil {
					err = internalError(fmt.Errorf("%v", r), "pareto run %d panicked", i)
				}
			}()
			sub := p.withWeights(w)
			sol, err := o.solve(gctx, sub)
			if err != nil {
				return err
			}
			results[i] = paretoCandidate{
				weights: w,
				scores:  objectiveScores(p, sol.Metrics),
				sol:     sol,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.ParetoFront{}, err
	}

	front := paretoFilter(results, types)
	priority := make([]model.ObjectiveType, 0, len(p.objectives))
	for _, obj := range p.objectives {
		priority = append(priority, obj.Type)
	}
	knee, dist := kneePoint(front, types, priority)

	pf := model.ParetoFront{Knee: knee, Entries: make([]model.ParetoEntry, 0, len(front))}
	for i, c := range front {
		objectives := make(map[model.ObjectiveType]float64, len(types))
		values := objectiveValues(c.sol.Metrics)
		for _, t := range types {
			objectives[t] = values[t]
		}
		pf.Entries = append(pf.Entries, model.ParetoEntry{
			Weights:    c.weights,
			Objectives: objectives,
			Distance:   dist[i],
			Solution:   c.sol,
		})
	}
	return pf, nil
}
