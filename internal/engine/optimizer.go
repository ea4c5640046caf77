package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/piwi3910/BarCut/internal/model"
)

// Optimizer runs the linear cutting stock algorithms.
type Optimizer struct {
	Settings model.EngineSettings

	logger    *zap.Logger
	validate  *validator.Validate
	evaluator FitnessEvaluator
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithEvaluator overrides the fitness evaluator chosen from the settings.
func WithEvaluator(e FitnessEvaluator) Option {
	return func(o *Optimizer) {
		if e != nil {
			o.evaluator = e
		}
	}
}

func New(settings model.EngineSettings, opts ...Option) *Optimizer {
	o := &Optimizer{
		Settings: settings,
		logger:   zap.NewNop(),
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.evaluator == nil {
		o.evaluator = NewEvaluator(settings.Evaluator, settings.EvaluatorWorkers)
	}
	return o
}

// Validate checks a request without optimizing it.
func (o *Optimizer) Validate(req model.Request) error {
	_, err := normalize(o.validate, o.Settings, req)
	return err
}

// Optimize turns a request into a cutting plan. On failure the returned
// response carries the error code and message as well.
func (o *Optimizer) Optimize(req model.Request) (resp model.Response, err error) {
	start := time.Now()
	algorithm := req.Algorithm
	if algorithm == "" {
		algorithm = o.Settings.Algorithm
	}

	defer func() {
		if r := recover(); r != nil {
			err = internalError(fmt.Errorf("%v", r), "optimization panicked")
			resp = FailureResponse(err, algorithm)
			o.logger.Error("optimization panicked", zap.Any("panic", r))
		}
	}()

	p, err := normalize(o.validate, o.Settings, req)
	if err != nil {
		o.logger.Info("request rejected", zap.String("code", CodeOf(err)), zap.Error(err))
		return FailureResponse(err, algorithm), err
	}

	o.logger.Debug("request normalized",
		zap.String("algorithm", string(p.algorithm)),
		zap.String("mode", string(p.mode)),
		zap.Int("units", len(p.units)),
		zap.Int("pools", len(p.pools)),
		zap.Duration("budget", p.budget),
	)

	ctx, cancel := context.WithTimeout(context.Background(), p.budget)
	defer cancel()

	if p.mode == model.ModeAdvanced {
		resp, err = o.optimizeAdvanced(ctx, p, start)
	} else {
		var sol model.Solution
		sol, err = o.solve(ctx, p)
		if err == nil {
			resp, err = assemble(p, sol, time.Since(start))
		}
	}
	if err != nil {
		o.logger.Info("optimization failed", zap.String("code", CodeOf(err)), zap.Error(err))
		return FailureResponse(err, p.algorithm), err
	}

	o.logger.Info("optimization finished",
		zap.String("algorithm", string(p.algorithm)),
		zap.Int("cuts", len(resp.Cuts)),
		zap.Float64("waste_percentage", resp.WastePercentage),
		zap.Int64("elapsed_ms", resp.ExecutionTime),
	)
	return resp, nil
}

// optimizeAdvanced builds a Pareto front and reports its knee point.
func (o *Optimizer) optimizeAdvanced(ctx context.Context, p *problem, start time.Time) (model.Response, error) {
	front, err := o.paretoSearch(ctx, p)
	if err != nil {
		return model.Response{}, err
	}
	knee, ok := front.KneeSolution()
	if !ok {
		return model.Response{}, internalError(nil, "pareto search produced no solutions")
	}
	resp, err := assemble(p, knee, time.Since(start))
	if err != nil {
		return model.Response{}, err
	}
	resp.ParetoFront = front.Entries
	resp.FrontSize = len(front.Entries)
	resp.RecommendedSolution = &knee
	return resp, nil
}

// solve runs the algorithm selected for the problem.
func (o *Optimizer) solve(ctx context.Context, p *problem) (model.Solution, error) {
	start := time.Now()
	meta := model.AlgorithmMetadata{
		Algorithm:       p.algorithm,
		ComplexityClass: complexityClass(p.algorithm),
		Seed:            p.seed,
		PoolCount:       len(p.pools),
	}

	var sol model.Solution
	switch p.algorithm {
	case model.AlgorithmFFD, model.AlgorithmBFD:
		rule := ruleFirstFit
		if p.algorithm == model.AlgorithmBFD {
			rule = ruleBestFit
		}
		bins, err := packHeuristic(p, rule)
		if err != nil {
			return model.Solution{}, err
		}
		sol = evaluateBins(p, bins, meta)

	case model.AlgorithmPatternExact:
		inv := newInventory(p.stocks)
		var all []*bin
		meta.Exact = true
		for _, pl := range p.pools {
			bins, stats, err := searchPool(ctx, p, pl, inv)
			if err != nil {
				return model.Solution{}, err
			}
			all = append(all, bins...)
			meta.NodesExplored += stats.nodes
			meta.Exact = meta.Exact && stats.exact && !stats.fallback
			meta.TimeBounded = meta.TimeBounded || stats.timeBounded
			meta.FallbackUsed = meta.FallbackUsed || stats.fallback
			o.logger.Debug("pattern search pool",
				zap.String("profile", pl.profile),
				zap.Int("pieces", len(pl.units)),
				zap.Int("nodes", stats.nodes),
				zap.Bool("exact", stats.exact),
			)
		}
		sol = evaluateBins(p, all, meta)

	case model.AlgorithmPooling:
		var err error
		sol, err = o.solvePooling(ctx, p, meta)
		if err != nil {
			return model.Solution{}, err
		}

	case model.AlgorithmGenetic:
		ga := newGeneticOptimizer(p, o.evaluator, o.logger)
		var err error
		sol, err = ga.optimize(ctx)
		if err != nil {
			return model.Solution{}, err
		}

	default:
		return model.Solution{}, newError(CodeInvalidRequest, "unknown algorithm %q", p.algorithm)
	}

	sol.Metadata.ElapsedMs = time.Since(start).Milliseconds()
	return sol, nil
}

// solvePooling packs each cross-order pool with FFD, BFD and, for small
// pools, pattern search, keeping the best scoring candidate per pool. Ties
// go to the candidate that mixes fewer work orders on one bar.
func (o *Optimizer) solvePooling(ctx context.Context, p *problem, meta model.AlgorithmMetadata) (model.Solution, error) {
	inv := newInventory(p.stocks)
	var all []*bin
	inner := make(map[string]bool)

	for _, pl := range p.pools {
		type candidate struct {
			name  string
			bins  []*bin
			inv   *inventory
			sol   model.Solution
			mixed int
			stats patternStats
		}
		var cands []candidate
		var firstErr error

		// A candidate that runs out of stock is skipped; the pool fails only
		// when every candidate does.
		for _, rule := range []placementRule{ruleFirstFit, ruleBestFit} {
			cinv := inv.clone()
			bins, err := newPacker(p, rule).packPool(pl, sortDescending(pl.units), cinv)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			cands = append(cands, candidate{name: rule.String(), bins: bins, inv: cinv})
		}
		if len(pl.units) <= p.settings.Pattern.MaxPieces {
			cinv := inv.clone()
			bins, stats, err := searchPool(ctx, p, pl, cinv)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
			} else {
				cands = append(cands, candidate{name: string(model.AlgorithmPatternExact), bins: bins, inv: cinv, stats: stats})
			}
		}
		if len(cands) == 0 {
			return model.Solution{}, firstErr
		}

		best := -1
		for i := range cands {
			cands[i].sol = evaluateBins(p, cands[i].bins, meta)
			cands[i].mixed = mixedBins(cands[i].bins)
			if best < 0 {
				best = i
				continue
			}
			c, b := cands[i], cands[best]
			if tied(c.sol, b.sol) {
				if c.mixed < b.mixed {
					best = i
				}
			} else if c.sol.Fitness > b.sol.Fitness {
				best = i
			}
		}

		chosen := cands[best]
		o.logger.Debug("pooling pool",
			zap.String("profile", pl.profile),
			zap.Int("pieces", len(pl.units)),
			zap.String("winner", chosen.name),
			zap.Int("bars", len(chosen.bins)),
		)
		inner[chosen.name] = true
		meta.NodesExplored += chosen.stats.nodes
		meta.TimeBounded = meta.TimeBounded || chosen.stats.timeBounded
		*inv = *chosen.inv
		all = append(all, chosen.bins...)
	}

	for _, name := range []string{string(model.AlgorithmFFD), string(model.AlgorithmBFD), string(model.AlgorithmPatternExact)} {
		if inner[name] {
			meta.InnerAlgorithms = append(meta.InnerAlgorithms, name)
		}
	}
	return evaluateBins(p, all, meta), nil
}

// tied reports whether two pool candidates score the same on fitness.
func tied(a, b model.Solution) bool {
	d := a.Fitness - b.Fitness
	return d < eps && d > -eps
}

// mixedBins counts bars carrying pieces from more than one work order.
func mixedBins(bins []*bin) int {
	n := 0
	for _, b := range bins {
		for _, u := range b.pieces[1:] {
			if u.WorkOrderID != b.pieces[0].WorkOrderID {
				n++
				break
			}
		}
	}
	return n
}

func complexityClass(a model.Algorithm) string {
	switch a {
	case model.AlgorithmFFD, model.AlgorithmBFD:
		return "O(n log n + n*b)"
	case model.AlgorithmGenetic:
		return "O(g*p*n*b)"
	case model.AlgorithmPatternExact:
		return "exponential (branch and bound)"
	case model.AlgorithmPooling:
		return "portfolio"
	default:
		return ""
	}
}
