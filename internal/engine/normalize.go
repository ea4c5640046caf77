package engine

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/piwi3910/BarCut/internal/model"
)

// eps absorbs floating point noise in length comparisons (mm).
const eps = 1e-6

// problem is a validated, canonical request ready for packing.
type problem struct {
	algorithm   model.Algorithm
	mode        model.AlgorithmMode
	items       []model.Piece
	units       []model.UnitPiece
	stocks      []model.StockDefinition
	pools       []profilePool
	constraints model.Constraints
	objectives  []model.Objective // weights sum to 1, ordered by priority
	costModel   model.CostModel
	seed        int64
	budget      time.Duration
	genetic     geneticParams
	settings    model.EngineSettings
	bounds      objectiveBounds
}

// geneticParams are the resolved GA parameters for one request.
type geneticParams struct {
	populationSize     int
	generations        int
	mutationRate       float64
	crossoverRate      float64
	tournamentSize     int
	eliteCount         int
	convergenceWindow  int
	convergenceEpsilon float64
	rule               placementRule
}

// weights returns the objective weight vector as a map.
func (p *problem) weights() map[model.ObjectiveType]float64 {
	w := make(map[model.ObjectiveType]float64, len(p.objectives))
	for _, o := range p.objectives {
		w[o.Type] += o.Weight
	}
	return w
}

// withWeights returns a shallow copy of the problem scored under other
// weights. Types missing from the request are appended without priority.
func (p *problem) withWeights(w map[model.ObjectiveType]float64) *problem {
	cp := *p
	cp.objectives = make([]model.Objective, 0, len(w))
	seen := make(map[model.ObjectiveType]bool)
	for _, o := range p.objectives {
		o.Weight = w[o.Type]
		seen[o.Type] = true
		cp.objectives = append(cp.objectives, o)
	}
	for _, t := range model.ObjectiveTypes {
		if !seen[t] && w[t] > 0 {
			cp.objectives = append(cp.objectives, model.Objective{Type: t, Weight: w[t]})
		}
	}
	return &cp
}

// newValidator returns a validator that reports JSON field names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var stockNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("barcut/stock"))

// normalize validates a request and canonicalizes it against the engine settings.
func normalize(v *validator.Validate, settings model.EngineSettings, req model.Request) (*problem, error) {
	if len(req.Items) == 0 {
		return nil, newError(CodeNoItems, "request contains no items")
	}
	if len(req.Objectives) == 0 {
		return nil, newError(CodeNoObjectives, "request contains no objectives")
	}
	if err := v.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed '%s'", fe.Namespace(), fe.Tag()))
			}
			return nil, newError(CodeInvalidRequest, "%s", strings.Join(msgs, "; "))
		}
		return nil, &Error{Code: CodeInvalidRequest, Message: "request validation failed", Cause: err}
	}
	if len(req.MaterialStockLengths) == 0 {
		return nil, newError(CodeInvalidRequest, "request contains no stock lengths")
	}

	p := &problem{
		algorithm:   req.Algorithm,
		mode:        req.AlgorithmMode,
		constraints: req.Constraints,
		costModel:   req.CostModel,
		settings:    settings,
	}
	if p.algorithm == "" {
		p.algorithm = settings.Algorithm
	}
	if p.mode == "" {
		p.mode = settings.Mode
	}
	if p.constraints.MaxWastePercentage == 0 {
		p.constraints.MaxWastePercentage = 100
	}

	c := p.constraints
	margins := c.StartSafety + c.EndSafety
	p.stocks = make([]model.StockDefinition, len(req.MaterialStockLengths))
	for i, s := range req.MaterialStockLengths {
		s.ProfileType = strings.TrimSpace(s.ProfileType)
		s.MaterialGrade = strings.TrimSpace(s.MaterialGrade)
		if margins >= s.StockLength {
			return nil, newError(CodeInvalidRequest,
				"startSafety + endSafety (%.1fmm) must be shorter than stock length %.1fmm", margins, s.StockLength)
		}
		if s.ID == "" {
			key := fmt.Sprintf("%d/%s/%.3f", i, s.ProfileType, s.StockLength)
			s.ID = uuid.NewSHA1(stockNamespace, []byte(key)).String()[:8]
		}
		p.stocks[i] = s
	}

	p.items = make([]model.Piece, len(req.Items))
	for i, it := range req.Items {
		it.ProfileType = strings.TrimSpace(it.ProfileType)
		it.WorkOrderID = strings.TrimSpace(it.WorkOrderID)
		p.items[i] = it

		maxUsable := -1.0
		for _, s := range p.stocks {
			if s.ProfileType != "" && s.ProfileType != it.ProfileType {
				continue
			}
			if u := s.StockLength - margins; u > maxUsable {
				maxUsable = u
			}
		}
		if maxUsable < 0 {
			return nil, infeasible(it, "no stock length available for profile %q", it.ProfileType)
		}
		if it.Length > maxUsable+eps {
			return nil, infeasible(it, "piece length %.1fmm exceeds the largest usable stock length %.1fmm",
				it.Length, maxUsable)
		}
	}
	p.units = expandUnits(p.items)
	p.pools = groupByProfile(p.units, p.stocks)

	p.objectives = normalizeObjectives(req.Objectives)

	p.seed = settings.Genetic.Seed
	if req.Performance.DeterministicSeed != nil {
		p.seed = *req.Performance.DeterministicSeed
	}
	p.budget = resolveBudget(settings, req)
	p.genetic = resolveGenetic(settings.Genetic, req.Performance, len(p.units))
	p.bounds = computeBounds(p)
	return p, nil
}

// expandUnits turns each item into quantity unit pieces, in request order.
func expandUnits(items []model.Piece) []model.UnitPiece {
	var units []model.UnitPiece
	for i, it := range items {
		for q := 0; q < it.Quantity; q++ {
			units = append(units, model.UnitPiece{
				Index:       len(units),
				ItemIndex:   i,
				WorkOrderID: it.WorkOrderID,
				ProfileType: it.ProfileType,
				Length:      it.Length,
			})
		}
	}
	return units
}

// normalizeObjectives merges duplicate types, scales weights to sum 1 and
// orders them by priority (1 first, 0 = unset last).
func normalizeObjectives(in []model.Objective) []model.Objective {
	byType := make(map[model.ObjectiveType]int)
	var out []model.Objective
	total := 0.0
	for _, o := range in {
		total += o.Weight
		if idx, ok := byType[o.Type]; ok {
			out[idx].Weight += o.Weight
			if o.Priority > 0 && (out[idx].Priority == 0 || o.Priority < out[idx].Priority) {
				out[idx].Priority = o.Priority
			}
			continue
		}
		byType[o.Type] = len(out)
		out = append(out, o)
	}
	for i := range out {
		out[i].Weight /= total
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Priority, out[j].Priority
		if pi == 0 {
			return false
		}
		if pj == 0 {
			return true
		}
		return pi < pj
	})
	return out
}

// resolveBudget picks the tightest non-zero time limit.
func resolveBudget(settings model.EngineSettings, req model.Request) time.Duration {
	ms := 0
	for _, v := range []int{req.Constraints.MaxProcessingTime, req.Performance.Timeout} {
		if v > 0 && (ms == 0 || v < ms) {
			ms = v
		}
	}
	if ms == 0 {
		ms = settings.MaxProcessingTime
	}
	if ms <= 0 {
		ms = 30000
	}
	return time.Duration(ms) * time.Millisecond
}

// resolveGenetic merges request performance settings over the engine
// defaults. Generation caps scale with problem size when the request does
// not set maxIterations.
func resolveGenetic(def model.GeneticSettings, perf model.PerformanceSettings, units int) geneticParams {
	gp := geneticParams{
		populationSize:     def.PopulationSize,
		generations:        def.Generations,
		mutationRate:       def.MutationRate,
		crossoverRate:      def.CrossoverRate,
		tournamentSize:     def.TournamentSize,
		eliteCount:         def.EliteCount,
		convergenceWindow:  def.ConvergenceWindow,
		convergenceEpsilon: def.ConvergenceEpsilon,
		rule:               ruleBestFit,
	}
	if def.DecodeRule == string(model.AlgorithmFFD) {
		gp.rule = ruleFirstFit
	}

	// Scale generations for larger problems
	if units > 20 {
		gp.generations = max(gp.generations, 150)
	}
	if units > 50 {
		gp.generations = max(gp.generations, 200)
		gp.populationSize = max(gp.populationSize, 80)
	}

	if perf.PopulationSize > 0 {
		gp.populationSize = perf.PopulationSize
	}
	if perf.MaxIterations > 0 {
		gp.generations = perf.MaxIterations
	}
	if perf.MutationRate > 0 {
		gp.mutationRate = perf.MutationRate
	}
	if perf.CrossoverRate > 0 {
		gp.crossoverRate = perf.CrossoverRate
	}

	if gp.populationSize < 2 {
		gp.populationSize = 2
	}
	if gp.generations < 1 {
		gp.generations = 1
	}
	if gp.tournamentSize < 1 {
		gp.tournamentSize = 1
	}
	if gp.eliteCount < 1 {
		gp.eliteCount = 1
	}
	if gp.eliteCount > gp.populationSize {
		gp.eliteCount = gp.populationSize
	}
	if gp.convergenceWindow < 1 {
		gp.convergenceWindow = 1
	}
	return gp
}
