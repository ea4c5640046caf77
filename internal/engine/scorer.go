package engine

import (
	"fmt"
	"math"

	"github.com/piwi3910/BarCut/internal/model"
)

// objectiveBounds are lower bounds on cost and time for a problem, used to
// map those objectives onto [0,1].
type objectiveBounds struct {
	cost float64
	time float64
}

// computeBounds estimates the cheapest and fastest conceivable plan: every
// pool priced at its cheapest rate per usable mm, and bar counts from the
// purchase estimate on the longest stock.
func computeBounds(p *problem) objectiveBounds {
	c := p.constraints
	cm := p.costModel
	margins := c.StartSafety + c.EndSafety
	multiplier := cm.MaterialCost
	if multiplier == 0 {
		multiplier = 1
	}

	var material float64
	bars := 0
	for _, pl := range p.pools {
		minRate := -1.0
		longest := 0.0
		for _, idx := range pl.stocks {
			s := p.stocks[idx]
			usable := s.StockLength - margins
			if rate := s.UnitCost() / usable; minRate < 0 || rate < minRate {
				minRate = rate
			}
			longest = math.Max(longest, s.StockLength)
		}
		material += pl.totalLength() * math.Max(minRate, 0) * multiplier

		pieces := make([]model.Piece, 0, len(pl.units))
		for _, u := range pl.units {
			pieces = append(pieces, model.Piece{ProfileType: u.ProfileType, Length: u.Length, Quantity: 1})
		}
		est := model.CalculatePurchaseEstimate(pieces, longest, margins, c.KerfWidth, 0, 0)
		bars += max(est.BarsNeededMin, 1)
	}

	units := float64(len(p.units))
	subtotal := material + units*cm.LaborCost + float64(bars)*(cm.SetupCost+cm.TransportCost)
	return objectiveBounds{
		cost: subtotal * (1 + cm.OverheadCost/100),
		time: float64(bars)*p.settings.SetupSeconds + units*p.settings.CutSeconds,
	}
}

// classifyWaste buckets the tail remnant of a cut.
func classifyWaste(remaining, minScrap float64, t model.WasteThresholds) model.WasteCategory {
	switch {
	case minScrap > 0 && remaining >= minScrap-eps:
		return model.WasteReclaimable
	case remaining < t.Minimal:
		return model.WasteMinimal
	case remaining < t.Small:
		return model.WasteSmall
	case remaining < t.Medium:
		return model.WasteMedium
	case remaining < t.Large:
		return model.WasteLarge
	default:
		return model.WasteExcessive
	}
}

// measure computes solution metrics. It marks reclaimable tails and waste
// categories on the cuts in place.
func measure(p *problem, cuts []model.Cut) model.Metrics {
	c := p.constraints
	s := p.settings
	var m model.Metrics

	accurate := 0
	for i := range cuts {
		cut := &cuts[i]
		cut.WasteCategory = classifyWaste(cut.RemainingLength, c.MinScrapLength, s.WasteThresholds)
		cut.Reclaimable = cut.WasteCategory == model.WasteReclaimable

		m.TotalStockLength += cut.StockLength
		m.UsedLength += cut.UsedLength
		m.CutCount += len(cut.Segments)
		if cut.Reclaimable {
			m.ReclaimableWaste += cut.RemainingLength
		}
		if cut.Reclaimable || cut.RemainingLength <= s.CuttingTolerance+eps {
			accurate++
		}
	}
	m.StockCount = len(cuts)
	if m.TotalStockLength > 0 {
		m.TotalWaste = m.TotalStockLength - m.UsedLength
		m.Efficiency = m.UsedLength / m.TotalStockLength
		m.WastePercentage = clamp(m.TotalWaste/m.TotalStockLength*100, 0, 100)
		m.StockUtilization = clamp((m.UsedLength+m.ReclaimableWaste)/m.TotalStockLength, 0, 1)
	}
	if len(cuts) > 0 {
		m.CuttingAccuracy = float64(accurate) / float64(len(cuts))
	}
	m.QualityScore = 100 * (0.5*m.Efficiency + 0.3*m.CuttingAccuracy + 0.2*m.StockUtilization)
	m.EstimatedTime = float64(m.StockCount)*s.SetupSeconds + float64(m.CutCount)*s.CutSeconds
	m.CostBreakdown = model.CalculateCost(cuts, p.costModel)
	m.TotalCost = m.CostBreakdown.Total
	return m
}

// checkConstraints lists every hard constraint the cuts and metrics break.
func checkConstraints(p *problem, cuts []model.Cut, m model.Metrics) []model.ConstraintViolation {
	c := p.constraints
	var vs []model.ConstraintViolation

	for i, cut := range cuts {
		n := len(cut.Segments)
		if c.MaxCutsPerStock > 0 && n > c.MaxCutsPerStock {
			vs = append(vs, model.ConstraintViolation{
				Constraint: "maxCutsPerStock",
				Message:    fmt.Sprintf("cut %s has %d segments, limit is %d", cut.ID, n, c.MaxCutsPerStock),
				Value:      float64(n),
				Limit:      float64(c.MaxCutsPerStock),
				CutIndex:   i,
			})
		}
		if n == 0 {
			continue
		}
		load := cut.UsedLength + c.KerfWidth*float64(n-1) + c.StartSafety + c.EndSafety
		if load > cut.StockLength+eps {
			vs = append(vs, model.ConstraintViolation{
				Constraint: "capacity",
				Message:    fmt.Sprintf("cut %s needs %.1fmm on a %.1fmm bar", cut.ID, load, cut.StockLength),
				Value:      load,
				Limit:      cut.StockLength,
				CutIndex:   i,
			})
		}
	}

	if m.WastePercentage > c.MaxWastePercentage+eps {
		vs = append(vs, model.ConstraintViolation{
			Constraint: "maxWastePercentage",
			Message:    fmt.Sprintf("waste %.2f%% exceeds the %.2f%% limit", m.WastePercentage, c.MaxWastePercentage),
			Value:      m.WastePercentage,
			Limit:      c.MaxWastePercentage,
			CutIndex:   -1,
		})
	}
	if c.MinQualityScore != nil && m.QualityScore < *c.MinQualityScore-eps {
		vs = append(vs, model.ConstraintViolation{
			Constraint: "minQualityScore",
			Message:    fmt.Sprintf("quality %.1f is below the required %.1f", m.QualityScore, *c.MinQualityScore),
			Value:      m.QualityScore,
			Limit:      *c.MinQualityScore,
			CutIndex:   -1,
		})
	}
	return vs
}

// objectiveScores maps every objective onto [0,1], higher is better.
func objectiveScores(p *problem, m model.Metrics) map[model.ObjectiveType]float64 {
	return map[model.ObjectiveType]float64{
		model.ObjectiveMinimizeWaste:      clamp(1-m.WastePercentage/100, 0, 1),
		model.ObjectiveMaximizeEfficiency: clamp(m.Efficiency, 0, 1),
		model.ObjectiveMinimizeCost:       ratioScore(p.bounds.cost, m.TotalCost),
		model.ObjectiveMinimizeTime:       ratioScore(p.bounds.time, m.EstimatedTime),
		model.ObjectiveMaximizeQuality:    clamp(m.QualityScore/100, 0, 1),
	}
}

// objectiveValues reports the raw objective values of a solution.
func objectiveValues(m model.Metrics) map[model.ObjectiveType]float64 {
	return map[model.ObjectiveType]float64{
		model.ObjectiveMinimizeWaste:      m.WastePercentage,
		model.ObjectiveMaximizeEfficiency: m.Efficiency,
		model.ObjectiveMinimizeCost:       m.TotalCost,
		model.ObjectiveMinimizeTime:       m.EstimatedTime,
		model.ObjectiveMaximizeQuality:    m.QualityScore,
	}
}

func ratioScore(bound, value float64) float64 {
	if value <= 0 {
		return 1
	}
	return clamp(bound/value, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// violationPenalty is at least 1, so an infeasible solution never outranks a
// feasible one. Larger overshoots cost more.
func violationPenalty(vs []model.ConstraintViolation) float64 {
	if len(vs) == 0 {
		return 0
	}
	penalty := 1.0
	for _, v := range vs {
		penalty += math.Abs(v.Value-v.Limit) / math.Max(math.Abs(v.Limit), 1)
	}
	return penalty
}

// fitness combines the weighted objective score with the violation penalty.
func fitness(p *problem, m model.Metrics, vs []model.ConstraintViolation) float64 {
	scores := objectiveScores(p, m)
	var total float64
	for _, o := range p.objectives {
		total += o.Weight * scores[o.Type]
	}
	return total - violationPenalty(vs)
}

// evaluateCuts builds a scored solution from cuts.
func evaluateCuts(p *problem, cuts []model.Cut, meta model.AlgorithmMetadata) model.Solution {
	m := measure(p, cuts)
	vs := checkConstraints(p, cuts, m)
	sol := model.Solution{
		Cuts:       cuts,
		Metrics:    m,
		Violations: vs,
		Metadata:   meta,
		Fitness:    fitness(p, m, vs),
	}
	sol.Metadata.BestFitness = sol.Fitness
	return sol
}

// evaluateBins converts bins to cuts and scores them.
func evaluateBins(p *problem, bins []*bin, meta model.AlgorithmMetadata) model.Solution {
	return evaluateCuts(p, binsToCuts(p, bins), meta)
}
