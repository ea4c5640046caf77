package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/piwi3910/BarCut/internal/model"
)

// verifyPlan checks that every requested piece was cut exactly as often as
// requested and that no cut exceeds its bar.
func verifyPlan(p *problem, cuts []model.Cut) error {
	c := p.constraints
	counts := make([]int, len(p.items))
	for i, cut := range cuts {
		n := len(cut.Segments)
		for _, seg := range cut.Segments {
			if seg.ItemIndex < 0 || seg.ItemIndex >= len(p.items) {
				return internalError(nil, "cut %d references unknown item %d", i, seg.ItemIndex)
			}
			if seg.ProfileType != cut.ProfileType {
				return internalError(nil, "cut %d mixes profile %q into a %q bar", i, seg.ProfileType, cut.ProfileType)
			}
			counts[seg.ItemIndex]++
		}
		if n == 0 {
			continue
		}
		load := cut.UsedLength + c.KerfWidth*float64(n-1) + c.StartSafety + c.EndSafety
		if load > cut.StockLength+eps {
			return internalError(nil, "cut %d needs %.1fmm on a %.1fmm bar", i, load, cut.StockLength)
		}
	}
	for i, it := range p.items {
		if counts[i] != it.Quantity {
			return internalError(nil, "item %d (%s) cut %d times, requested %d", i, it, counts[i], it.Quantity)
		}
	}
	return nil
}

// orderAllocations attributes placed segments back to the request items.
func orderAllocations(p *problem, cuts []model.Cut) []model.OrderAllocation {
	allocs := make([]model.OrderAllocation, len(p.items))
	for i, it := range p.items {
		allocs[i] = model.OrderAllocation{
			WorkOrderID: it.WorkOrderID,
			ProfileType: it.ProfileType,
			Length:      it.Length,
			ItemIndex:   i,
			Requested:   it.Quantity,
			CutIndexes:  []int{},
		}
	}
	for ci, cut := range cuts {
		for _, seg := range cut.Segments {
			a := &allocs[seg.ItemIndex]
			a.Allocated++
			if n := len(a.CutIndexes); n == 0 || a.CutIndexes[n-1] != ci {
				a.CutIndexes = append(a.CutIndexes, ci)
			}
		}
	}
	return allocs
}

// wasteDistribution counts cuts per waste bucket.
func wasteDistribution(cuts []model.Cut) model.WasteDistribution {
	var d model.WasteDistribution
	for _, cut := range cuts {
		d.Add(cut.WasteCategory)
		if cut.Reclaimable {
			d.ReclaimableTotal += cut.RemainingLength
		}
	}
	return d
}

var priorityRank = map[model.RecommendationPriority]int{
	model.PriorityHigh:   0,
	model.PriorityMedium: 1,
	model.PriorityLow:    2,
}

// recommend derives improvement hints from a solution.
func recommend(p *problem, sol model.Solution, offcuts []model.Offcut) []model.Recommendation {
	s := p.settings
	m := sol.Metrics
	var recs []model.Recommendation

	for _, v := range sol.Violations {
		recs = append(recs, model.Recommendation{
			Type:     "constraint-violation",
			Priority: model.PriorityHigh,
			Message:  v.Message,
			Impact:   fmt.Sprintf("%s limit %.2f, got %.2f", v.Constraint, v.Limit, v.Value),
		})
	}

	if m.WastePercentage > s.HighWastePercent {
		recs = append(recs, model.Recommendation{
			Type:     "high-waste",
			Priority: model.PriorityHigh,
			Message: fmt.Sprintf("Overall waste is %.1f%%. Consider other stock lengths or the pooling algorithm.",
				m.WastePercentage),
			Impact: fmt.Sprintf("%.0fmm of material is not used by pieces", m.TotalWaste),
		})
	}

	recs = append(recs, stockLengthRecommendations(p, sol.Cuts)...)

	if sol.Metadata.TimeBounded {
		recs = append(recs, model.Recommendation{
			Type:     "time-bounded",
			Priority: model.PriorityMedium,
			Message:  "The search stopped at its time or node budget; the plan may not be optimal.",
			Impact:   "Increase the timeout to let the search finish",
		})
	}
	if sol.Metadata.FallbackUsed {
		recs = append(recs, model.Recommendation{
			Type:     "pattern-fallback",
			Priority: model.PriorityLow,
			Message:  fmt.Sprintf("Pools larger than %d pieces were packed with BFD instead of pattern search.", s.Pattern.MaxPieces),
		})
	}

	if len(offcuts) > 0 {
		recs = append(recs, model.Recommendation{
			Type:     "reclaimable-offcuts",
			Priority: model.PriorityLow,
			Message: fmt.Sprintf("%d offcuts totalling %.0fmm can be returned to stock.",
				len(offcuts), model.TotalOffcutLength(offcuts)),
			Impact: fmt.Sprintf("%.1f%% of stock utilized including offcuts", m.StockUtilization*100),
		})
	}

	if m.Efficiency*100 >= s.ExcellentEffPercent {
		recs = append(recs, model.Recommendation{
			Type:     "excellent-efficiency",
			Priority: model.PriorityLow,
			Message:  fmt.Sprintf("Material efficiency is %.1f%%.", m.Efficiency*100),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return priorityRank[recs[i].Priority] < priorityRank[recs[j].Priority]
	})
	return recs
}

// stockLengthRecommendations flags stock lengths whose bars waste more than
// the configured share and suggests the closest other length that still
// holds the average load.
func stockLengthRecommendations(p *problem, cuts []model.Cut) []model.Recommendation {
	c := p.constraints
	type group struct {
		profile string
		length  float64
		total   float64
		used    float64
		load    float64
		count   int
	}
	var groups []*group
	index := make(map[string]*group)
	for _, cut := range cuts {
		key := fmt.Sprintf("%s/%.3f", cut.ProfileType, cut.StockLength)
		g, ok := index[key]
		if !ok {
			g = &group{profile: cut.ProfileType, length: cut.StockLength}
			index[key] = g
			groups = append(groups, g)
		}
		g.total += cut.StockLength
		g.used += cut.UsedLength
		g.load += cut.StockLength - cut.RemainingLength
		g.count++
	}

	var recs []model.Recommendation
	for _, g := range groups {
		waste := (g.total - g.used) / g.total * 100
		if waste <= p.settings.StockWastePercent {
			continue
		}
		avgLoad := g.load / float64(g.count)

		alt := 0.0
		for _, s := range p.stocks {
			if s.ProfileType != "" && s.ProfileType != g.profile {
				continue
			}
			if math.Abs(s.StockLength-g.length) < eps || s.StockLength < avgLoad+c.EndSafety {
				continue
			}
			if alt == 0 || math.Abs(s.StockLength-avgLoad) < math.Abs(alt-avgLoad) {
				alt = s.StockLength
			}
		}

		msg := fmt.Sprintf("%s bars of %.0fmm waste %.1f%% across %d cuts.", g.profile, g.length, waste, g.count)
		if alt > 0 {
			msg += fmt.Sprintf(" Consider %.0fmm stock instead.", alt)
		}
		recs = append(recs, model.Recommendation{
			Type:     "stock-length-waste",
			Priority: model.PriorityMedium,
			Message:  msg,
			Impact:   fmt.Sprintf("average load %.0fmm per bar", avgLoad),
		})
	}
	return recs
}

// assemble turns a solution into the response contract.
func assemble(p *problem, sol model.Solution, elapsed time.Duration) (model.Response, error) {
	if err := verifyPlan(p, sol.Cuts); err != nil {
		return model.Response{}, err
	}
	offcuts := model.DetectAllOffcuts(sol.Cuts, p.constraints.MinScrapLength)
	if offcuts == nil {
		offcuts = []model.Offcut{}
	}
	m := sol.Metrics
	return model.Response{
		Success:           true,
		Cuts:              sol.Cuts,
		Efficiency:        m.Efficiency,
		WastePercentage:   m.WastePercentage,
		TotalCost:         m.TotalCost,
		TotalWaste:        m.TotalWaste,
		ExecutionTime:     elapsed.Milliseconds(),
		Algorithm:         p.algorithm,
		QualityScore:      m.QualityScore,
		StockUtilization:  m.StockUtilization,
		CuttingAccuracy:   m.CuttingAccuracy,
		AlgorithmMetadata: sol.Metadata,
		Recommendations:   recommend(p, sol, offcuts),
		WasteDistribution: wasteDistribution(sol.Cuts),
		CostBreakdown:     m.CostBreakdown,
		OrderAllocations:  orderAllocations(p, sol.Cuts),
		Offcuts:           offcuts,
		Violations:        sol.Violations,
	}, nil
}
