package engine

import (
	"fmt"

	"github.com/piwi3910/BarCut/internal/model"
)

// ComparisonScenario names a variant of a request to compare.
type ComparisonScenario struct {
	Name    string
	Request model.Request
}

// ComparisonResult holds the response and headline statistics for a
// single scenario.
type ComparisonResult struct {
	Scenario     ComparisonScenario
	Response     model.Response
	Err          error
	BarsUsed     int
	TotalCuts    int
	WastePercent float64
	TotalCost    float64
	Quality      float64
	ElapsedMs    int64
}

// CompareScenarios optimizes each scenario in order and collects the
// results. A failing scenario is reported in its result and does not stop
// the others.
func (o *Optimizer) CompareScenarios(scenarios []ComparisonScenario) []ComparisonResult {
	results := make([]ComparisonResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		resp, err := o.Optimize(scenario.Request)

		totalCuts := 0
		for _, cut := range resp.Cuts {
			totalCuts += len(cut.Segments)
		}

		results = append(results, ComparisonResult{
			Scenario:     scenario,
			Response:     resp,
			Err:          err,
			BarsUsed:     len(resp.Cuts),
			TotalCuts:    totalCuts,
			WastePercent: resp.WastePercentage,
			TotalCost:    resp.TotalCost,
			Quality:      resp.QualityScore,
			ElapsedMs:    resp.ExecutionTime,
		})
	}

	return results
}

// BuildAlgorithmScenarios runs the request once per algorithm.
func BuildAlgorithmScenarios(base model.Request) []ComparisonScenario {
	scenarios := make([]ComparisonScenario, 0, len(model.Algorithms)+2)
	for _, a := range model.Algorithms {
		req := base
		req.Algorithm = a
		scenarios = append(scenarios, ComparisonScenario{
			Name:    string(a),
			Request: req,
		})
	}

	// Scenario: Thinner blade
	if base.Constraints.KerfWidth > 1.0 {
		req := base
		req.Constraints.KerfWidth = base.Constraints.KerfWidth * 0.5
		scenarios = append(scenarios, ComparisonScenario{
			Name:    fmt.Sprintf("Kerf %.1fmm (half)", req.Constraints.KerfWidth),
			Request: req,
		})
	}

	// Scenario: No safety margins
	if base.Constraints.StartSafety > 0 || base.Constraints.EndSafety > 0 {
		req := base
		req.Constraints.StartSafety = 0
		req.Constraints.EndSafety = 0
		scenarios = append(scenarios, ComparisonScenario{
			Name:    "No Safety Margins",
			Request: req,
		})
	}

	return scenarios
}

// BestScenario returns the index of the best successful result, ranked by
// waste, then cost, then bars used. Returns -1 if every scenario failed.
func BestScenario(results []ComparisonResult) int {
	best := -1
	for i, r := range results {
		if r.Err != nil || !r.Response.Success {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		b := results[best]
		switch {
		case r.WastePercent < b.WastePercent-eps:
			best = i
		case r.WastePercent > b.WastePercent+eps:
		case r.TotalCost < b.TotalCost-eps:
			best = i
		case r.TotalCost > b.TotalCost+eps:
		case r.BarsUsed < b.BarsUsed:
			best = i
		}
	}
	return best
}

// CompareAlgorithms runs the request once per algorithm plus the kerf and
// safety variants.
func (o *Optimizer) CompareAlgorithms(req model.Request) []ComparisonResult {
	return o.CompareScenarios(BuildAlgorithmScenarios(req))
}
