package model

import "math"

// PurchaseEstimate holds the results of a bar purchasing calculation.
type PurchaseEstimate struct {
	TotalPieceLength float64 `json:"total_piece_length"` // mm, including one kerf per piece
	StockLength      float64 `json:"stock_length"`       // nominal bar length
	UsableLength     float64 `json:"usable_length"`      // bar length minus safety margins
	BarsNeededExact  float64 `json:"bars_needed_exact"`  // exact fractional number of bars
	BarsNeededMin    int     `json:"bars_needed_min"`    // ceiling of exact
	BarsWithWaste    int     `json:"bars_with_waste"`    // recommended bars including waste factor
	WastePercent     float64 `json:"waste_percent"`      // waste factor applied (e.g., 10 for 10%)
	EstimatedCost    float64 `json:"estimated_cost"`
	PricePerBar      float64 `json:"price_per_bar"`
	KerfWidth        float64 `json:"kerf_width"`
}

// CalculatePurchaseEstimate computes how many bars of one length to buy for a
// cut list. Each piece is charged one kerf; the safety margins are removed
// from every bar. The result is a lower bound, not a packing.
func CalculatePurchaseEstimate(pieces []Piece, stockLength, safety, kerfWidth, wastePercent, pricePerBar float64) PurchaseEstimate {
	var total float64
	for _, p := range pieces {
		total += (p.Length + kerfWidth) * float64(p.Quantity)
	}

	usable := stockLength - safety
	if usable <= 0 {
		return PurchaseEstimate{
			TotalPieceLength: total,
			StockLength:      stockLength,
			WastePercent:     wastePercent,
			KerfWidth:        kerfWidth,
		}
	}

	// The last piece on a bar needs no trailing kerf, so allow one kerf back per bar.
	exact := total / (usable + kerfWidth)
	minBars := int(math.Ceil(exact - 1e-9))

	wasteFactor := 1.0 + (wastePercent / 100.0)
	withWaste := int(math.Ceil(exact*wasteFactor - 1e-9))
	if withWaste < minBars {
		withWaste = minBars
	}

	return PurchaseEstimate{
		TotalPieceLength: total,
		StockLength:      stockLength,
		UsableLength:     usable,
		BarsNeededExact:  exact,
		BarsNeededMin:    minBars,
		BarsWithWaste:    withWaste,
		WastePercent:     wastePercent,
		EstimatedCost:    float64(withWaste) * pricePerBar,
		PricePerBar:      pricePerBar,
		KerfWidth:        kerfWidth,
	}
}

// CostBreakdown itemizes the cost of a cutting plan.
type CostBreakdown struct {
	Material  float64 `json:"material"`
	Labor     float64 `json:"labor"`
	Waste     float64 `json:"waste"`
	Setup     float64 `json:"setup"`
	Transport float64 `json:"transport"`
	Overhead  float64 `json:"overhead"`
	Total     float64 `json:"total"`
}

// CalculateCost prices a list of cuts under a cost model.
// Reclaimable remnants are not charged as waste.
func CalculateCost(cuts []Cut, cm CostModel) CostBreakdown {
	multiplier := cm.MaterialCost
	if multiplier == 0 {
		multiplier = 1
	}

	var b CostBreakdown
	for _, c := range cuts {
		b.Material += c.StockCost * multiplier
		b.Labor += float64(len(c.Segments)) * cm.LaborCost
		waste := c.WasteLength
		if c.Reclaimable {
			waste -= c.RemainingLength
		}
		if waste > 0 {
			b.Waste += waste * cm.WasteCost
		}
		b.Setup += cm.SetupCost
		b.Transport += cm.TransportCost
	}
	subtotal := b.Material + b.Labor + b.Waste + b.Setup + b.Transport
	b.Overhead = subtotal * cm.OverheadCost / 100.0
	b.Total = subtotal + b.Overhead
	return b
}
