package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculatePurchaseEstimateBasic(t *testing.T) {
	pieces := []Piece{
		{WorkOrderID: "W1", ProfileType: "P40", Length: 1000, Quantity: 3},
	}
	est := CalculatePurchaseEstimate(pieces, 6000, 20, 3.0, 0, 45.00)

	// Each piece with kerf: 1003mm, x3 = 3009
	if math.Abs(est.TotalPieceLength-3009) > 0.001 {
		t.Errorf("expected total length 3009, got %.3f", est.TotalPieceLength)
	}
	if est.UsableLength != 5980 {
		t.Errorf("expected usable length 5980, got %.1f", est.UsableLength)
	}
	if est.BarsNeededMin != 1 {
		t.Errorf("expected 1 bar, got %d", est.BarsNeededMin)
	}
	if est.EstimatedCost != 45 {
		t.Errorf("expected cost 45, got %.2f", est.EstimatedCost)
	}
}

func TestCalculatePurchaseEstimateSafetyExceedsStock(t *testing.T) {
	pieces := []Piece{{ProfileType: "P40", Length: 100, Quantity: 1}}
	est := CalculatePurchaseEstimate(pieces, 500, 600, 0, 10, 0)
	if est.BarsNeededMin != 0 {
		t.Errorf("expected 0 bars when safety consumes the stock, got %d", est.BarsNeededMin)
	}
	if est.TotalPieceLength <= 0 {
		t.Error("expected positive total length even without usable stock")
	}
}

func TestCalculatePurchaseEstimateExactFit(t *testing.T) {
	pieces := []Piece{{ProfileType: "P40", Length: 1000, Quantity: 6}}
	est := CalculatePurchaseEstimate(pieces, 6000, 0, 0, 0, 30.00)
	assert.Equal(t, 1, est.BarsNeededMin)
	assert.Equal(t, 1, est.BarsWithWaste)
	assert.Equal(t, 30.0, est.EstimatedCost)
}

func TestCalculatePurchaseEstimateLastKerfIsFree(t *testing.T) {
	// Six 997mm pieces need five kerfs of 3mm: 5982 + 15 fits in 6000.
	pieces := []Piece{{ProfileType: "P40", Length: 997, Quantity: 6}}
	est := CalculatePurchaseEstimate(pieces, 6000, 0, 3, 0, 0)
	assert.Equal(t, 1, est.BarsNeededMin)
}

func TestCalculatePurchaseEstimateWasteFactor(t *testing.T) {
	pieces := []Piece{{ProfileType: "P40", Length: 1000, Quantity: 10}}

	tests := []struct {
		name      string
		waste     float64
		wantMin   int
		wantWaste int
	}{
		{"no waste factor", 0, 2, 2},
		{"twenty percent", 20, 2, 2},
		{"fifty percent", 50, 2, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			est := CalculatePurchaseEstimate(pieces, 6000, 0, 0, tc.waste, 0)
			assert.Equal(t, tc.wantMin, est.BarsNeededMin)
			assert.Equal(t, tc.wantWaste, est.BarsWithWaste)
			assert.GreaterOrEqual(t, est.BarsWithWaste, est.BarsNeededMin)
		})
	}
}

func TestCalculateCost(t *testing.T) {
	cuts := []Cut{
		{
			StockCost:       100,
			Segments:        []Segment{{Length: 400}, {Length: 300}},
			WasteLength:     300,
			RemainingLength: 250,
			Reclaimable:     true,
		},
		{
			StockCost:   100,
			Segments:    []Segment{{Length: 900}},
			WasteLength: 100,
		},
	}
	cm := CostModel{LaborCost: 2, WasteCost: 0.1, SetupCost: 5, TransportCost: 1, OverheadCost: 10}

	b := CalculateCost(cuts, cm)
	assert.InDelta(t, 200, b.Material, 1e-9, "zero material multiplier counts as 1")
	assert.InDelta(t, 6, b.Labor, 1e-9)
	assert.InDelta(t, 15, b.Waste, 1e-9, "reclaimable tail is not charged")
	assert.InDelta(t, 10, b.Setup, 1e-9)
	assert.InDelta(t, 2, b.Transport, 1e-9)
	assert.InDelta(t, 23.3, b.Overhead, 1e-9)
	assert.InDelta(t, 256.3, b.Total, 1e-9)
}

func TestCalculateCostMaterialMultiplier(t *testing.T) {
	cuts := []Cut{{StockCost: 40}}
	b := CalculateCost(cuts, CostModel{MaterialCost: 1.5})
	if b.Material != 60 {
		t.Errorf("expected material 60, got %.2f", b.Material)
	}
	if b.Total != 60 {
		t.Errorf("expected total 60, got %.2f", b.Total)
	}
}
