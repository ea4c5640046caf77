package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tailCut(id string, remaining float64) Cut {
	return Cut{
		ID:              id,
		ProfileType:     "P40",
		StockLength:     1000,
		StockCost:       50,
		Segments:        []Segment{{Offset: 10, Length: 700, ProfileType: "P40"}},
		UsedLength:      700,
		RemainingLength: remaining,
	}
}

func TestDetectOffcutDisabled(t *testing.T) {
	if _, ok := DetectOffcut(tailCut("C001", 280), 0, 0); ok {
		t.Error("expected no offcut when min scrap length is 0")
	}
}

func TestDetectOffcutBelowMinimum(t *testing.T) {
	if _, ok := DetectOffcut(tailCut("C001", 150), 0, 200); ok {
		t.Error("expected no offcut for a tail shorter than the minimum")
	}
}

func TestDetectOffcut(t *testing.T) {
	o, ok := DetectOffcut(tailCut("C001", 280), 2, 200)
	require.True(t, ok)

	assert.Equal(t, 2, o.CutIndex)
	assert.Equal(t, "P40", o.ProfileType)
	assert.Equal(t, 710.0, o.Offset)
	assert.Equal(t, 280.0, o.Length)
	assert.InDelta(t, 14.0, o.Value, 1e-9)
	assert.Len(t, o.ID, 8)

	again, _ := DetectOffcut(tailCut("C001", 280), 2, 200)
	assert.Equal(t, o.ID, again.ID, "offcut IDs are stable for identical cuts")

	other, _ := DetectOffcut(tailCut("C002", 280), 3, 200)
	assert.NotEqual(t, o.ID, other.ID)
}

func TestDetectOffcutUnpriced(t *testing.T) {
	c := tailCut("C001", 300)
	c.StockCost = 0
	o, ok := DetectOffcut(c, 0, 100)
	require.True(t, ok)
	if o.Value != 0 {
		t.Errorf("expected zero value for unpriced stock, got %.2f", o.Value)
	}
}

func TestDetectAllOffcutsLongestFirst(t *testing.T) {
	cuts := []Cut{tailCut("C001", 250), tailCut("C002", 50), tailCut("C003", 400)}

	offcuts := DetectAllOffcuts(cuts, 200)
	require.Len(t, offcuts, 2)
	assert.Equal(t, 400.0, offcuts[0].Length)
	assert.Equal(t, 2, offcuts[0].CutIndex)
	assert.Equal(t, 250.0, offcuts[1].Length)
	assert.Equal(t, 650.0, TotalOffcutLength(offcuts))
}

func TestOffcutToStockDefinition(t *testing.T) {
	o := Offcut{ID: "abcd1234", ProfileType: "P60", MaterialGrade: "S235", Length: 900, Value: 7.5}
	s := o.ToStockDefinition()

	assert.Equal(t, StockDefinition{
		ID:            "abcd1234",
		ProfileType:   "P60",
		StockLength:   900,
		Availability:  1,
		CostPerStock:  7.5,
		MaterialGrade: "S235",
	}, s)
	assert.False(t, s.Unlimited())
}
