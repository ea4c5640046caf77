package model

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Offcut represents a reusable remnant left at the end of a bar after cutting.
type Offcut struct {
	ID            string  `json:"id"`
	CutIndex      int     `json:"cutIndex"` // Index of the source cut in the solution
	ProfileType   string  `json:"profileType"`
	MaterialGrade string  `json:"materialGrade,omitempty"`
	Offset        float64 `json:"offset"` // Position on the bar (mm from start)
	Length        float64 `json:"length"`
	Value         float64 `json:"value"` // Share of the bar cost proportional to length (0 if not priced)
}

// ToStockDefinition converts an offcut into a single-unit stock definition so it
// can be fed back into a later request.
func (o Offcut) ToStockDefinition() StockDefinition {
	return StockDefinition{
		ID:            o.ID,
		ProfileType:   o.ProfileType,
		StockLength:   o.Length,
		Availability:  1,
		CostPerStock:  o.Value,
		MaterialGrade: o.MaterialGrade,
	}
}

// offcutNamespace keeps offcut IDs stable for identical plans.
var offcutNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("barcut/offcut"))

// DetectOffcut returns the reclaimable tail of a cut, if it is at least
// minScrap long. A minScrap of 0 disables reclaiming.
func DetectOffcut(c Cut, cutIndex int, minScrap float64) (Offcut, bool) {
	if minScrap <= 0 || c.RemainingLength < minScrap {
		return Offcut{}, false
	}

	offset := 0.0
	if n := len(c.Segments); n > 0 {
		offset = c.Segments[n-1].End()
	}

	o := Offcut{
		CutIndex:      cutIndex,
		ProfileType:   c.ProfileType,
		MaterialGrade: c.MaterialGrade,
		Offset:        offset,
		Length:        c.RemainingLength,
	}
	if c.StockLength > 0 && c.StockCost > 0 {
		o.Value = c.RemainingLength / c.StockLength * c.StockCost
	}
	key := fmt.Sprintf("%d/%s/%s/%.3f", cutIndex, c.ID, c.ProfileType, o.Length)
	o.ID = uuid.NewSHA1(offcutNamespace, []byte(key)).String()[:8]
	return o, true
}

// DetectAllOffcuts finds reclaimable offcuts across all cuts, longest first.
func DetectAllOffcuts(cuts []Cut, minScrap float64) []Offcut {
	var all []Offcut
	for i, c := range cuts {
		if o, ok := DetectOffcut(c, i, minScrap); ok {
			all = append(all, o)
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Length > all[j].Length
	})
	return all
}

// TotalOffcutLength returns the total length of all offcuts in mm.
func TotalOffcutLength(offcuts []Offcut) float64 {
	var total float64
	for _, o := range offcuts {
		total += o.Length
	}
	return total
}
