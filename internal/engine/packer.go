package engine

import (
	"fmt"
	"sort"

	"github.com/piwi3910/BarCut/internal/model"
)

// placementRule decides which open bin receives the next piece.
type placementRule int

const (
	ruleFirstFit placementRule = iota // first open bin that accepts the piece
	ruleBestFit                       // open bin with the tightest remaining fit
)

func (r placementRule) String() string {
	if r == ruleFirstFit {
		return string(model.AlgorithmFFD)
	}
	return string(model.AlgorithmBFD)
}

// bin is one stock bar opened during packing.
type bin struct {
	stockIdx int
	stock    model.StockDefinition
	pieces   []model.UnitPiece
	used     float64 // sum of piece lengths
}

// free returns the length still available for the next piece, including the
// kerf that piece would need.
func (b *bin) free(kerf, margins float64) float64 {
	usable := b.stock.StockLength - margins
	if len(b.pieces) == 0 {
		return usable
	}
	return usable - b.used - kerf*float64(len(b.pieces))
}

// tail returns the length left between the last piece and the end margin.
func (b *bin) tail(kerf, margins float64) float64 {
	if len(b.pieces) == 0 {
		return b.stock.StockLength - margins
	}
	return b.free(kerf, margins) + kerf
}

func (b *bin) add(u model.UnitPiece) {
	b.pieces = append(b.pieces, u)
	b.used += u.Length
}

// packer places unit pieces of one pool into bars.
type packer struct {
	p       *problem
	rule    placementRule
	kerf    float64
	margins float64
	maxCuts int
	wCost   float64 // weight of the cost objective in stock selection
}

func newPacker(p *problem, rule placementRule) *packer {
	c := p.constraints
	return &packer{
		p:       p,
		rule:    rule,
		kerf:    c.KerfWidth,
		margins: c.StartSafety + c.EndSafety,
		maxCuts: c.MaxCutsPerStock,
		wCost:   p.weights()[model.ObjectiveMinimizeCost],
	}
}

// fits reports whether a piece fits into a bin and the length left over after
// placing it.
func (pk *packer) fits(b *bin, length float64) (float64, bool) {
	if pk.maxCuts > 0 && len(b.pieces) >= pk.maxCuts {
		return 0, false
	}
	free := b.free(pk.kerf, pk.margins)
	if length > free+eps {
		return 0, false
	}
	return free - length, true
}

// findBin returns the bin the rule selects for a piece, or nil.
func (pk *packer) findBin(bins []*bin, length float64) *bin {
	var best *bin
	bestResidual := 0.0
	for _, b := range bins {
		residual, ok := pk.fits(b, length)
		if !ok {
			continue
		}
		if pk.rule == ruleFirstFit {
			return b
		}
		if best == nil || residual < bestResidual-eps {
			best = b
			bestResidual = residual
		}
	}
	return best
}

// packPool places the pieces in the given order, opening new bars from the
// shared inventory as needed.
func (pk *packer) packPool(pl profilePool, order []model.UnitPiece, inv *inventory) ([]*bin, error) {
	var bins []*bin
	for i, u := range order {
		target := pk.findBin(bins, u.Length)
		if target == nil {
			idx := pk.selectStock(pl, order[i:], inv)
			if idx < 0 {
				return nil, infeasible(pk.p.items[u.ItemIndex],
					"stock for profile %q is exhausted", u.ProfileType)
			}
			inv.take(idx)
			target = &bin{stockIdx: idx, stock: pk.p.stocks[idx]}
			bins = append(bins, target)
		}
		target.add(u)
	}
	return bins, nil
}

// selectStock picks the stock definition for a new bar. When several lengths
// can take the next piece, each distinct one is trial-packed with the
// remaining pieces and scored on efficiency and cost per placed mm.
// Returns -1 if nothing in the inventory fits.
func (pk *packer) selectStock(pl profilePool, remaining []model.UnitPiece, inv *inventory) int {
	if len(remaining) == 0 {
		return -1
	}
	first := remaining[0].Length

	var candidates []int
	for _, idx := range pl.stocks {
		if !inv.available(idx) {
			continue
		}
		if first > pk.p.stocks[idx].StockLength-pk.margins+eps {
			continue
		}
		candidates = append(candidates, idx)
	}
	if len(candidates) == 0 {
		return -1
	}
	if len(candidates) == 1 {
		return candidates[0]
	}

	// Bars with the same length, price and grade pack identically. Only
	// available definitions are candidates, so an exhausted one never hides
	// an equal one that still has bars.
	type stockKey struct {
		length, cost float64
		grade        string
	}
	seen := make(map[stockKey]bool)
	var unique []int
	for _, idx := range candidates {
		s := pk.p.stocks[idx]
		key := stockKey{s.StockLength, s.UnitCost(), s.MaterialGrade}
		if !seen[key] {
			seen[key] = true
			unique = append(unique, idx)
		}
	}
	if len(unique) == 1 {
		return unique[0]
	}

	type trial struct {
		idx  int
		eff  float64
		rate float64 // cost per placed mm
	}
	trials := make([]trial, 0, len(unique))
	minRate := -1.0
	for _, idx := range unique {
		s := pk.p.stocks[idx]
		placed := pk.trialPack(s, remaining)
		t := trial{idx: idx, eff: placed / s.StockLength}
		if placed > 0 {
			t.rate = s.UnitCost() / placed
		}
		if minRate < 0 || t.rate < minRate {
			minRate = t.rate
		}
		trials = append(trials, t)
	}

	bestIdx := -1
	bestScore := -1.0
	for _, t := range trials {
		costScore := 1.0
		if t.rate > 0 {
			costScore = minRate / t.rate
		}
		score := (1-pk.wCost)*t.eff + pk.wCost*costScore
		if score > bestScore+eps {
			bestScore = score
			bestIdx = t.idx
		}
	}
	return bestIdx
}

// trialPack fills a single bar of the given stock with pieces in order and
// returns the placed length.
func (pk *packer) trialPack(s model.StockDefinition, pieces []model.UnitPiece) float64 {
	b := &bin{stock: s}
	for _, u := range pieces {
		if _, ok := pk.fits(b, u.Length); ok {
			b.add(u)
		}
	}
	return b.used
}

// sortDescending returns a copy of units ordered by length, longest first.
// Equal lengths keep insertion order.
func sortDescending(units []model.UnitPiece) []model.UnitPiece {
	sorted := make([]model.UnitPiece, len(units))
	copy(sorted, units)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Length > sorted[j].Length
	})
	return sorted
}

// packHeuristic runs FFD or BFD over every pool against one shared inventory.
func packHeuristic(p *problem, rule placementRule) ([]*bin, error) {
	pk := newPacker(p, rule)
	inv := newInventory(p.stocks)
	var all []*bin
	for _, pl := range p.pools {
		bins, err := pk.packPool(pl, sortDescending(pl.units), inv)
		if err != nil {
			return nil, err
		}
		all = append(all, bins...)
	}
	return all, nil
}

// binsToCuts converts packed bars into cuts with segment offsets.
func binsToCuts(p *problem, bins []*bin) []model.Cut {
	c := p.constraints
	cuts := make([]model.Cut, 0, len(bins))
	for i, b := range bins {
		cut := model.Cut{
			ID:            fmt.Sprintf("C%03d", i+1),
			ProfileType:   b.stock.ProfileType,
			StockID:       b.stock.ID,
			StockLength:   b.stock.StockLength,
			StockCost:     b.stock.UnitCost(),
			MaterialGrade: b.stock.MaterialGrade,
			Segments:      make([]model.Segment, 0, len(b.pieces)),
		}
		offset := c.StartSafety
		for j, u := range b.pieces {
			if j > 0 {
				offset += c.KerfWidth
			}
			cut.Segments = append(cut.Segments, model.Segment{
				Offset:      offset,
				Length:      u.Length,
				ProfileType: u.ProfileType,
				WorkOrderID: u.WorkOrderID,
				ItemIndex:   u.ItemIndex,
			})
			offset += u.Length
			cut.UsedLength += u.Length
		}
		if len(b.pieces) > 0 {
			cut.ProfileType = b.pieces[0].ProfileType
			cut.KerfLoss = c.KerfWidth * float64(len(b.pieces)-1)
		}
		cut.RemainingLength = (b.stock.StockLength - c.EndSafety) - offset
		if cut.RemainingLength < 0 && cut.RemainingLength > -eps {
			cut.RemainingLength = 0
		}
		cut.WasteLength = b.stock.StockLength - cut.UsedLength
		cuts = append(cuts, cut)
	}
	return cuts
}
