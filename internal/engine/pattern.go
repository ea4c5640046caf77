package engine

import (
	"context"
	"math"
	"sort"

	"github.com/piwi3910/BarCut/internal/model"
)

// checkEvery is how many node expansions pass between budget checks.
const checkEvery = 1024

// patternStats describes one pattern search run.
type patternStats struct {
	nodes       int
	exact       bool
	timeBounded bool
	fallback    bool
}

// patternSearch assigns pieces, longest first, to open bars or to a new bar
// of any available stock length, minimizing consumed stock length. The
// incumbent starts from BFD.
type patternSearch struct {
	ctx      context.Context
	pk       *packer
	pieces   []model.UnitPiece
	suffix   []float64 // suffix[i] = total length of pieces[i:]
	stocks   [][]int   // interchangeable stock definitions, see stockGroups
	inv      *inventory
	usage    map[int]int
	maxNodes int

	bins     []*bin
	assign   []int // bin index per placed piece
	consumed float64

	best     []*bin
	bestCost float64

	nodes   int
	stopped bool
	perfect bool // stopped on an incumbent with no tail left
}

// searchPool runs the pattern search for one pool. Pools larger than the
// configured piece limit fall back to BFD. When BFD cannot pack the pool
// under the stock limits the search starts without an incumbent.
func searchPool(ctx context.Context, p *problem, pl profilePool, inv *inventory) ([]*bin, patternStats, error) {
	pk := newPacker(p, ruleBestFit)
	pieces := sortDescending(pl.units)

	seedInv := inv.clone()
	incumbent, seedErr := pk.packPool(pl, pieces, seedInv)
	if len(pieces) > p.settings.Pattern.MaxPieces {
		if seedErr != nil {
			return nil, patternStats{}, seedErr
		}
		*inv = *seedInv
		return incumbent, patternStats{fallback: true}, nil
	}

	s := &patternSearch{
		ctx:      ctx,
		pk:       pk,
		pieces:   pieces,
		suffix:   make([]float64, len(pieces)+1),
		inv:      inv,
		usage:    make(map[int]int),
		maxNodes: p.settings.Pattern.MaxNodes,
		assign:   make([]int, len(pieces)),
		bestCost: math.Inf(1),
	}
	if seedErr == nil {
		s.best = incumbent
		s.bestCost = stockConsumed(incumbent)
	}
	for i := len(pieces) - 1; i >= 0; i-- {
		s.suffix[i] = s.suffix[i+1] + pieces[i].Length
	}
	s.stocks = stockGroups(p, pl)

	if s.best == nil || !perfect(pk, s.best) {
		s.expand(0)
	}

	stats := patternStats{
		nodes:       s.nodes,
		exact:       !s.stopped || s.perfect,
		timeBounded: s.stopped && !s.perfect,
	}
	if s.best == nil {
		return nil, stats, seedErr
	}
	for _, b := range s.best {
		inv.take(b.stockIdx)
	}
	return s.best, stats, nil
}

// stockGroups collects the pool's stock definitions into groups of equal
// length, price and grade, shortest first. Bars of one group are
// interchangeable, so the search branches once per group and draws from
// whichever member still has availability.
func stockGroups(p *problem, pl profilePool) [][]int {
	type stockKey struct {
		length, cost float64
		grade        string
	}
	index := make(map[stockKey]int)
	var groups [][]int
	for _, idx := range pl.stocks {
		st := p.stocks[idx]
		key := stockKey{st.StockLength, st.UnitCost(), st.MaterialGrade}
		g, ok := index[key]
		if !ok {
			g = len(groups)
			index[key] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], idx)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return p.stocks[groups[i][0]].StockLength < p.stocks[groups[j][0]].StockLength
	})
	return groups
}

// expand places piece i and recurses.
func (s *patternSearch) expand(i int) {
	if s.stopped {
		return
	}
	s.nodes++
	if s.nodes%checkEvery == 0 && s.ctx.Err() != nil {
		s.stopped = true
		return
	}
	if s.maxNodes > 0 && s.nodes >= s.maxNodes {
		s.stopped = true
		return
	}

	if i == len(s.pieces) {
		if s.consumed < s.bestCost-eps {
			s.bestCost = s.consumed
			s.best = cloneBins(s.bins)
			if perfect(s.pk, s.best) {
				s.stopped = true
				s.perfect = true
			}
		}
		return
	}
	if s.bound(i) >= s.bestCost-eps {
		return
	}

	u := s.pieces[i]
	minBin := 0
	if i > 0 && s.pieces[i-1].Length == u.Length {
		minBin = s.assign[i-1]
	}

	type binState struct {
		stockIdx int
		free     float64
		count    int
	}
	tried := make(map[binState]bool)
	for j := minBin; j < len(s.bins); j++ {
		b := s.bins[j]
		if _, ok := s.pk.fits(b, u.Length); !ok {
			continue
		}
		st := binState{b.stockIdx, roundMM(b.free(s.pk.kerf, s.pk.margins)), len(b.pieces)}
		if tried[st] {
			continue
		}
		tried[st] = true

		s.assign[i] = j
		b.add(u)
		s.expand(i + 1)
		b.pieces = b.pieces[:len(b.pieces)-1]
		b.used -= u.Length
		if s.stopped {
			return
		}
	}

	for _, group := range s.stocks {
		idx := s.openable(group, u.Length)
		if idx < 0 {
			continue
		}
		st := s.pk.p.stocks[idx]
		s.usage[idx]++
		s.consumed += st.StockLength
		s.assign[i] = len(s.bins)
		nb := &bin{stockIdx: idx, stock: st}
		nb.add(u)
		s.bins = append(s.bins, nb)

		s.expand(i + 1)

		s.bins = s.bins[:len(s.bins)-1]
		s.consumed -= st.StockLength
		s.usage[idx]--
		if s.stopped {
			return
		}
	}
}

// bound is a lower bound on the stock consumed by any completion of the
// current partial assignment.
func (s *patternSearch) bound(i int) float64 {
	var freeCap float64
	for _, b := range s.bins {
		if s.pk.maxCuts > 0 && len(b.pieces) >= s.pk.maxCuts {
			continue
		}
		freeCap += max(b.free(s.pk.kerf, s.pk.margins), 0)
	}
	return s.consumed + max(s.suffix[i]-freeCap, 0)
}

// openable returns the first stock definition of a group that can take a new
// bar for a piece of the given length, or -1.
func (s *patternSearch) openable(group []int, length float64) int {
	for _, idx := range group {
		if s.canOpen(idx, length) {
			return idx
		}
	}
	return -1
}

func (s *patternSearch) canOpen(idx int, length float64) bool {
	st := s.pk.p.stocks[idx]
	if length > st.StockLength-s.pk.margins+eps {
		return false
	}
	rem := s.inv.remaining[idx]
	return rem < 0 || s.usage[idx] < rem
}

// perfect reports whether every bar is used up to its end margin.
func perfect(pk *packer, bins []*bin) bool {
	for _, b := range bins {
		if b.tail(pk.kerf, pk.margins) > eps {
			return false
		}
	}
	return true
}

func stockConsumed(bins []*bin) float64 {
	var total float64
	for _, b := range bins {
		total += b.stock.StockLength
	}
	return total
}

func cloneBins(bins []*bin) []*bin {
	out := make([]*bin, len(bins))
	for i, b := range bins {
		cp := *b
		cp.pieces = append([]model.UnitPiece(nil), b.pieces...)
		out[i] = &cp
	}
	return out
}

func roundMM(v float64) float64 {
	return float64(int64(v*1000+0.5)) / 1000
}
