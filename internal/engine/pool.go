package engine

import (
	"sort"

	"github.com/piwi3910/BarCut/internal/model"
)

// profilePool holds the unit pieces of one profile type, pooled across all
// work orders, and the stock definitions that can serve them.
type profilePool struct {
	profile string
	units   []model.UnitPiece
	stocks  []int // indexes into problem.stocks, in definition order
}

// totalLength returns the summed piece length of the pool.
func (pl profilePool) totalLength() float64 {
	var total float64
	for _, u := range pl.units {
		total += u.Length
	}
	return total
}

// groupByProfile splits unit pieces into one pool per profile type, in
// sorted profile order. Stocks with an empty profile type are universal and
// join every pool after the profile-specific ones.
func groupByProfile(units []model.UnitPiece, stocks []model.StockDefinition) []profilePool {
	profileSet := make(map[string]bool)
	for _, u := range units {
		profileSet[u.ProfileType] = true
	}

	profiles := make([]string, 0, len(profileSet))
	for prof := range profileSet {
		profiles = append(profiles, prof)
	}
	sort.Strings(profiles)

	var universal []int
	for i, s := range stocks {
		if s.ProfileType == "" {
			universal = append(universal, i)
		}
	}

	pools := make([]profilePool, 0, len(profiles))
	for _, prof := range profiles {
		pl := profilePool{profile: prof}
		for _, u := range units {
			if u.ProfileType == prof {
				pl.units = append(pl.units, u)
			}
		}
		for i, s := range stocks {
			if s.ProfileType == prof {
				pl.stocks = append(pl.stocks, i)
			}
		}
		pl.stocks = append(pl.stocks, universal...)
		pools = append(pools, pl)
	}
	return pools
}

// inventory tracks how many bars of each stock definition are still
// available. Pools share one inventory, so universal stock consumed by one
// profile is gone for the next.
type inventory struct {
	remaining []int // -1 = unlimited
}

func newInventory(stocks []model.StockDefinition) *inventory {
	inv := &inventory{remaining: make([]int, len(stocks))}
	for i, s := range stocks {
		if s.Unlimited() {
			inv.remaining[i] = -1
		} else {
			inv.remaining[i] = s.Availability
		}
	}
	return inv
}

func (inv *inventory) available(idx int) bool {
	return inv.remaining[idx] != 0
}

func (inv *inventory) take(idx int) {
	if inv.remaining[idx] > 0 {
		inv.remaining[idx]--
	}
}

func (inv *inventory) clone() *inventory {
	cp := &inventory{remaining: make([]int, len(inv.remaining))}
	copy(cp.remaining, inv.remaining)
	return cp
}
