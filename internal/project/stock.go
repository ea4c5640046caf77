package project

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/piwi3910/BarCut/internal/model"
)

// SaveStock writes a stock list to a JSON file.
func SaveStock(path string, stocks []model.StockDefinition) error {
	if stocks == nil {
		stocks = []model.StockDefinition{}
	}
	return writeJSON(path, stocks)
}

// LoadStock reads a stock list. A missing file yields an empty list.
func LoadStock(path string) ([]model.StockDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.StockDefinition{}, nil
		}
		return nil, err
	}
	var stocks []model.StockDefinition
	if err := json.Unmarshal(data, &stocks); err != nil {
		return nil, fmt.Errorf("failed to parse stock file: %w", err)
	}
	return stocks, nil
}

// MergeOffcuts appends reclaimed offcuts to a stock list as single-unit
// stock. Offcuts whose ID is already present are skipped.
func MergeOffcuts(existing []model.StockDefinition, offcuts []model.Offcut) []model.StockDefinition {
	ids := make(map[string]bool, len(existing))
	for _, s := range existing {
		if s.ID != "" {
			ids[s.ID] = true
		}
	}
	for _, o := range offcuts {
		if ids[o.ID] {
			continue
		}
		existing = append(existing, o.ToStockDefinition())
		ids[o.ID] = true
	}
	return existing
}

// ReturnOffcutsToStock loads the stock list at path, adds the offcuts and
// saves it back. It returns the number of offcuts added.
func ReturnOffcutsToStock(path string, offcuts []model.Offcut) (int, error) {
	stocks, err := LoadStock(path)
	if err != nil {
		return 0, err
	}
	before := len(stocks)
	stocks = MergeOffcuts(stocks, offcuts)
	if err := SaveStock(path, stocks); err != nil {
		return 0, err
	}
	return len(stocks) - before, nil
}
