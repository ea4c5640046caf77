package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Algorithm represents the packing strategy to use.
type Algorithm string

const (
	AlgorithmFFD          Algorithm = "ffd"           // First-Fit-Decreasing (fast, deterministic)
	AlgorithmBFD          Algorithm = "bfd"           // Best-Fit-Decreasing (fast, deterministic)
	AlgorithmGenetic      Algorithm = "genetic"       // Genetic algorithm over packing orders
	AlgorithmPooling      Algorithm = "pooling"       // Cross-order pooled portfolio
	AlgorithmPatternExact Algorithm = "pattern-exact" // Branch-and-bound over cutting patterns
)

// Algorithms lists every supported algorithm in a stable order.
var Algorithms = []Algorithm{
	AlgorithmFFD,
	AlgorithmBFD,
	AlgorithmGenetic,
	AlgorithmPooling,
	AlgorithmPatternExact,
}

// AlgorithmMode selects single-objective or Pareto optimization.
type AlgorithmMode string

const (
	ModeStandard AlgorithmMode = "standard"
	ModeAdvanced AlgorithmMode = "advanced"
)

// ObjectiveType names a scoring objective.
type ObjectiveType string

const (
	ObjectiveMinimizeWaste      ObjectiveType = "minimize-waste"
	ObjectiveMaximizeEfficiency ObjectiveType = "maximize-efficiency"
	ObjectiveMinimizeCost       ObjectiveType = "minimize-cost"
	ObjectiveMinimizeTime       ObjectiveType = "minimize-time"
	ObjectiveMaximizeQuality    ObjectiveType = "maximize-quality"
)

// ObjectiveTypes lists every objective type in a stable order.
var ObjectiveTypes = []ObjectiveType{
	ObjectiveMinimizeWaste,
	ObjectiveMaximizeEfficiency,
	ObjectiveMinimizeCost,
	ObjectiveMinimizeTime,
	ObjectiveMaximizeQuality,
}

// Piece is a required linear piece: a profile cut to length, requested by a work order.
type Piece struct {
	WorkOrderID string  `json:"workOrderId"`
	ProfileType string  `json:"profileType" validate:"required"`
	Length      float64 `json:"length" validate:"gt=0"`   // mm
	Quantity    int     `json:"quantity" validate:"gt=0"` // pieces
}

func (p Piece) String() string {
	return fmt.Sprintf("%s %.1fmm x%d (order %s)", p.ProfileType, p.Length, p.Quantity, p.WorkOrderID)
}

// UnitPiece is a single piece (quantity 1) expanded from a Piece.
// ItemIndex points back at the originating request item.
type UnitPiece struct {
	Index       int     `json:"index"`
	ItemIndex   int     `json:"itemIndex"`
	WorkOrderID string  `json:"workOrderId"`
	ProfileType string  `json:"profileType"`
	Length      float64 `json:"length"`
}

// StockDefinition is an available stock bar length for a profile.
// An empty ProfileType makes the stock usable by every profile.
// Availability <= 0 means unlimited.
type StockDefinition struct {
	ID            string  `json:"id,omitempty"`
	ProfileType   string  `json:"profileType"`
	StockLength   float64 `json:"stockLength" validate:"gt=0"`
	Availability  int     `json:"availability"`
	CostPerMm     float64 `json:"costPerMm" validate:"gte=0"`
	CostPerStock  float64 `json:"costPerStock" validate:"gte=0"`
	MaterialGrade string  `json:"materialGrade,omitempty"`
}

func NewStockDefinition(profileType string, length float64, availability int) StockDefinition {
	return StockDefinition{
		ID:           uuid.New().String()[:8],
		ProfileType:  profileType,
		StockLength:  length,
		Availability: availability,
	}
}

// UnitCost returns the cost of consuming one bar of this stock.
func (s StockDefinition) UnitCost() float64 {
	return s.StockLength*s.CostPerMm + s.CostPerStock
}

// Unlimited reports whether the stock has no availability cap.
func (s StockDefinition) Unlimited() bool {
	return s.Availability <= 0
}

// Constraints apply uniformly to every cut of a solution.
type Constraints struct {
	KerfWidth          float64  `json:"kerfWidth" validate:"gte=0"`
	StartSafety        float64  `json:"startSafety" validate:"gte=0"`
	EndSafety          float64  `json:"endSafety" validate:"gte=0"`
	MinScrapLength     float64  `json:"minScrapLength" validate:"gte=0"`
	MaxWastePercentage float64  `json:"maxWastePercentage" validate:"gte=0,lte=100"`
	MaxCutsPerStock    int      `json:"maxCutsPerStock" validate:"gte=0"`
	MaxProcessingTime  int      `json:"maxProcessingTime,omitempty" validate:"gte=0"` // ms
	MinQualityScore    *float64 `json:"minQualityScore,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// Objective is one weighted scoring goal. Priority 1 is the most important.
type Objective struct {
	Type     ObjectiveType `json:"type" validate:"required,oneof=minimize-waste maximize-efficiency minimize-cost minimize-time maximize-quality"`
	Weight   float64       `json:"weight" validate:"gt=0"`
	Priority int           `json:"priority" validate:"gte=0"`
}

// PerformanceSettings tune the search-based algorithms.
type PerformanceSettings struct {
	MaxIterations     int     `json:"maxIterations" validate:"gte=0"`
	PopulationSize    int     `json:"populationSize" validate:"gte=0"`
	MutationRate      float64 `json:"mutationRate" validate:"gte=0,lte=1"`
	CrossoverRate     float64 `json:"crossoverRate" validate:"gte=0,lte=1"`
	Timeout           int     `json:"timeout" validate:"gte=0"` // ms
	DeterministicSeed *int64  `json:"deterministicSeed,omitempty"`
}

// CostModel holds the rates used to price a cutting plan.
//
//	MaterialCost  multiplier applied to stock cost (0 is treated as 1)
//	LaborCost     per cut operation
//	WasteCost     per mm of non-reclaimable waste
//	SetupCost     per stock unit loaded
//	TransportCost per stock unit moved
//	OverheadCost  percent added on top of the subtotal
type CostModel struct {
	MaterialCost  float64 `json:"materialCost" validate:"gte=0"`
	LaborCost     float64 `json:"laborCost" validate:"gte=0"`
	WasteCost     float64 `json:"wasteCost" validate:"gte=0"`
	SetupCost     float64 `json:"setupCost" validate:"gte=0"`
	TransportCost float64 `json:"transportCost" validate:"gte=0"`
	OverheadCost  float64 `json:"overheadCost" validate:"gte=0"`
}

// Request is the optimization input contract.
type Request struct {
	Items                []Piece             `json:"items" validate:"dive"`
	Algorithm            Algorithm           `json:"algorithm,omitempty" validate:"omitempty,oneof=ffd bfd genetic pooling pattern-exact"`
	AlgorithmMode        AlgorithmMode       `json:"algorithmMode,omitempty" validate:"omitempty,oneof=standard advanced"`
	Objectives           []Objective         `json:"objectives" validate:"dive"`
	Constraints          Constraints         `json:"constraints"`
	MaterialStockLengths []StockDefinition   `json:"materialStockLengths" validate:"dive"`
	Performance          PerformanceSettings `json:"performance"`
	CostModel            CostModel           `json:"costModel"`
}

// GeneticSettings are the engine-side defaults for the genetic algorithm.
type GeneticSettings struct {
	PopulationSize     int     `json:"population_size" yaml:"population_size"`
	Generations        int     `json:"generations" yaml:"generations"`
	MutationRate       float64 `json:"mutation_rate" yaml:"mutation_rate"`
	CrossoverRate      float64 `json:"crossover_rate" yaml:"crossover_rate"`
	TournamentSize     int     `json:"tournament_size" yaml:"tournament_size"`
	EliteCount         int     `json:"elite_count" yaml:"elite_count"`
	ConvergenceWindow  int     `json:"convergence_window" yaml:"convergence_window"`
	ConvergenceEpsilon float64 `json:"convergence_epsilon" yaml:"convergence_epsilon"`
	Seed               int64   `json:"seed" yaml:"seed"`
	DecodeRule         string  `json:"decode_rule" yaml:"decode_rule"` // "ffd" or "bfd"
}

// PatternSettings bound the branch-and-bound search.
type PatternSettings struct {
	MaxPieces int `json:"max_pieces" yaml:"max_pieces"` // pools above this fall back to BFD
	MaxNodes  int `json:"max_nodes" yaml:"max_nodes"`
}

// ParetoSettings control the advanced (multi-objective) mode.
type ParetoSettings struct {
	Steps       int `json:"steps" yaml:"steps"`       // simplex lattice resolution
	MaxRuns     int `json:"max_runs" yaml:"max_runs"` // weight vectors evaluated
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// WasteThresholds are the upper bounds (mm) of each waste bucket.
// Tails above Large are excessive.
type WasteThresholds struct {
	Minimal float64 `json:"minimal" yaml:"minimal"`
	Small   float64 `json:"small" yaml:"small"`
	Medium  float64 `json:"medium" yaml:"medium"`
	Large   float64 `json:"large" yaml:"large"`
}

// EngineSettings holds the optimizer defaults a request is normalized against.
type EngineSettings struct {
	Algorithm           Algorithm       `json:"algorithm"`
	Mode                AlgorithmMode   `json:"mode"`
	KerfWidth           float64         `json:"kerf_width"`          // mm, default for imported cut lists
	MaxProcessingTime   int             `json:"max_processing_time"` // ms
	CuttingTolerance    float64         `json:"cutting_tolerance"`   // mm
	SetupSeconds        float64         `json:"setup_seconds"`       // per stock unit
	CutSeconds          float64         `json:"cut_seconds"`         // per cut
	Evaluator           string          `json:"evaluator"`           // "auto", "cpu" or "batched"
	EvaluatorWorkers    int             `json:"evaluator_workers"`   // 0 = GOMAXPROCS
	Genetic             GeneticSettings `json:"genetic"`
	Pattern             PatternSettings `json:"pattern"`
	Pareto              ParetoSettings  `json:"pareto"`
	WasteThresholds     WasteThresholds `json:"waste_thresholds"`
	HighWastePercent    float64         `json:"high_waste_percent"`  // recommendation trigger
	StockWastePercent   float64         `json:"stock_waste_percent"` // per stock length trigger
	ExcellentEffPercent float64         `json:"excellent_eff_percent"`
}

func DefaultSettings() EngineSettings {
	return EngineSettings{
		Algorithm:         AlgorithmBFD,
		Mode:              ModeStandard,
		KerfWidth:         3.0,
		MaxProcessingTime: 30000,
		CuttingTolerance:  1.0,
		SetupSeconds:      30,
		CutSeconds:        10,
		Evaluator:         "auto",
		Genetic: GeneticSettings{
			PopulationSize:     50,
			Generations:        100,
			MutationRate:       0.15,
			CrossoverRate:      0.9,
			TournamentSize:     3,
			EliteCount:         2,
			ConvergenceWindow:  25,
			ConvergenceEpsilon: 1e-6,
			Seed:               42,
			DecodeRule:         "bfd",
		},
		Pattern: PatternSettings{
			MaxPieces: 40,
			MaxNodes:  2_000_000,
		},
		Pareto: ParetoSettings{
			Steps:       4,
			MaxRuns:     12,
			Concurrency: 4,
		},
		WasteThresholds: WasteThresholds{
			Minimal: 50,
			Small:   200,
			Medium:  500,
			Large:   1000,
		},
		HighWastePercent:    15,
		StockWastePercent:   20,
		ExcellentEffPercent: 95,
	}
}
