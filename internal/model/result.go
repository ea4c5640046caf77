package model

// WasteCategory buckets the tail remnant of a cut.
type WasteCategory string

const (
	WasteMinimal     WasteCategory = "minimal"
	WasteSmall       WasteCategory = "small"
	WasteMedium      WasteCategory = "medium"
	WasteLarge       WasteCategory = "large"
	WasteExcessive   WasteCategory = "excessive"
	WasteReclaimable WasteCategory = "reclaimable"
)

// Segment is a unit piece placed inside a cut.
type Segment struct {
	Offset      float64 `json:"offset"` // mm from the bar start
	Length      float64 `json:"length"`
	ProfileType string  `json:"profileType"`
	WorkOrderID string  `json:"workOrderId"`
	ItemIndex   int     `json:"itemIndex"`
}

// End returns the position right after the segment.
func (s Segment) End() float64 {
	return s.Offset + s.Length
}

// Cut is one consumed stock unit and the segments placed on it.
type Cut struct {
	ID              string        `json:"id"`
	ProfileType     string        `json:"profileType"`
	StockID         string        `json:"stockId"`
	StockLength     float64       `json:"stockLength"`
	StockCost       float64       `json:"stockCost"`
	MaterialGrade   string        `json:"materialGrade,omitempty"`
	Segments        []Segment     `json:"segments"`
	UsedLength      float64       `json:"usedLength"`      // sum of segment lengths
	KerfLoss        float64       `json:"kerfLoss"`        // kerf * (segments-1)
	RemainingLength float64       `json:"remainingLength"` // tail after the last segment and end safety
	WasteLength     float64       `json:"wasteLength"`     // stock length not covered by segments
	Reclaimable     bool          `json:"reclaimable"`
	WasteCategory   WasteCategory `json:"wasteCategory,omitempty"`
}

// SegmentCount returns the number of placed segments.
func (c Cut) SegmentCount() int {
	return len(c.Segments)
}

// Efficiency returns the used share of the bar as a ratio.
func (c Cut) Efficiency() float64 {
	if c.StockLength == 0 {
		return 0
	}
	return c.UsedLength / c.StockLength
}

// ConstraintViolation records one broken hard constraint.
type ConstraintViolation struct {
	Constraint string  `json:"constraint"`
	Message    string  `json:"message"`
	Value      float64 `json:"value"`
	Limit      float64 `json:"limit"`
	CutIndex   int     `json:"cutIndex"` // -1 for solution-wide violations
}

// Metrics are the derived scores of a solution.
// Efficiency, StockUtilization and CuttingAccuracy are ratios in [0,1];
// WastePercentage and QualityScore are in [0,100].
type Metrics struct {
	Efficiency       float64       `json:"efficiency"`
	WastePercentage  float64       `json:"wastePercentage"`
	TotalCost        float64       `json:"totalCost"`
	TotalWaste       float64       `json:"totalWaste"`
	ReclaimableWaste float64       `json:"reclaimableWaste"`
	TotalStockLength float64       `json:"totalStockLength"`
	UsedLength       float64       `json:"usedLength"`
	QualityScore     float64       `json:"qualityScore"`
	StockUtilization float64       `json:"stockUtilization"`
	CuttingAccuracy  float64       `json:"cuttingAccuracy"`
	EstimatedTime    float64       `json:"estimatedTime"` // seconds
	StockCount       int           `json:"stockCount"`
	CutCount         int           `json:"cutCount"`
	CostBreakdown    CostBreakdown `json:"costBreakdown"`
}

// AlgorithmMetadata describes how a solution was produced.
type AlgorithmMetadata struct {
	Algorithm         Algorithm `json:"algorithm"`
	ComplexityClass   string    `json:"complexityClass"`
	Generations       int       `json:"generations,omitempty"`
	ConvergenceReason string    `json:"convergenceReason,omitempty"`
	BestFitness       float64   `json:"bestFitness"`
	ElapsedMs         int64     `json:"elapsedMs"`
	Seed              int64     `json:"seed"`
	PopulationSize    int       `json:"populationSize,omitempty"`
	Evaluator         string    `json:"evaluator,omitempty"`
	Exact             bool      `json:"exact"`
	TimeBounded       bool      `json:"timeBounded"`
	FallbackUsed      bool      `json:"fallbackUsed"`
	NodesExplored     int       `json:"nodesExplored,omitempty"`
	PoolCount         int       `json:"poolCount"`
	InnerAlgorithms   []string  `json:"innerAlgorithms,omitempty"`
}

// Solution is a full cut list plus its metrics and provenance.
type Solution struct {
	Cuts       []Cut                 `json:"cuts"`
	Metrics    Metrics               `json:"metrics"`
	Violations []ConstraintViolation `json:"violations,omitempty"`
	Metadata   AlgorithmMetadata     `json:"metadata"`
	Fitness    float64               `json:"fitness"`
}

// Feasible reports whether the solution satisfies every hard constraint.
func (s Solution) Feasible() bool {
	return len(s.Violations) == 0
}

// SegmentCount returns the total number of segments across all cuts.
func (s Solution) SegmentCount() int {
	n := 0
	for _, c := range s.Cuts {
		n += len(c.Segments)
	}
	return n
}
