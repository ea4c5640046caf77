package model

// RecommendationPriority ranks a recommendation.
type RecommendationPriority string

const (
	PriorityHigh   RecommendationPriority = "high"
	PriorityMedium RecommendationPriority = "medium"
	PriorityLow    RecommendationPriority = "low"
)

// Recommendation is a textual hint derived from the metrics.
type Recommendation struct {
	Type     string                 `json:"type"`
	Priority RecommendationPriority `json:"priority"`
	Message  string                 `json:"message"`
	Impact   string                 `json:"impact,omitempty"`
}

// WasteDistribution counts cuts per waste bucket.
type WasteDistribution struct {
	Minimal          int     `json:"minimal"`
	Small            int     `json:"small"`
	Medium           int     `json:"medium"`
	Large            int     `json:"large"`
	Excessive        int     `json:"excessive"`
	Reclaimable      int     `json:"reclaimable"`
	TotalCuts        int     `json:"totalCuts"`
	ReclaimableTotal float64 `json:"reclaimableTotal"` // mm
}

// Add counts one cut in the given bucket.
func (w *WasteDistribution) Add(c WasteCategory) {
	switch c {
	case WasteMinimal:
		w.Minimal++
	case WasteSmall:
		w.Small++
	case WasteMedium:
		w.Medium++
	case WasteLarge:
		w.Large++
	case WasteExcessive:
		w.Excessive++
	case WasteReclaimable:
		w.Reclaimable++
	}
	w.TotalCuts++
}

// OrderAllocation reports how many segments of a work order's profile were
// placed, and on which cuts.
type OrderAllocation struct {
	WorkOrderID string  `json:"workOrderId"`
	ProfileType string  `json:"profileType"`
	Length      float64 `json:"length"`
	ItemIndex   int     `json:"itemIndex"`
	Requested   int     `json:"requested"`
	Allocated   int     `json:"allocated"`
	CutIndexes  []int   `json:"cutIndexes"`
}

// ParetoEntry is one non-dominated solution together with the weights that
// produced it and its objective vector.
type ParetoEntry struct {
	Weights    map[ObjectiveType]float64 `json:"weights"`
	Objectives map[ObjectiveType]float64 `json:"objectives"`
	Distance   float64                   `json:"distance"` // normalized distance to the ideal point
	Solution   Solution                  `json:"solution"`
}

// ParetoFront is a set of mutually non-dominated solutions and its knee point.
type ParetoFront struct {
	Entries []ParetoEntry `json:"entries"`
	Knee    int           `json:"knee"`
}

// KneeSolution returns the selected knee point solution.
func (f ParetoFront) KneeSolution() (Solution, bool) {
	if f.Knee < 0 || f.Knee >= len(f.Entries) {
		return Solution{}, false
	}
	return f.Entries[f.Knee].Solution, true
}

// ErrorInfo is the caller-visible failure.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response is the optimization output contract.
type Response struct {
	Success           bool                  `json:"success"`
	Cuts              []Cut                 `json:"cuts"`
	Efficiency        float64               `json:"efficiency"`
	WastePercentage   float64               `json:"wastePercentage"`
	TotalCost         float64               `json:"totalCost"`
	TotalWaste        float64               `json:"totalWaste"`
	ExecutionTime     int64                 `json:"executionTime"` // ms
	Algorithm         Algorithm             `json:"algorithm"`
	QualityScore      float64               `json:"qualityScore"`
	StockUtilization  float64               `json:"stockUtilization"`
	CuttingAccuracy   float64               `json:"cuttingAccuracy"`
	AlgorithmMetadata AlgorithmMetadata     `json:"algorithmMetadata"`
	Recommendations   []Recommendation      `json:"recommendations"`
	WasteDistribution WasteDistribution     `json:"wasteDistribution"`
	CostBreakdown     CostBreakdown         `json:"costBreakdown"`
	OrderAllocations  []OrderAllocation     `json:"orderAllocations"`
	Offcuts           []Offcut              `json:"offcuts"`
	Violations        []ConstraintViolation `json:"violations,omitempty"`

	ParetoFront         []ParetoEntry `json:"paretoFront,omitempty"`
	FrontSize           int           `json:"frontSize,omitempty"`
	RecommendedSolution *Solution     `json:"recommendedSolution,omitempty"`

	Error *ErrorInfo `json:"error,omitempty"`
}
