package engine

import (
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// Evaluator names accepted in configuration.
const (
	EvaluatorAuto    = "auto"
	EvaluatorCPU     = "cpu"
	EvaluatorBatched = "batched"
)

// FitnessEvaluator runs eval for every index in [0, n). Each call may only
// write state owned by its index, so the result does not depend on the
// order in which indexes are processed.
type FitnessEvaluator interface {
	Name() string
	Evaluate(n int, eval func(i int))
}

// CPUEvaluator evaluates sequentially on the calling goroutine.
type CPUEvaluator struct{}

func (CPUEvaluator) Name() string { return EvaluatorCPU }

func (CPUEvaluator) Evaluate(n int, eval func(i int)) {
	for i := 0; i < n; i++ {
		eval(i)
	}
}

// BatchedEvaluator splits the indexes into contiguous batches and evaluates
// them on a bounded goroutine pool.
type BatchedEvaluator struct {
	Workers int // 0 = GOMAXPROCS
}

func (BatchedEvaluator) Name() string { return EvaluatorBatched }

func (e BatchedEvaluator) Evaluate(n int, eval func(i int)) {
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers <= 1 || n < 2 {
		CPUEvaluator{}.Evaluate(n, eval)
		return
	}

	batch := (n + workers - 1) / workers
	p := pool.New().WithMaxGoroutines(workers)
	for start := 0; start < n; start += batch {
		end := min(start+batch, n)
		p.Go(func() {
			for i := start; i < end; i++ {
				eval(i)
			}
		})
	}
	p.Wait()
}

// NewEvaluator returns the evaluator for a configured kind. "auto" picks the
// batched evaluator when more than one CPU is available.
func NewEvaluator(kind string, workers int) FitnessEvaluator {
	switch kind {
	case EvaluatorCPU:
		return CPUEvaluator{}
	case EvaluatorBatched:
		return BatchedEvaluator{Workers: workers}
	default:
		if runtime.NumCPU() > 1 {
			return BatchedEvaluator{Workers: workers}
		}
		return CPUEvaluator{}
	}
}
