package engine

import (
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluatorsVisitEveryIndexOnce(t *testing.T) {
	evaluators := []FitnessEvaluator{
		CPUEvaluator{},
		BatchedEvaluator{Workers: 1},
		BatchedEvaluator{Workers: 3},
		BatchedEvaluator{Workers: 16},
		BatchedEvaluator{},
	}
	for _, e := range evaluators {
		for _, n := range []int{0, 1, 7, 50} {
			hits := make([]int32, n)
			e.Evaluate(n, func(i int) {
				atomic.AddInt32(&hits[i], 1)
			})
			for i, h := range hits {
				if h != 1 {
					t.Errorf("%s n=%d: index %d evaluated %d times", e.Name(), n, i, h)
				}
			}
		}
	}
}

func TestEvaluatorsProduceSameResults(t *testing.T) {
	square := func(e FitnessEvaluator) []int {
		out := make([]int, 100)
		e.Evaluate(len(out), func(i int) { out[i] = i * i })
		return out
	}
	assert.Equal(t, square(CPUEvaluator{}), square(BatchedEvaluator{Workers: 4}))
}

func TestNewEvaluator(t *testing.T) {
	assert.Equal(t, EvaluatorCPU, NewEvaluator(EvaluatorCPU, 0).Name())
	assert.Equal(t, EvaluatorBatched, NewEvaluator(EvaluatorBatched, 2).Name())

	auto := NewEvaluator(EvaluatorAuto, 0)
	if runtime.NumCPU() > 1 {
		assert.Equal(t, EvaluatorBatched, auto.Name())
	} else {
		assert.Equal(t, EvaluatorCPU, auto.Name())
	}
}
