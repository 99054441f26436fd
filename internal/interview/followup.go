package interview

import (
	"math/rand/v2"
	"sync"

	"github.com/jonathan/interview-coach/internal/types"
)

// DefaultFollowUpRate is the probability that a suggested follow-up is actually asked.
const DefaultFollowUpRate = 0.30

// Gate decides whether a follow-up the evaluator asked for is issued.
type Gate interface {
	Pass() bool
}

// RandomGate passes with probability Rate.
type RandomGate struct {
	Rate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomGate returns a RandomGate; a rate outside [0,1] falls back to DefaultFollowUpRate.
func NewRandomGate(rate float64) *RandomGate {
	if rate < 0 || rate > 1 {
		rate = DefaultFollowUpRate
	}
	return &RandomGate{Rate: rate}
}

// NewSeededGate returns a RandomGate with a deterministic source.
func NewSeededGate(rate float64, seed uint64) *RandomGate {
	g := NewRandomGate(rate)
	g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return g
}

// Pass draws once from the gate.
func (g *RandomGate) Pass() bool {
	if g.rng == nil {
		return rand.Float64() < g.Rate
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64() < g.Rate
}

// FixedGate always returns its value.
type FixedGate bool

// Pass implements Gate.
func (g FixedGate) Pass() bool {
	return bool(g)
}

// FollowUpDecision is the outcome of the follow-up policy for one evaluation.
type FollowUpDecision struct {
	Ask    bool
	Reason string
}

// DecideFollowUp forwards the evaluator's follow-up signal. The gate is applied
// separately by the next-step algorithm.
func DecideFollowUp(eval *types.Evaluation) FollowUpDecision {
	if eval == nil || !eval.ShouldAskFollowUp {
		return FollowUpDecision{}
	}
	return FollowUpDecision{Ask: true, Reason: eval.FollowUpReason}
}
