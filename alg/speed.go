package alg

import (
	"math"

	"github.com/ahellier/flexalloc/internal/model"
	"github.com/ahellier/flexalloc/logging"
)

var log = logging.Get()

// Speeds is the (loading, compute, sending) rate triple that drives a
// task's three execution phases.
type Speeds struct {
	Loading int
	Compute int
	Sending int
}

// CostFunc scores a candidate speed triple for a task on a server, lower
// is better. Supplied by the resource allocation policy.
type CostFunc func(task *model.Task, server *model.Server, loading, compute, sending int) float64

// MinCostSpeeds finds the cheapest integer speed triple that meets the
// task's deadline within the server's available capacity, or reports that
// none exists. The second return is false for infeasible pairs, which
// callers treat as "task cannot run here", never as a failure.
//
// For a fixed (loading, sending) split the deadline inequality
//
//	S*w*s + l*W*s + l*w*R <= D*l*w*s
//
// solves for the minimal compute speed w = ceil(l*W*s / (D*l*s - S*s - l*R))
// whenever the denominator is positive. Cost functions may grow or shrink
// with the compute speed, so both that minimum and the full available
// computation are scored per split. Ties keep the first candidate in scan
// order, keeping runs reproducible.
func MinCostSpeeds(task *model.Task, server *model.Server, cost CostFunc) (Speeds, bool) {
	availBandwidth := server.AvailableBandwidth
	availComputation := server.AvailableComputation
	if availBandwidth < 2 || availComputation < 1 {
		return Speeds{}, false
	}

	best := Speeds{}
	bestCost := math.Inf(1)
	found := false

	for loading := 1; loading < availBandwidth; loading++ {
		for sending := 1; loading+sending <= availBandwidth; sending++ {
			denominator := task.Deadline*loading*sending -
				task.RequiredStorage*sending -
				loading*task.RequiredResultsData
			if denominator <= 0 {
				continue
			}

			minCompute := ceilDiv(loading*task.RequiredComputation*sending, denominator)
			if minCompute < 1 {
				minCompute = 1
			}
			if minCompute > availComputation {
				continue
			}

			for _, compute := range [2]int{minCompute, availComputation} {
				candidate := cost(task, server, loading, compute, sending)
				if candidate < bestCost {
					best = Speeds{Loading: loading, Compute: compute, Sending: sending}
					bestCost = candidate
					found = true
				}
			}
		}
	}

	return best, found
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
