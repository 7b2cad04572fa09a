package alg

import (
	"math"

	"github.com/ahellier/flexalloc/internal/model"
)

// ResourceAllocation supplies the cost function minimised by the speed
// solver. Policies are pure, all state mutation belongs to the allocator
// that invokes them.
type ResourceAllocation interface {
	Name() string
	Cost(task *model.Task, server *model.Server, loading, compute, sending int) float64
}

// AllocateSpeeds runs the speed solver with the policy's cost function.
func AllocateSpeeds(task *model.Task, server *model.Server, policy ResourceAllocation) (Speeds, bool) {
	return MinCostSpeeds(task, server, policy.Cost)
}

// SumPercentage scores a triple by the fraction of the server's available
// computation and bandwidth it consumes.
type SumPercentage struct{}

func (SumPercentage) Name() string { return "percentage sum" }

func (SumPercentage) Cost(task *model.Task, server *model.Server, loading, compute, sending int) float64 {
	return float64(compute)/float64(server.AvailableComputation) +
		float64(loading+sending)/float64(server.AvailableBandwidth)
}

// SumPowPercentage squares the consumed fractions, penalising triples that
// drain a single resource.
type SumPowPercentage struct{}

func (SumPowPercentage) Name() string { return "pow percentage sum" }

func (SumPowPercentage) Cost(task *model.Task, server *model.Server, loading, compute, sending int) float64 {
	computeFraction := float64(compute) / float64(server.AvailableComputation)
	bandwidthFraction := float64(loading+sending) / float64(server.AvailableBandwidth)
	return math.Pow(computeFraction, 2) + math.Pow(bandwidthFraction, 2)
}

// SumSpeeds scores a triple by the raw sum of its speeds.
type SumSpeeds struct{}

func (SumSpeeds) Name() string { return "sum of speeds" }

func (SumSpeeds) Cost(task *model.Task, server *model.Server, loading, compute, sending int) float64 {
	return float64(loading + compute + sending)
}

// DeadlinePercent scores a triple by the fraction of the deadline the task
// would actually take, preferring the fastest feasible speeds.
type DeadlinePercent struct{}

func (DeadlinePercent) Name() string { return "deadline percent" }

func (DeadlinePercent) Cost(task *model.Task, server *model.Server, loading, compute, sending int) float64 {
	return (float64(task.RequiredStorage)/float64(loading) +
		float64(task.RequiredComputation)/float64(compute) +
		float64(task.RequiredResultsData)/float64(sending)) / float64(task.Deadline)
}

// ResourceAllocationByName resolves a config name to a policy.
func ResourceAllocationByName(name string) (ResourceAllocation, bool) {
	switch name {
	case "percentage sum", "":
		return SumPercentage{}, true
	case "pow percentage sum":
		return SumPowPercentage{}, true
	case "sum of speeds":
		return SumSpeeds{}, true
	case "deadline percent":
		return DeadlinePercent{}, true
	}
	return nil, false
}
