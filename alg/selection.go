package alg

import (
	"math"
	"math/rand"

	"github.com/ahellier/flexalloc/internal/model"
)

// ServerSelection picks the server a task should be placed on, or nil when
// no server passes the coarse capacity pre-check. Each policy declares its
// own extremum direction.
type ServerSelection interface {
	Name() string
	Select(task *model.Task, servers []*model.Server) *model.Server
}

// scoredSelection is the shared shape of the scoring policies: filter by
// CanRun, return the extremum of the score. Ties keep the earliest server
// in input order.
type scoredSelection struct {
	name     string
	maximise bool
	score    func(task *model.Task, server *model.Server) float64
}

func (selection scoredSelection) Name() string { return selection.name }

func (selection scoredSelection) Select(task *model.Task, servers []*model.Server) *model.Server {
	var best *model.Server
	bestScore := math.Inf(1)
	if selection.maximise {
		bestScore = math.Inf(-1)
	}

	for _, server := range servers {
		if !server.CanRun(task) {
			continue
		}
		score := selection.score(task, server)
		if best == nil ||
			(selection.maximise && score > bestScore) ||
			(!selection.maximise && score < bestScore) {
			best = server
			bestScore = score
		}
	}

	return best
}

// NewSumResources scores a server by the sum of its free capacities.
func NewSumResources(maximise bool) ServerSelection {
	return scoredSelection{
		name:     "sum resources",
		maximise: maximise,
		score: func(task *model.Task, server *model.Server) float64 {
			return float64(server.AvailableStorage + server.AvailableComputation + server.AvailableBandwidth)
		},
	}
}

// NewProductResources scores a server by the product of its free
// capacities, favouring balanced headroom.
func NewProductResources(maximise bool) ServerSelection {
	return scoredSelection{
		name:     "product resources",
		maximise: maximise,
		score: func(task *model.Task, server *model.Server) float64 {
			return float64(server.AvailableStorage) *
				float64(server.AvailableComputation) *
				float64(server.AvailableBandwidth)
		},
	}
}

// NewTaskSumResources scores a server by the fraction of its free capacity
// the task would actually consume under the given allocation policy.
func NewTaskSumResources(policy ResourceAllocation, maximise bool) ServerSelection {
	return scoredSelection{
		name:     "task sum of " + policy.Name(),
		maximise: maximise,
		score: func(task *model.Task, server *model.Server) float64 {
			speeds, ok := AllocateSpeeds(task, server, policy)
			if !ok {
				return math.Inf(1)
			}
			return float64(task.RequiredStorage)/float64(server.AvailableStorage) +
				float64(speeds.Compute)/float64(server.AvailableComputation) +
				float64(speeds.Loading+speeds.Sending)/float64(server.AvailableBandwidth)
		},
	}
}

// RandomSelection picks uniformly among runnable servers, evaluation only.
type RandomSelection struct {
	Rand *rand.Rand
}

func (RandomSelection) Name() string { return "random" }

func (selection RandomSelection) Select(task *model.Task, servers []*model.Server) *model.Server {
	var runnable []*model.Server
	for _, server := range servers {
		if server.CanRun(task) {
			runnable = append(runnable, server)
		}
	}
	if len(runnable) == 0 {
		return nil
	}
	return runnable[selection.Rand.Intn(len(runnable))]
}

// ServerSelectionByName resolves a config name to a policy.
func ServerSelectionByName(name string, maximise bool, rng *rand.Rand) (ServerSelection, bool) {
	switch name {
	case "sum resources", "":
		return NewSumResources(maximise), true
	case "product resources":
		return NewProductResources(maximise), true
	case "task sum resources":
		return NewTaskSumResources(SumPercentage{}, maximise), true
	case "random":
		return RandomSelection{Rand: rng}, true
	}
	return nil, false
}
