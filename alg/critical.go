package alg

import (
	"fmt"
	"sort"
	"time"

	"github.com/ahellier/flexalloc/internal/model"
)

// CriticalValueAuction allocates with the greedy sweep and then charges
// each winner its critical value: the priority density of the first rank
// at which the winner would no longer fit, translated back into a value by
// the priority's inverse. The priority must therefore implement Inverter.
func CriticalValueAuction(tasks []*model.Task, servers []*model.Server, priority TaskPriority,
	selection ServerSelection, allocation ResourceAllocation) (*model.Result, error) {
	startTime := time.Now()

	inverter, ok := priority.(Inverter)
	if !ok {
		return nil, fmt.Errorf("%w: task priority %s has no inverse, cannot price critical values",
			model.ErrInvalidConfig, priority.Name())
	}

	densities := make(map[*model.Task]float64, len(tasks))
	for _, task := range tasks {
		densities[task] = priority.Evaluate(task)
	}

	ranked := make([]*model.Task, len(tasks))
	copy(ranked, tasks)
	sort.Stable(&ReverseSorter[model.Task]{
		objects: ranked,
		by:      priority.Evaluate,
	})

	if err := allocateTasks(ranked, servers, selection, allocation); err != nil {
		return nil, err
	}

	type placement struct {
		speeds Speeds
		server *model.Server
	}
	winners := make(map[*model.Task]placement)
	for _, task := range ranked {
		if task.RunningServer != nil {
			winners[task] = placement{
				speeds: Speeds{Loading: task.LoadingSpeed, Compute: task.ComputeSpeed, Sending: task.SendingSpeed},
				server: task.RunningServer,
			}
		}
	}

	model.ResetModel(tasks, servers, true)

	// For every winner, replay the sweep without it and find the first
	// rank at which no server could still take it. The preceding task's
	// density is the threshold the winner had to beat.
	for _, winner := range ranked {
		if _, won := winners[winner]; !won {
			continue
		}

		withoutWinner := make([]*model.Task, 0, len(ranked)-1)
		for _, task := range ranked {
			if task != winner {
				withoutWinner = append(withoutWinner, task)
			}
		}

		for pos := 0; pos <= len(withoutWinner); pos++ {
			if !anyCanRun(servers, winner) {
				// The winner stopped fitting, so it only had to outrank the
				// previous task. If it always fits the price stays zero.
				if pos > 0 {
					winner.Price = inverter.Inverse(winner, densities[withoutWinner[pos-1]])
				}
				break
			}
			if pos == len(withoutWinner) {
				break
			}

			task := withoutWinner[pos]
			server := selection.Select(task, servers)
			if server == nil {
				continue
			}
			speeds, ok := AllocateSpeeds(task, server, allocation)
			if !ok {
				continue
			}
			if err := model.ServerTaskAllocation(server, task,
				speeds.Loading, speeds.Compute, speeds.Sending, 0); err != nil {
				return nil, fmt.Errorf("critical value replay: %w", err)
			}
		}

		model.ResetModel(tasks, servers, false)
	}

	// Recommit the winning allocation, now charging the critical values.
	for task, won := range winners {
		if err := model.ServerTaskAllocation(won.server, task,
			won.speeds.Loading, won.speeds.Compute, won.speeds.Sending, task.Price); err != nil {
			return nil, fmt.Errorf("critical value recommit: %w", err)
		}
	}

	name := fmt.Sprintf("critical value auction %s, %s, %s",
		priority.Name(), selection.Name(), allocation.Name())
	result := model.NewResult(name, tasks, servers, time.Since(startTime).Seconds(), false, true)

	return result, nil
}

func anyCanRun(servers []*model.Server, task *model.Task) bool {
	for _, server := range servers {
		if server.CanRun(task) {
			return true
		}
	}
	return false
}
