package alg

import (
	"fmt"
	"sort"
	"time"

	"github.com/ahellier/flexalloc/internal/model"
)

// Greedy allocates tasks in a single sweep: sort descending by priority,
// place each task on the server the selection policy picks, commit the
// cheapest feasible speed triple or skip the task. No backtracking, no
// second pass.
func Greedy(tasks []*model.Task, servers []*model.Server, priority TaskPriority,
	selection ServerSelection, allocation ResourceAllocation) (*model.Result, error) {
	startTime := time.Now()

	ranked := make([]*model.Task, len(tasks))
	copy(ranked, tasks)
	sort.Stable(&ReverseSorter[model.Task]{
		objects: ranked,
		by:      priority.Evaluate,
	})

	if err := allocateTasks(ranked, servers, selection, allocation); err != nil {
		return nil, err
	}

	name := fmt.Sprintf("greedy %s, %s, %s", priority.Name(), selection.Name(), allocation.Name())
	return model.NewResult(name, tasks, servers, time.Since(startTime).Seconds(), false, false), nil
}

// allocateTasks is the greedy sweep over an already ranked task list,
// shared with the critical value auction.
func allocateTasks(ranked []*model.Task, servers []*model.Server,
	selection ServerSelection, allocation ResourceAllocation) error {
	for _, task := range ranked {
		server := selection.Select(task, servers)
		if server == nil {
			continue
		}

		speeds, ok := AllocateSpeeds(task, server, allocation)
		if !ok {
			// Infeasible here, the task stays unallocated this sweep.
			continue
		}

		if err := model.ServerTaskAllocation(server, task, speeds.Loading, speeds.Compute, speeds.Sending, 0); err != nil {
			return fmt.Errorf("greedy commit of task %s on server %s: %w", task.Name, server.Name, err)
		}
	}

	return nil
}
