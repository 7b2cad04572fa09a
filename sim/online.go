package sim

import (
	"fmt"
	"time"

	"github.com/ahellier/flexalloc/internal/model"
	"github.com/ahellier/flexalloc/logging"
)

var log = logging.Get()

// Allocator is any allocation mechanism runnable over one batch window:
// the greedy sweep, an auction, or an external baseline wrapper.
type Allocator func(tasks []*model.Task, servers []*model.Server) (*model.Result, error)

// GenerateBatchTasks partitions an arrival stream into fixed length time
// windows. Each window holds deadline-rebased copies of the tasks arriving
// inside it, so a task's remaining budget reflects the wait until its
// window is processed. The number of windows is ceil(timeSteps /
// batchLength).
func GenerateBatchTasks(tasks []*model.Task, batchLength, timeSteps int) [][]*model.Task {
	numBatches := (timeSteps + batchLength - 1) / batchLength

	batches := make([][]*model.Task, numBatches)
	for batchNum := 0; batchNum < numBatches; batchNum++ {
		windowStart := batchNum * batchLength
		windowEnd := windowStart + batchLength

		var batch []*model.Task
		for _, task := range tasks {
			if windowStart <= task.AuctionTime && task.AuctionTime < windowEnd {
				batch = append(batch, task.Batch(windowEnd))
			}
		}
		batches[batchNum] = batch
	}

	return batches
}

// OnlineBatchSolver runs the allocator per window against the rolling
// server state. After each window, tasks whose deadline falls at or before
// the next window's start expire and their capacity returns to the server.
// A window's allocator failure aborts the whole run, later windows depend
// on its capacity rollover.
func OnlineBatchSolver(batchedTasks [][]*model.Task, servers []*model.Server, batchLength int,
	name string, allocator Allocator) (*model.Result, error) {
	startTime := time.Now()

	serverSocialWelfare := make(map[string]float64, len(servers))
	serverStorageSeries := make(map[string][]float64, len(servers))
	serverComputationSeries := make(map[string][]float64, len(servers))
	serverBandwidthSeries := make(map[string][]float64, len(servers))
	serverTasksAllocated := make(map[string][]int, len(servers))

	for batchNum, batchTasks := range batchedTasks {
		if _, err := allocator(batchTasks, servers); err != nil {
			return nil, fmt.Errorf("allocator failed on batch %d: %w", batchNum, err)
		}

		nextTimeStep := batchLength * (batchNum + 1)
		for _, server := range servers {
			for _, task := range batchTasks {
				if task.RunningServer == server {
					serverSocialWelfare[server.Name] += task.Value
				}
			}
			serverStorageSeries[server.Name] = append(serverStorageSeries[server.Name], server.StorageUsage())
			serverComputationSeries[server.Name] = append(serverComputationSeries[server.Name], server.ComputationUsage())
			serverBandwidthSeries[server.Name] = append(serverBandwidthSeries[server.Name], server.BandwidthUsage())
			serverTasksAllocated[server.Name] = append(serverTasksAllocated[server.Name], len(server.AllocatedTasks))

			server.ExpireTasks(nextTimeStep)
		}

		log.Debug().Msgf("batch %d of %d processed, %d tasks", batchNum+1, len(batchedTasks), len(batchTasks))
	}

	var flattened []*model.Task
	for _, batchTasks := range batchedTasks {
		flattened = append(flattened, batchTasks...)
	}

	result := model.NewResult(name, flattened, servers, time.Since(startTime).Seconds(), true, false)
	result.ServerSocialWelfare = serverSocialWelfare
	result.ServerStorageSeries = serverStorageSeries
	result.ServerComputationSeries = serverComputationSeries
	result.ServerBandwidthSeries = serverBandwidthSeries
	result.ServerTasksAllocatedOver = serverTasksAllocated
	result.BatchCount = len(batchedTasks)

	return result, nil
}
