package model

import (
	"github.com/google/uuid"
)

// TaskAllocation records where and how fast an allocated task runs.
type TaskAllocation struct {
	LoadingSpeed int    `json:"loading_speed"`
	ComputeSpeed int    `json:"compute_speed"`
	SendingSpeed int    `json:"sending_speed"`
	Server       string `json:"server"`
}

// Result holds the outcome of one allocation run. Persisting or formatting
// it is the caller's concern.
type Result struct {
	ID        string  `json:"id"`
	Algorithm string  `json:"algorithm"`
	SolveTime float64 `json:"solve_time"`

	// Auction runs end either converged or timed out, empty otherwise.
	Status string `json:"status,omitempty"`
	Rounds int    `json:"rounds,omitempty"`

	SocialWelfare         float64 `json:"social_welfare"`
	SocialWelfarePercent  float64 `json:"social_welfare_percent"`
	PercentTasksAllocated float64 `json:"percent_tasks_allocated"`

	TaskAllocations map[string]TaskAllocation `json:"task_allocations,omitempty"`

	ServerStorageUsage     map[string]float64 `json:"server_storage_usage,omitempty"`
	ServerComputationUsage map[string]float64 `json:"server_computation_usage,omitempty"`
	ServerBandwidthUsage   map[string]float64 `json:"server_bandwidth_usage,omitempty"`
	ServerNumTasks         map[string]int     `json:"server_num_tasks,omitempty"`

	// Auction only.
	TotalRevenue  float64            `json:"total_revenue,omitempty"`
	TaskPrices    map[string]float64 `json:"task_prices,omitempty"`
	ServerRevenue map[string]float64 `json:"server_revenue,omitempty"`

	// Online only, per window series keyed by server name.
	ServerSocialWelfare      map[string]float64   `json:"server_social_welfare,omitempty"`
	ServerStorageSeries      map[string][]float64 `json:"server_storage_series,omitempty"`
	ServerComputationSeries  map[string][]float64 `json:"server_computation_series,omitempty"`
	ServerBandwidthSeries    map[string][]float64 `json:"server_bandwidth_series,omitempty"`
	ServerTasksAllocatedOver map[string][]int     `json:"server_tasks_allocated,omitempty"`
	BatchCount               int                  `json:"batch_count,omitempty"`
}

// NewResult snapshots the model after a run. The limited flag skips the
// per-server snapshot, used by the online driver which records series
// instead. The auction flag adds revenue and pricing data.
func NewResult(algorithm string, tasks []*Task, servers []*Server, solveTime float64, limited, auction bool) *Result {
	result := &Result{
		ID:        uuid.New().String(),
		Algorithm: algorithm,
		SolveTime: solveTime,
	}

	if len(tasks) > 0 {
		welfare := SocialWelfare(tasks)
		allocated := 0
		for _, task := range tasks {
			if task.RunningServer != nil {
				allocated++
			}
		}

		result.SocialWelfare = welfare
		result.SocialWelfarePercent = welfare / TotalValue(tasks)
		result.PercentTasksAllocated = float64(allocated) / float64(len(tasks))
	}

	if !limited {
		result.TaskAllocations = make(map[string]TaskAllocation)
		for _, task := range tasks {
			if task.RunningServer == nil {
				continue
			}
			result.TaskAllocations[task.Name] = TaskAllocation{
				LoadingSpeed: task.LoadingSpeed,
				ComputeSpeed: task.ComputeSpeed,
				SendingSpeed: task.SendingSpeed,
				Server:       task.RunningServer.Name,
			}
		}

		result.ServerStorageUsage = make(map[string]float64)
		result.ServerComputationUsage = make(map[string]float64)
		result.ServerBandwidthUsage = make(map[string]float64)
		result.ServerNumTasks = make(map[string]int)
		for _, server := range servers {
			result.ServerStorageUsage[server.Name] = server.StorageUsage()
			result.ServerComputationUsage[server.Name] = server.ComputationUsage()
			result.ServerBandwidthUsage[server.Name] = server.BandwidthUsage()
			result.ServerNumTasks[server.Name] = len(server.AllocatedTasks)
		}
	}

	if auction {
		result.TaskPrices = make(map[string]float64)
		result.ServerRevenue = make(map[string]float64)
		for _, server := range servers {
			result.ServerRevenue[server.Name] = server.Revenue
			result.TotalRevenue += server.Revenue
			for _, task := range server.AllocatedTasks {
				result.TaskPrices[task.Name] = task.Price
			}
		}
	}

	return result
}
