package sim

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/ahellier/flexalloc/alg"
	"github.com/ahellier/flexalloc/internal/config"
	"github.com/ahellier/flexalloc/internal/gen"
	"github.com/ahellier/flexalloc/internal/model"
)

// Bridge hands the latest result to an observer (the gui) on request.
type Bridge struct {
	ResultRequestStream chan struct{}
	ResultStream        chan *model.Result
}

// Run executes one configured simulation end to end: build the model,
// apply the server heuristics, run the configured algorithm (optionally
// through the online batch driver) and persist the report.
func Run(cfg *config.GeneralConfig) (*model.Result, error) {
	tasks, servers, err := buildModel(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.PriceChange > 0 {
		if err := model.SetServerHeuristics(servers, cfg.PriceChange, cfg.InitialPrice); err != nil {
			return nil, err
		}
	}

	allocator, name, err := buildAllocator(cfg)
	if err != nil {
		return nil, err
	}

	var result *model.Result
	if cfg.Online {
		batched := GenerateBatchTasks(tasks, cfg.BatchLength, cfg.TimeSteps)
		result, err = OnlineBatchSolver(batched, servers, cfg.BatchLength,
			fmt.Sprintf("online %s", name), allocator)
	} else {
		result, err = allocator(tasks, servers)
	}
	if err != nil {
		return nil, err
	}

	if cfg.ReportFile != "" {
		if err := writeReport(cfg.ReportFile, result); err != nil {
			return nil, err
		}
	}

	log.Info().Msgf("%s: social welfare %f (%f%% of total), %f%% of tasks allocated",
		result.Algorithm, result.SocialWelfare,
		100*result.SocialWelfarePercent, 100*result.PercentTasksAllocated)

	return result, nil
}

func buildModel(cfg *config.GeneralConfig) ([]*model.Task, []*model.Server, error) {
	if cfg.ModelFile != "" {
		return gen.LoadModel(cfg.ModelFile)
	}

	dist, err := gen.LoadDistribution(cfg.DistributionFile)
	if err != nil {
		return nil, nil, err
	}
	tasks, servers, err := dist.Create(cfg.NumTasks, cfg.NumServers, uint64(cfg.Seed))
	if err != nil {
		return nil, nil, err
	}
	if cfg.Online {
		gen.SpreadArrivals(tasks, cfg.TimeSteps, uint64(cfg.Seed)+1)
	}

	return tasks, servers, nil
}

func buildAllocator(cfg *config.GeneralConfig) (Allocator, string, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))

	priority, ok := alg.TaskPriorityByName(cfg.TaskPriority, rng)
	if !ok {
		return nil, "", fmt.Errorf("unknown task priority %q", cfg.TaskPriority)
	}
	selection, ok := alg.ServerSelectionByName(cfg.ServerSelection, cfg.MaximiseSelect, rng)
	if !ok {
		return nil, "", fmt.Errorf("unknown server selection %q", cfg.ServerSelection)
	}
	allocation, ok := alg.ResourceAllocationByName(cfg.ResourceAllocation)
	if !ok {
		return nil, "", fmt.Errorf("unknown resource allocation %q", cfg.ResourceAllocation)
	}

	switch cfg.Algorithm {
	case "greedy":
		return func(tasks []*model.Task, servers []*model.Server) (*model.Result, error) {
			return alg.Greedy(tasks, servers, priority, selection, allocation)
		}, "greedy", nil
	case "auction":
		limit := time.Duration(cfg.AuctionLimitMs) * time.Millisecond
		return func(tasks []*model.Task, servers []*model.Server) (*model.Result, error) {
			return alg.DecentralisedIterativeAuction(tasks, servers, limit)
		}, "decentralised iterative auction", nil
	case "critical":
		return func(tasks []*model.Task, servers []*model.Server) (*model.Result, error) {
			return alg.CriticalValueAuction(tasks, servers, priority, selection, allocation)
		}, "critical value auction", nil
	}

	return nil, "", fmt.Errorf("unknown algorithm %q", cfg.Algorithm)
}

func writeReport(path string, result *model.Result) error {
	content, err := json.MarshalIndent(result, "", " ")
	if err != nil {
		return fmt.Errorf("could not encode report: %w", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("could not write report: %w", err)
	}

	return nil
}

// Serve answers bridge requests with the given result until the request
// stream closes. Run it in its own goroutine alongside the gui.
func Serve(bridge Bridge, result *model.Result) {
	for range bridge.ResultRequestStream {
		bridge.ResultStream <- result
	}
}
