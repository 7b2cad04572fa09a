// Model ingestion: literal JSON models and probability weighted gaussian
// distributions. The random source is injected so evaluation runs stay
// reproducible.
package gen

import (
	"encoding/json"
	"fmt"
	"os"

	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ahellier/flexalloc/internal/model"
)

type TaskSpec struct {
	Name        string  `json:"name"`
	Storage     int     `json:"storage"`
	Computation int     `json:"computation"`
	ResultsData int     `json:"results_data"`
	Deadline    int     `json:"deadline"`
	Value       float64 `json:"value"`
	AuctionTime int     `json:"auction_time"`
}

type ServerSpec struct {
	Name         string  `json:"name"`
	Storage      int     `json:"storage"`
	Computation  int     `json:"computation"`
	Bandwidth    int     `json:"bandwidth"`
	PriceChange  float64 `json:"price_change"`
	InitialPrice float64 `json:"initial_price"`
}

type ModelSpec struct {
	Name    string       `json:"name"`
	Tasks   []TaskSpec   `json:"tasks"`
	Servers []ServerSpec `json:"servers"`
}

// LoadModel reads a literal model file into tasks and servers.
func LoadModel(path string) ([]*model.Task, []*model.Server, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("could not read model file: %w", err)
	}

	var spec ModelSpec
	if err := json.Unmarshal(content, &spec); err != nil {
		return nil, nil, fmt.Errorf("could not parse model file: %w", err)
	}

	tasks := make([]*model.Task, 0, len(spec.Tasks))
	for _, taskSpec := range spec.Tasks {
		task, err := model.NewTask(taskSpec.Name, taskSpec.Storage, taskSpec.Computation,
			taskSpec.ResultsData, taskSpec.Deadline, taskSpec.Value, taskSpec.AuctionTime)
		if err != nil {
			return nil, nil, err
		}
		tasks = append(tasks, task)
	}

	servers := make([]*model.Server, 0, len(spec.Servers))
	for _, serverSpec := range spec.Servers {
		server, err := model.NewServer(serverSpec.Name, serverSpec.Storage,
			serverSpec.Computation, serverSpec.Bandwidth)
		if err != nil {
			return nil, nil, err
		}
		if serverSpec.PriceChange > 0 {
			server.PriceChange = serverSpec.PriceChange
		}
		server.InitialPrice = serverSpec.InitialPrice
		server.Price = serverSpec.InitialPrice
		servers = append(servers, server)
	}

	return tasks, servers, nil
}

type TaskDistribution struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`

	StorageMean     float64 `json:"storage_mean"`
	StorageStd      float64 `json:"storage_std"`
	ComputationMean float64 `json:"computation_mean"`
	ComputationStd  float64 `json:"computation_std"`
	ResultsDataMean float64 `json:"results_data_mean"`
	ResultsDataStd  float64 `json:"results_data_std"`
	DeadlineMean    float64 `json:"deadline_mean"`
	DeadlineStd     float64 `json:"deadline_std"`
	ValueMean       float64 `json:"value_mean"`
	ValueStd        float64 `json:"value_std"`
}

type ServerDistribution struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`

	StorageMean     float64 `json:"storage_mean"`
	StorageStd      float64 `json:"storage_std"`
	ComputationMean float64 `json:"computation_mean"`
	ComputationStd  float64 `json:"computation_std"`
	BandwidthMean   float64 `json:"bandwidth_mean"`
	BandwidthStd    float64 `json:"bandwidth_std"`
}

type ModelDistribution struct {
	Name        string               `json:"name"`
	TaskDists   []TaskDistribution   `json:"task_dists"`
	ServerDists []ServerDistribution `json:"server_dists"`
}

func LoadDistribution(path string) (*ModelDistribution, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read distribution file: %w", err)
	}

	var dist ModelDistribution
	if err := json.Unmarshal(content, &dist); err != nil {
		return nil, fmt.Errorf("could not parse distribution file: %w", err)
	}
	if len(dist.TaskDists) == 0 || len(dist.ServerDists) == 0 {
		return nil, fmt.Errorf("distribution %s needs at least one task and one server distribution", dist.Name)
	}

	return &dist, nil
}

// positiveGaussian draws from a gaussian clamped to at least 1, resource
// demands and capacities are positive integers.
func positiveGaussian(mean, std float64, src exprand.Source) int {
	normal := distuv.Normal{Mu: mean, Sigma: std, Src: src}
	value := int(normal.Rand())
	if value < 1 {
		return 1
	}
	return value
}

func positiveGaussianFloat(mean, std float64, src exprand.Source) float64 {
	normal := distuv.Normal{Mu: mean, Sigma: std, Src: src}
	value := normal.Rand()
	if value < 1 {
		return 1
	}
	return value
}

// Create draws numTasks tasks and numServers servers, each entity sampled
// from the distribution picked by the probability weights.
func (dist *ModelDistribution) Create(numTasks, numServers int, seed uint64) ([]*model.Task, []*model.Server, error) {
	src := exprand.NewSource(seed)
	uniform := exprand.New(src)

	tasks := make([]*model.Task, 0, numTasks)
	for pos := 0; pos < numTasks; pos++ {
		taskDist := dist.TaskDists[0]
		prob := uniform.Float64()
		for _, candidate := range dist.TaskDists {
			if prob < candidate.Probability {
				taskDist = candidate
				break
			}
			prob -= candidate.Probability
		}

		task, err := model.NewTask(
			fmt.Sprintf("%s %d", taskDist.Name, pos),
			positiveGaussian(taskDist.StorageMean, taskDist.StorageStd, src),
			positiveGaussian(taskDist.ComputationMean, taskDist.ComputationStd, src),
			positiveGaussian(taskDist.ResultsDataMean, taskDist.ResultsDataStd, src),
			positiveGaussian(taskDist.DeadlineMean, taskDist.DeadlineStd, src),
			positiveGaussianFloat(taskDist.ValueMean, taskDist.ValueStd, src),
			0,
		)
		if err != nil {
			return nil, nil, err
		}
		tasks = append(tasks, task)
	}

	servers := make([]*model.Server, 0, numServers)
	for pos := 0; pos < numServers; pos++ {
		serverDist := dist.ServerDists[0]
		prob := uniform.Float64()
		for _, candidate := range dist.ServerDists {
			if prob < candidate.Probability {
				serverDist = candidate
				break
			}
			prob -= candidate.Probability
		}

		server, err := model.NewServer(
			fmt.Sprintf("%s %d", serverDist.Name, pos),
			positiveGaussian(serverDist.StorageMean, serverDist.StorageStd, src),
			positiveGaussian(serverDist.ComputationMean, serverDist.ComputationStd, src),
			positiveGaussian(serverDist.BandwidthMean, serverDist.BandwidthStd, src),
		)
		if err != nil {
			return nil, nil, err
		}
		servers = append(servers, server)
	}

	return tasks, servers, nil
}

// SpreadArrivals assigns uniform random arrival times in [0, timeSteps) to
// a generated task set, for online evaluation.
func SpreadArrivals(tasks []*model.Task, timeSteps int, seed uint64) {
	uniform := exprand.New(exprand.NewSource(seed))
	for _, task := range tasks {
		task.AuctionTime = uniform.Intn(timeSteps)
	}
}
