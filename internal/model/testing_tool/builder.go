// Because it is a testing package, no errors are returned,
// all problems cause a panic.

package testing_tool

import (
	"fmt"

	"github.com/ahellier/flexalloc/internal/model"
)

type TaskDesc struct {
	Name        string
	Storage     int
	Computation int
	ResultsData int
	Deadline    int
	Value       float64
	AuctionTime int
}

type ServerDesc struct {
	Name         string
	Storage      int
	Computation  int
	Bandwidth    int
	PriceChange  float64
	InitialPrice float64
}

type Builder struct {
	lastTaskId   int
	lastServerId int
}

func New() *Builder {
	return &Builder{}
}

func (builder *Builder) GetTask(desc TaskDesc) *model.Task {
	name := desc.Name
	if name == "" {
		name = fmt.Sprintf("task %d", builder.lastTaskId)
	}
	builder.lastTaskId += 1

	task, err := model.NewTask(name, desc.Storage, desc.Computation, desc.ResultsData,
		desc.Deadline, desc.Value, desc.AuctionTime)
	if err != nil {
		panic(err)
	}

	return task
}

func (builder *Builder) GetTasks(descs []TaskDesc) []*model.Task {
	tasks := make([]*model.Task, 0, len(descs))
	for _, desc := range descs {
		tasks = append(tasks, builder.GetTask(desc))
	}

	return tasks
}

func (builder *Builder) GetServer(desc ServerDesc) *model.Server {
	name := desc.Name
	if name == "" {
		name = fmt.Sprintf("server %d", builder.lastServerId)
	}
	builder.lastServerId += 1

	server, err := model.NewServer(name, desc.Storage, desc.Computation, desc.Bandwidth)
	if err != nil {
		panic(err)
	}
	if desc.PriceChange > 0 {
		server.PriceChange = desc.PriceChange
	}
	server.InitialPrice = desc.InitialPrice
	server.Price = desc.InitialPrice

	return server
}

func (builder *Builder) GetServers(descs []ServerDesc) []*model.Server {
	servers := make([]*model.Server, 0, len(descs))
	for _, desc := range descs {
		servers = append(servers, builder.GetServer(desc))
	}

	return servers
}

// ExpectAllocations panics unless exactly the tasks named in want are
// allocated, each on the named server. Unnamed servers mean "anywhere".
func ExpectAllocations(tasks []*model.Task, want map[string]string) {
	got := make(map[string]string)
	for _, task := range tasks {
		if task.RunningServer != nil {
			got[task.Name] = task.RunningServer.Name
		}
	}

	for taskName, serverName := range want {
		gotServer, ok := got[taskName]
		if !ok {
			panic(fmt.Errorf("expected task %s to be allocated, but it wasn't", taskName))
		}
		if serverName != "" && gotServer != serverName {
			panic(fmt.Errorf("expected task %s on server %s, got %s", taskName, serverName, gotServer))
		}
		delete(got, taskName)
	}

	if len(got) != 0 {
		panic(fmt.Errorf("more tasks allocated than expected: %v", got))
	}
}

// ExpectInvariants panics unless every server's availability ledger matches
// its capacities minus the usage of its allocated tasks.
func ExpectInvariants(servers []*model.Server) {
	for _, server := range servers {
		storage, computation, bandwidth := 0, 0, 0
		for _, task := range server.AllocatedTasks {
			storage += task.RequiredStorage
			computation += task.ComputeSpeed
			bandwidth += task.LoadingSpeed + task.SendingSpeed
		}

		checkLedger(server.Name, "storage", server.StorageCapacity, server.AvailableStorage, storage)
		checkLedger(server.Name, "computation", server.ComputationCapacity, server.AvailableComputation, computation)
		checkLedger(server.Name, "bandwidth", server.BandwidthCapacity, server.AvailableBandwidth, bandwidth)
	}
}

func checkLedger(serverName, resource string, capacity, available, used int) {
	if available != capacity-used {
		panic(fmt.Errorf("server %s %s ledger mismatch: capacity %d, available %d, used %d",
			serverName, resource, capacity, available, used))
	}
	if available < 0 || available > capacity {
		panic(fmt.Errorf("server %s available %s %d out of [0, %d]",
			serverName, resource, available, capacity))
	}
}
