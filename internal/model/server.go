package model

import (
	"fmt"

	"github.com/ahellier/flexalloc/logging"
)

var log = logging.Get()

// Server owns the authoritative capacity ledger for its three resources.
// The Available* fields always equal the capacity minus the usage summed
// over AllocatedTasks.
type Server struct {
	Name string

	StorageCapacity     int
	ComputationCapacity int
	BandwidthCapacity   int

	AvailableStorage     int
	AvailableComputation int
	AvailableBandwidth   int

	// Auction price state. Price is only meaningful during a run,
	// PriceChange is the step added per oversubscribed round.
	Price        float64
	InitialPrice float64
	PriceChange  float64

	// Revenue is the sum of prices charged to hosted tasks.
	Revenue float64

	AllocatedTasks []*Task
}

func NewServer(name string, storage, computation, bandwidth int) (*Server, error) {
	if storage <= 0 || computation <= 0 || bandwidth <= 0 {
		return nil, fmt.Errorf("%w: server %s needs positive capacities (%d, %d, %d)",
			ErrInvalidConfig, name, storage, computation, bandwidth)
	}

	return &Server{
		Name:                 name,
		StorageCapacity:      storage,
		ComputationCapacity:  computation,
		BandwidthCapacity:    bandwidth,
		AvailableStorage:     storage,
		AvailableComputation: computation,
		AvailableBandwidth:   bandwidth,
		PriceChange:          1,
	}, nil
}

// CanRun is the coarse pre-check plus a feasibility scan: the task's
// storage must fit and there must exist some bandwidth split that meets
// the deadline when the task is given all remaining computation.
func (server *Server) CanRun(task *Task) bool {
	if task.RequiredStorage > server.AvailableStorage ||
		server.AvailableComputation < 1 || server.AvailableBandwidth < 2 {
		return false
	}

	w := server.AvailableComputation
	for s := 1; s < server.AvailableBandwidth; s++ {
		l := server.AvailableBandwidth - s
		if task.RequiredStorage*w*s+l*task.RequiredComputation*s+l*w*task.RequiredResultsData <=
			task.Deadline*l*w*s {
			return true
		}
	}
	return false
}

// AllocateTask updates the server side of an allocation, decrementing the
// availability ledger by the task's committed speeds.
func (server *Server) AllocateTask(task *Task) error {
	if task.LoadingSpeed < 1 || task.ComputeSpeed < 1 || task.SendingSpeed < 1 {
		return fmt.Errorf("task %s has unset speeds (%d, %d, %d)",
			task.Name, task.LoadingSpeed, task.ComputeSpeed, task.SendingSpeed)
	}
	if task.RequiredStorage > server.AvailableStorage {
		return fmt.Errorf("server %s has %d available storage, task %s requires %d",
			server.Name, server.AvailableStorage, task.Name, task.RequiredStorage)
	}
	if task.ComputeSpeed > server.AvailableComputation {
		return fmt.Errorf("server %s has %d available computation, task %s requires %d",
			server.Name, server.AvailableComputation, task.Name, task.ComputeSpeed)
	}
	if task.LoadingSpeed+task.SendingSpeed > server.AvailableBandwidth {
		return fmt.Errorf("server %s has %d available bandwidth, task %s requires %d",
			server.Name, server.AvailableBandwidth, task.Name, task.LoadingSpeed+task.SendingSpeed)
	}
	for _, allocated := range server.AllocatedTasks {
		if allocated == task {
			return fmt.Errorf("task %s is already allocated to server %s", task.Name, server.Name)
		}
	}

	server.AllocatedTasks = append(server.AllocatedTasks, task)
	server.AvailableStorage -= task.RequiredStorage
	server.AvailableComputation -= task.ComputeSpeed
	server.AvailableBandwidth -= task.LoadingSpeed + task.SendingSpeed

	server.Revenue += task.Price

	return nil
}

// RemoveTask drops a task from the ledger and returns its resources,
// reporting whether the task was hosted here.
func (server *Server) RemoveTask(task *Task) bool {
	ind := -1
	for i, allocated := range server.AllocatedTasks {
		if allocated == task {
			ind = i
			break
		}
	}
	if ind == -1 {
		return false
	}

	last := len(server.AllocatedTasks) - 1
	server.AllocatedTasks[ind] = server.AllocatedTasks[last]
	server.AllocatedTasks = server.AllocatedTasks[:last]

	server.AvailableStorage += task.RequiredStorage
	server.AvailableComputation += task.ComputeSpeed
	server.AvailableBandwidth += task.LoadingSpeed + task.SendingSpeed

	server.Revenue -= task.Price

	return true
}

// ExpireTasks drops tasks whose deadline falls at or before the next batch
// time step and recomputes the availability ledger from the survivors.
// The expired tasks keep their allocation fields, they have completed.
func (server *Server) ExpireTasks(nextTimeStep int) []*Task {
	var expired, kept []*Task
	for _, task := range server.AllocatedTasks {
		if task.AuctionTime+task.Deadline <= nextTimeStep {
			expired = append(expired, task)
		} else {
			kept = append(kept, task)
		}
	}

	server.AllocatedTasks = kept
	server.AvailableStorage = server.StorageCapacity
	server.AvailableComputation = server.ComputationCapacity
	server.AvailableBandwidth = server.BandwidthCapacity
	for _, task := range kept {
		server.AvailableStorage -= task.RequiredStorage
		server.AvailableComputation -= task.ComputeSpeed
		server.AvailableBandwidth -= task.LoadingSpeed + task.SendingSpeed
	}

	if len(expired) > 0 {
		log.Debug().Msgf("server %s expired %d tasks before time step %d",
			server.Name, len(expired), nextTimeStep)
	}

	return expired
}

// ResetAllocations restores the server to its initial state.
func (server *Server) ResetAllocations() {
	server.AllocatedTasks = nil

	server.AvailableStorage = server.StorageCapacity
	server.AvailableComputation = server.ComputationCapacity
	server.AvailableBandwidth = server.BandwidthCapacity

	server.Price = server.InitialPrice
	server.Revenue = 0
}

// StorageUsage, ComputationUsage and BandwidthUsage report the used
// fraction of each capacity.
func (server *Server) StorageUsage() float64 {
	return 1 - float64(server.AvailableStorage)/float64(server.StorageCapacity)
}

func (server *Server) ComputationUsage() float64 {
	return 1 - float64(server.AvailableComputation)/float64(server.ComputationCapacity)
}

func (server *Server) BandwidthUsage() float64 {
	return 1 - float64(server.AvailableBandwidth)/float64(server.BandwidthCapacity)
}
