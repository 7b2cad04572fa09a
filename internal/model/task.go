package model

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig marks configuration-time invariant violations, surfaced
// before any allocation work mutates state.
var ErrInvalidConfig = errors.New("invalid configuration")

// Task is a divisible unit of work with a three phase lifecycle: load the
// required storage onto a server, compute over it, send the results back.
// The demand fields are fixed at construction, only the allocation fields
// change afterwards.
type Task struct {
	Name string

	RequiredStorage     int
	RequiredComputation int
	RequiredResultsData int

	// Deadline is the time budget to run all three phases.
	Deadline int

	// Value is the utility gained if the task is allocated, Price is the
	// amount actually charged by an auction (zero when unallocated or
	// allocated by a non-auction algorithm).
	Value float64
	Price float64

	// AuctionTime is the arrival time step, used by online batching.
	AuctionTime int

	// Allocation fields, set together by Allocate.
	LoadingSpeed  int
	ComputeSpeed  int
	SendingSpeed  int
	RunningServer *Server
}

func NewTask(name string, storage, computation, resultsData, deadline int, value float64, auctionTime int) (*Task, error) {
	if storage <= 0 || computation <= 0 || resultsData <= 0 {
		return nil, fmt.Errorf("%w: task %s needs positive resource demands (%d, %d, %d)",
			ErrInvalidConfig, name, storage, computation, resultsData)
	}
	if deadline <= 0 {
		return nil, fmt.Errorf("%w: task %s needs a positive deadline, got %d", ErrInvalidConfig, name, deadline)
	}
	if value <= 0 {
		return nil, fmt.Errorf("%w: task %s needs a positive value, got %f", ErrInvalidConfig, name, value)
	}

	return &Task{
		Name:                name,
		RequiredStorage:     storage,
		RequiredComputation: computation,
		RequiredResultsData: resultsData,
		Deadline:            deadline,
		Value:               value,
		AuctionTime:         auctionTime,
	}, nil
}

// FitsDeadline reports whether the speed triple finishes all three phases
// within the task's deadline. The inequality is the deadline constraint
// cleared of fractions so the check stays in exact integer arithmetic.
func (task *Task) FitsDeadline(loading, compute, sending int) bool {
	timeTaken := task.RequiredStorage*compute*sending +
		loading*task.RequiredComputation*sending +
		loading*compute*task.RequiredResultsData
	return timeTaken <= task.Deadline*loading*compute*sending
}

// Allocate sets the task side of an allocation. The server side is updated
// separately by Server.AllocateTask, use ServerTaskAllocation to commit
// both together.
func (task *Task) Allocate(loading, compute, sending int, server *Server, price float64) error {
	if loading < 1 || compute < 1 || sending < 1 {
		return fmt.Errorf("task %s allocated non-positive speeds (%d, %d, %d)",
			task.Name, loading, compute, sending)
	}
	if !task.FitsDeadline(loading, compute, sending) {
		return fmt.Errorf("task %s misses deadline %d with speeds (%d, %d, %d)",
			task.Name, task.Deadline, loading, compute, sending)
	}
	if task.RunningServer != nil {
		return fmt.Errorf("task %s is already allocated to %s", task.Name, task.RunningServer.Name)
	}

	task.LoadingSpeed = loading
	task.ComputeSpeed = compute
	task.SendingSpeed = sending
	task.RunningServer = server
	if price > 0 {
		task.Price = price
	}

	return nil
}

// ResetAllocation clears the allocation fields. The price survives when
// forgetPrice is false so critical values can be inspected after a run.
func (task *Task) ResetAllocation(forgetPrice bool) {
	task.LoadingSpeed = 0
	task.ComputeSpeed = 0
	task.SendingSpeed = 0
	task.RunningServer = nil

	if forgetPrice {
		task.Price = 0
	}
}

// Utility is the task's net gain, value minus the price charged.
func (task *Task) Utility() float64 {
	return task.Value - task.Price
}

// Batch returns a copy of the task rebased onto a batch that starts
// processing at timeStep, shrinking the deadline by the waiting time. The
// copy bypasses NewTask validation on purpose: a task whose remaining
// budget has gone non-positive is simply infeasible everywhere.
func (task *Task) Batch(timeStep int) *Task {
	return &Task{
		Name:                task.Name,
		RequiredStorage:     task.RequiredStorage,
		RequiredComputation: task.RequiredComputation,
		RequiredResultsData: task.RequiredResultsData,
		Deadline:            task.Deadline - (timeStep - task.AuctionTime),
		Value:               task.Value,
		AuctionTime:         task.AuctionTime,
	}
}
