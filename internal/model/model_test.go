package model_test

import (
	"errors"
	"testing"

	"github.com/ahellier/flexalloc/internal/model"
	"github.com/ahellier/flexalloc/internal/model/testing_tool"
)

func TestNewTaskValidation(t *testing.T) {
	cases := []struct {
		name        string
		storage     int
		computation int
		resultsData int
		deadline    int
		value       float64
	}{
		{"zero storage", 0, 10, 10, 10, 1},
		{"negative computation", 10, -1, 10, 10, 1},
		{"zero results data", 10, 10, 0, 10, 1},
		{"zero deadline", 10, 10, 10, 0, 1},
		{"zero value", 10, 10, 10, 10, 0},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := model.NewTask("bad", c.storage, c.computation, c.resultsData, c.deadline, c.value, 0)
			if !errors.Is(err, model.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestAllocationLedger(t *testing.T) {
	builder := testing_tool.New()
	server := builder.GetServer(testing_tool.ServerDesc{Name: "alpha", Storage: 500, Computation: 600, Bandwidth: 250})
	task := builder.GetTask(testing_tool.TaskDesc{Name: "job", Storage: 100, Computation: 100, ResultsData: 50, Deadline: 10, Value: 20})

	// 100/50 + 100/25 + 50/25 = 8 <= 10.
	if !task.FitsDeadline(50, 25, 25) {
		t.Fatal("speeds (50, 25, 25) should meet the deadline")
	}

	if err := model.ServerTaskAllocation(server, task, 50, 25, 25, 0); err != nil {
		t.Fatalf("allocation failed: %v", err)
	}
	testing_tool.ExpectInvariants([]*model.Server{server})

	if task.RunningServer != server {
		t.Fatalf("task runs on %v, want %s", task.RunningServer, server.Name)
	}
	if server.AvailableStorage != 400 || server.AvailableComputation != 575 || server.AvailableBandwidth != 175 {
		t.Fatalf("ledger after allocation is (%d, %d, %d), want (400, 575, 175)",
			server.AvailableStorage, server.AvailableComputation, server.AvailableBandwidth)
	}

	if !server.RemoveTask(task) {
		t.Fatal("task was hosted, removal should succeed")
	}
	testing_tool.ExpectInvariants([]*model.Server{server})
	if server.AvailableStorage != 500 || server.AvailableComputation != 600 || server.AvailableBandwidth != 250 {
		t.Fatal("removal should return the task's resources")
	}
	if server.RemoveTask(task) {
		t.Fatal("removing a task twice should report not hosted")
	}
}

func TestAllocationRollsBackOnServerReject(t *testing.T) {
	builder := testing_tool.New()
	server := builder.GetServer(testing_tool.ServerDesc{Storage: 500, Computation: 600, Bandwidth: 250})
	first := builder.GetTask(testing_tool.TaskDesc{Storage: 100, Computation: 100, ResultsData: 50, Deadline: 10, Value: 20})
	second := builder.GetTask(testing_tool.TaskDesc{Storage: 450, Computation: 100, ResultsData: 50, Deadline: 100, Value: 20})

	if err := model.ServerTaskAllocation(server, first, 50, 25, 25, 0); err != nil {
		t.Fatalf("first allocation failed: %v", err)
	}

	// 450 > 400 available storage, the commit must fail on the server side
	// and leave the task side clean.
	if err := model.ServerTaskAllocation(server, second, 50, 25, 25, 0); err == nil {
		t.Fatal("over-committing storage should fail")
	}
	if second.RunningServer != nil {
		t.Fatal("failed commit should roll back the task side")
	}
	if second.LoadingSpeed != 0 || second.ComputeSpeed != 0 || second.SendingSpeed != 0 {
		t.Fatal("failed commit should clear the task's speeds")
	}
	testing_tool.ExpectInvariants([]*model.Server{server})
}

func TestAllocateRejectsMissedDeadline(t *testing.T) {
	builder := testing_tool.New()
	server := builder.GetServer(testing_tool.ServerDesc{Storage: 500, Computation: 600, Bandwidth: 250})
	task := builder.GetTask(testing_tool.TaskDesc{Storage: 100, Computation: 100, ResultsData: 50, Deadline: 10, Value: 20})

	if err := task.Allocate(1, 1, 1, server, 0); err == nil {
		t.Fatal("speeds (1, 1, 1) take 250 time units against deadline 10, allocation must fail")
	}
	if task.RunningServer != nil {
		t.Fatal("failed allocation should not set the running server")
	}
}

func TestResetModel(t *testing.T) {
	builder := testing_tool.New()
	server := builder.GetServer(testing_tool.ServerDesc{Storage: 500, Computation: 600, Bandwidth: 250, InitialPrice: 3})
	task := builder.GetTask(testing_tool.TaskDesc{Storage: 100, Computation: 100, ResultsData: 50, Deadline: 10, Value: 20})

	if err := model.ServerTaskAllocation(server, task, 50, 25, 25, 7); err != nil {
		t.Fatalf("allocation failed: %v", err)
	}
	server.Price = 11

	model.ResetModel([]*model.Task{task}, []*model.Server{server}, false)
	if task.RunningServer != nil || task.LoadingSpeed != 0 {
		t.Fatal("reset should clear the allocation")
	}
	if task.Price != 7 {
		t.Fatalf("reset with forgetPrices=false should keep the price, got %f", task.Price)
	}
	if server.AvailableStorage != 500 || server.Price != 3 || server.Revenue != 0 {
		t.Fatal("reset should restore the server's initial state")
	}

	model.ResetModel([]*model.Task{task}, []*model.Server{server}, true)
	if task.Price != 0 {
		t.Fatalf("reset with forgetPrices=true should clear the price, got %f", task.Price)
	}
}

func TestCanRun(t *testing.T) {
	builder := testing_tool.New()
	server := builder.GetServer(testing_tool.ServerDesc{Storage: 500, Computation: 600, Bandwidth: 250})

	feasible := builder.GetTask(testing_tool.TaskDesc{Storage: 100, Computation: 100, ResultsData: 50, Deadline: 10, Value: 20})
	if !server.CanRun(feasible) {
		t.Fatal("task should be runnable on an empty server")
	}

	tooBig := builder.GetTask(testing_tool.TaskDesc{Storage: 501, Computation: 100, ResultsData: 50, Deadline: 10, Value: 20})
	if server.CanRun(tooBig) {
		t.Fatal("storage demand above capacity should fail the pre-check")
	}

	// The best split spends at least 1.33 deadline fractions, so no triple
	// can finish within a deadline of 1.
	urgent := builder.GetTask(testing_tool.TaskDesc{Storage: 100, Computation: 100, ResultsData: 50, Deadline: 1, Value: 20})
	if server.CanRun(urgent) {
		t.Fatal("task with an unmeetable deadline should not be runnable")
	}
}

func TestCanRunAgainstAvailability(t *testing.T) {
	builder := testing_tool.New()
	server := builder.GetServer(testing_tool.ServerDesc{Storage: 150, Computation: 600, Bandwidth: 250})
	tasks := builder.GetTasks([]testing_tool.TaskDesc{
		{Name: "first", Storage: 100, Computation: 100, ResultsData: 50, Deadline: 10, Value: 20},
		{Name: "second", Storage: 100, Computation: 100, ResultsData: 50, Deadline: 10, Value: 20},
	})

	if err := model.ServerTaskAllocation(server, tasks[0], 50, 25, 25, 0); err != nil {
		t.Fatalf("allocation failed: %v", err)
	}
	if server.CanRun(tasks[1]) {
		t.Fatal("50 remaining storage cannot host a 100 storage task")
	}

	server.RemoveTask(tasks[0])
	if !server.CanRun(tasks[1]) {
		t.Fatal("removal should make the task runnable again")
	}
}

func TestSetServerHeuristics(t *testing.T) {
	builder := testing_tool.New()
	servers := builder.GetServers([]testing_tool.ServerDesc{
		{Storage: 500, Computation: 600, Bandwidth: 250},
		{Storage: 300, Computation: 200, Bandwidth: 100},
	})

	if err := model.SetServerHeuristics(servers, 0, 1); !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("non-positive price change should be rejected, got %v", err)
	}
	if err := model.SetServerHeuristics(servers, 2, -1); !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("negative initial price should be rejected, got %v", err)
	}

	if err := model.SetServerHeuristics(servers, 2, 1); err != nil {
		t.Fatalf("valid price parameters rejected: %v", err)
	}
	for _, server := range servers {
		if server.PriceChange != 2 || server.InitialPrice != 1 || server.Price != 1 {
			t.Fatalf("server %s price parameters not applied", server.Name)
		}
	}
}

func TestTaskBatch(t *testing.T) {
	builder := testing_tool.New()
	task := builder.GetTask(testing_tool.TaskDesc{Storage: 100, Computation: 100, ResultsData: 50, Deadline: 10, Value: 20, AuctionTime: 2})

	batched := task.Batch(5)
	if batched.Deadline != 7 {
		t.Fatalf("waiting 3 steps should shrink deadline 10 to 7, got %d", batched.Deadline)
	}
	if batched.AuctionTime != 2 || batched.Value != 20 || batched.RequiredStorage != 100 {
		t.Fatal("batching should only touch the deadline")
	}
	if task.Deadline != 10 {
		t.Fatal("batching must not mutate the source task")
	}
}

func TestExpireTasks(t *testing.T) {
	builder := testing_tool.New()
	server := builder.GetServer(testing_tool.ServerDesc{Storage: 500, Computation: 600, Bandwidth: 400})
	early := builder.GetTask(testing_tool.TaskDesc{Name: "early", Storage: 100, Computation: 100, ResultsData: 50, Deadline: 3, Value: 20, AuctionTime: 0})
	late := builder.GetTask(testing_tool.TaskDesc{Name: "late", Storage: 100, Computation: 100, ResultsData: 50, Deadline: 8, Value: 20, AuctionTime: 0})

	// 100/100 + 100/100 + 50/50 = 3 and 100/25 + 100/50 + 50/25 = 8.
	if err := model.ServerTaskAllocation(server, early, 100, 100, 50, 0); err != nil {
		t.Fatalf("allocation failed: %v", err)
	}
	if err := model.ServerTaskAllocation(server, late, 25, 50, 25, 0); err != nil {
		t.Fatalf("allocation failed: %v", err)
	}

	expired := server.ExpireTasks(3)
	if len(expired) != 1 || expired[0] != early {
		t.Fatalf("only the deadline-3 task should expire at time step 3, got %v", expired)
	}
	if len(server.AllocatedTasks) != 1 || server.AllocatedTasks[0] != late {
		t.Fatal("the deadline-8 task should survive")
	}
	testing_tool.ExpectInvariants([]*model.Server{server})
	if server.AvailableStorage != 400 || server.AvailableComputation != 550 || server.AvailableBandwidth != 350 {
		t.Fatalf("ledger after expiry is (%d, %d, %d), want (400, 550, 350)",
			server.AvailableStorage, server.AvailableComputation, server.AvailableBandwidth)
	}
}

func TestSocialWelfare(t *testing.T) {
	builder := testing_tool.New()
	server := builder.GetServer(testing_tool.ServerDesc{Storage: 500, Computation: 600, Bandwidth: 250})
	tasks := builder.GetTasks([]testing_tool.TaskDesc{
		{Storage: 100, Computation: 100, ResultsData: 50, Deadline: 10, Value: 20},
		{Storage: 100, Computation: 100, ResultsData: 50, Deadline: 10, Value: 30},
	})

	if got := model.TotalValue(tasks); got != 50 {
		t.Fatalf("total value is %f, want 50", got)
	}
	if got := model.SocialWelfare(tasks); got != 0 {
		t.Fatalf("welfare with nothing allocated is %f, want 0", got)
	}

	if err := model.ServerTaskAllocation(server, tasks[1], 50, 25, 25, 0); err != nil {
		t.Fatalf("allocation failed: %v", err)
	}
	if got := model.SocialWelfare(tasks); got != 30 {
		t.Fatalf("welfare is %f, want 30", got)
	}
}

func TestSuperServer(t *testing.T) {
	builder := testing_tool.New()
	servers := builder.GetServers([]testing_tool.ServerDesc{
		{Storage: 500, Computation: 600, Bandwidth: 250, PriceChange: 2, InitialPrice: 1},
		{Storage: 300, Computation: 200, Bandwidth: 100, PriceChange: 2, InitialPrice: 0},
		{Storage: 200, Computation: 200, Bandwidth: 150, PriceChange: 5, InitialPrice: 0},
	})

	super := model.NewSuperServer(servers)
	if super.StorageCapacity != 1000 || super.ComputationCapacity != 1000 || super.BandwidthCapacity != 500 {
		t.Fatalf("super server capacities are (%d, %d, %d), want (1000, 1000, 500)",
			super.StorageCapacity, super.ComputationCapacity, super.BandwidthCapacity)
	}
	if super.AvailableStorage != 1000 {
		t.Fatal("super server should start empty")
	}
	if super.PriceChange != 2 {
		t.Fatalf("modal price change is %f, want 2", super.PriceChange)
	}
	if super.InitialPrice != 0 {
		t.Fatalf("modal initial price is %f, want 0", super.InitialPrice)
	}
}
