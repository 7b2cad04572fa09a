package alg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahellier/flexalloc/internal/model"
	"github.com/ahellier/flexalloc/internal/model/testing_tool"
)

func TestGreedyPrefersDenserTasks(t *testing.T) {
	builder := testing_tool.New()
	// Storage fits exactly one of the two tasks, whichever ranks higher.
	servers := builder.GetServers([]testing_tool.ServerDesc{
		{Name: "only", Storage: 150, Computation: 50, Bandwidth: 40},
	})
	tasks := builder.GetTasks([]testing_tool.TaskDesc{
		{Name: "cheap", Storage: 100, Computation: 20, ResultsData: 20, Deadline: 10, Value: 90},
		{Name: "dear", Storage: 100, Computation: 20, ResultsData: 20, Deadline: 10, Value: 100},
	})

	result, err := Greedy(tasks, servers, UtilityPerResources{}, NewSumResources(true), SumPercentage{})
	require.NoError(t, err)

	testing_tool.ExpectAllocations(tasks, map[string]string{"dear": "only"})
	testing_tool.ExpectInvariants(servers)
	assert.Equal(t, 100.0, result.SocialWelfare)
	assert.InDelta(t, 100.0/190.0, result.SocialWelfarePercent, 1e-9)
	assert.Equal(t, 0.5, result.PercentTasksAllocated)
}

func TestGreedySpreadsAcrossServers(t *testing.T) {
	builder := testing_tool.New()
	servers := builder.GetServers([]testing_tool.ServerDesc{
		{Name: "north", Storage: 150, Computation: 50, Bandwidth: 40},
		{Name: "south", Storage: 150, Computation: 50, Bandwidth: 40},
	})
	tasks := builder.GetTasks([]testing_tool.TaskDesc{
		{Name: "one", Storage: 100, Computation: 20, ResultsData: 20, Deadline: 10, Value: 90},
		{Name: "two", Storage: 100, Computation: 20, ResultsData: 20, Deadline: 10, Value: 100},
	})

	_, err := Greedy(tasks, servers, UtilityPerResources{}, NewSumResources(true), SumPercentage{})
	require.NoError(t, err)

	// Each server's storage fits one task, both tasks win somewhere.
	testing_tool.ExpectAllocations(tasks, map[string]string{"one": "", "two": ""})
	testing_tool.ExpectInvariants(servers)
	assert.NotEqual(t, tasks[0].RunningServer, tasks[1].RunningServer)
}

func TestGreedySkipsInfeasibleTasks(t *testing.T) {
	builder := testing_tool.New()
	servers := builder.GetServers([]testing_tool.ServerDesc{
		{Name: "only", Storage: 150, Computation: 50, Bandwidth: 40},
	})
	tasks := builder.GetTasks([]testing_tool.TaskDesc{
		// The urgent task ranks first on value density but cannot meet its
		// deadline anywhere, the sweep must move on instead of failing.
		{Name: "urgent", Storage: 100, Computation: 20, ResultsData: 20, Deadline: 1, Value: 500},
		{Name: "calm", Storage: 100, Computation: 20, ResultsData: 20, Deadline: 10, Value: 90},
	})

	result, err := Greedy(tasks, servers, UtilityPerResources{}, NewSumResources(true), SumPercentage{})
	require.NoError(t, err)

	testing_tool.ExpectAllocations(tasks, map[string]string{"calm": "only"})
	assert.Equal(t, 90.0, result.SocialWelfare)
}

func TestGreedyIsRepeatable(t *testing.T) {
	builder := testing_tool.New()
	servers := builder.GetServers([]testing_tool.ServerDesc{
		{Name: "north", Storage: 300, Computation: 60, Bandwidth: 80},
		{Name: "south", Storage: 200, Computation: 40, Bandwidth: 60},
	})
	tasks := builder.GetTasks([]testing_tool.TaskDesc{
		{Name: "a", Storage: 100, Computation: 20, ResultsData: 20, Deadline: 10, Value: 90},
		{Name: "b", Storage: 120, Computation: 25, ResultsData: 10, Deadline: 12, Value: 100},
		{Name: "c", Storage: 80, Computation: 30, ResultsData: 15, Deadline: 9, Value: 60},
		{Name: "d", Storage: 150, Computation: 10, ResultsData: 30, Deadline: 15, Value: 110},
	})

	_, err := Greedy(tasks, servers, UtilityPerResources{}, NewSumResources(true), SumPercentage{})
	require.NoError(t, err)

	type snapshot struct {
		server string
		speeds Speeds
	}
	first := make(map[string]snapshot)
	for _, task := range tasks {
		if task.RunningServer != nil {
			first[task.Name] = snapshot{
				server: task.RunningServer.Name,
				speeds: Speeds{Loading: task.LoadingSpeed, Compute: task.ComputeSpeed, Sending: task.SendingSpeed},
			}
		}
	}
	require.NotEmpty(t, first)

	model.ResetModel(tasks, servers, true)
	_, err = Greedy(tasks, servers, UtilityPerResources{}, NewSumResources(true), SumPercentage{})
	require.NoError(t, err)

	for _, task := range tasks {
		want, won := first[task.Name]
		if !won {
			assert.Nil(t, task.RunningServer, "task %s should stay unallocated on a rerun", task.Name)
			continue
		}
		require.NotNil(t, task.RunningServer, "task %s should win again on a rerun", task.Name)
		assert.Equal(t, want.server, task.RunningServer.Name)
		assert.Equal(t, want.speeds, Speeds{Loading: task.LoadingSpeed, Compute: task.ComputeSpeed, Sending: task.SendingSpeed})
	}
	testing_tool.ExpectInvariants(servers)
}

func TestGreedyDoesNotMutateInputOrder(t *testing.T) {
	builder := testing_tool.New()
	servers := builder.GetServers([]testing_tool.ServerDesc{
		{Name: "only", Storage: 300, Computation: 60, Bandwidth: 80},
	})
	tasks := builder.GetTasks([]testing_tool.TaskDesc{
		{Name: "low", Storage: 100, Computation: 20, ResultsData: 20, Deadline: 10, Value: 10},
		{Name: "high", Storage: 100, Computation: 20, ResultsData: 20, Deadline: 10, Value: 100},
	})

	_, err := Greedy(tasks, servers, ValuePriority{}, NewSumResources(true), SumPercentage{})
	require.NoError(t, err)

	assert.Equal(t, "low", tasks[0].Name, "the caller's slice order must survive the ranked copy")
	assert.Equal(t, "high", tasks[1].Name)
}

func TestPolicyLookupByName(t *testing.T) {
	priority, ok := TaskPriorityByName("", nil)
	require.True(t, ok)
	assert.Equal(t, "utility per resources", priority.Name())

	_, ok = TaskPriorityByName("no such policy", nil)
	assert.False(t, ok)

	selection, ok := ServerSelectionByName("product resources", true, nil)
	require.True(t, ok)
	assert.Equal(t, "product resources", selection.Name())

	_, ok = ServerSelectionByName("no such policy", true, nil)
	assert.False(t, ok)

	allocation, ok := ResourceAllocationByName("sum of speeds")
	require.True(t, ok)
	assert.Equal(t, "sum of speeds", allocation.Name())

	_, ok = ResourceAllocationByName("no such policy")
	assert.False(t, ok)
}
