package alg

import (
	"math"
	"math/rand"

	"github.com/ahellier/flexalloc/internal/model"
)

// TaskPriority orders tasks before greedy processing. Higher is processed
// earlier. Ties are broken by stable input order.
type TaskPriority interface {
	Name() string
	Evaluate(task *model.Task) float64
}

// Inverter is implemented by priorities whose density can be translated
// back into a task value, used by critical value pricing.
type Inverter interface {
	Inverse(task *model.Task, density float64) float64
}

func resourceSum(task *model.Task) float64 {
	return float64(task.RequiredStorage + task.RequiredComputation + task.RequiredResultsData)
}

// ResourceSumPriority orders by total resource demand.
type ResourceSumPriority struct{}

func (ResourceSumPriority) Name() string { return "resource sum" }

func (ResourceSumPriority) Evaluate(task *model.Task) float64 { return resourceSum(task) }

// ResourceProductPriority orders by the product of resource demands.
type ResourceProductPriority struct{}

func (ResourceProductPriority) Name() string { return "resource product" }

func (ResourceProductPriority) Evaluate(task *model.Task) float64 {
	return float64(task.RequiredStorage) * float64(task.RequiredComputation) * float64(task.RequiredResultsData)
}

// UtilityPerResources is the classic value density: value per unit of
// total demand.
type UtilityPerResources struct{}

func (UtilityPerResources) Name() string { return "utility per resources" }

func (UtilityPerResources) Evaluate(task *model.Task) float64 {
	return task.Value / resourceSum(task)
}

func (UtilityPerResources) Inverse(task *model.Task, density float64) float64 {
	return density * resourceSum(task)
}

// UtilityPerSqrtResources softens the demand penalty with a square root.
type UtilityPerSqrtResources struct{}

func (UtilityPerSqrtResources) Name() string { return "utility per sqrt resources" }

func (UtilityPerSqrtResources) Evaluate(task *model.Task) float64 {
	return task.Value / math.Sqrt(resourceSum(task))
}

func (UtilityPerSqrtResources) Inverse(task *model.Task, density float64) float64 {
	return density * math.Sqrt(resourceSum(task))
}

// UtilityDeadlinePerResource weighs urgent valuable tasks higher.
type UtilityDeadlinePerResource struct{}

func (UtilityDeadlinePerResource) Name() string { return "utility deadline per resource" }

func (UtilityDeadlinePerResource) Evaluate(task *model.Task) float64 {
	return task.Value * float64(task.Deadline) / resourceSum(task)
}

func (UtilityDeadlinePerResource) Inverse(task *model.Task, density float64) float64 {
	return density * resourceSum(task) / float64(task.Deadline)
}

// ValuePriority orders by value alone.
type ValuePriority struct{}

func (ValuePriority) Name() string { return "value" }

func (ValuePriority) Evaluate(task *model.Task) float64 { return task.Value }

func (ValuePriority) Inverse(task *model.Task, density float64) float64 { return density }

// RandomPriority shuffles, evaluation only. The generator is injected so
// runs stay reproducible.
type RandomPriority struct {
	Rand *rand.Rand
}

func (RandomPriority) Name() string { return "random" }

func (p RandomPriority) Evaluate(task *model.Task) float64 { return p.Rand.Float64() }

// TaskPriorityByName resolves a config name to a policy.
func TaskPriorityByName(name string, rng *rand.Rand) (TaskPriority, bool) {
	switch name {
	case "utility per resources", "":
		return UtilityPerResources{}, true
	case "utility per sqrt resources":
		return UtilityPerSqrtResources{}, true
	case "utility deadline per resource":
		return UtilityDeadlinePerResource{}, true
	case "resource sum":
		return ResourceSumPriority{}, true
	case "resource product":
		return ResourceProductPriority{}, true
	case "value":
		return ValuePriority{}, true
	case "random":
		return RandomPriority{Rand: rng}, true
	}
	return nil, false
}
