package model

import "fmt"

// ServerTaskAllocation commits an allocation on both sides, leaving the
// model untouched when either side rejects it.
func ServerTaskAllocation(server *Server, task *Task, loading, compute, sending int, price float64) error {
	if err := task.Allocate(loading, compute, sending, server, price); err != nil {
		return err
	}
	if err := server.AllocateTask(task); err != nil {
		task.ResetAllocation(true)
		return err
	}

	return nil
}

// ResetModel clears every task's allocation fields and restores every
// server to its initial state, required between independent algorithm runs
// on the same task and server set. Prices survive when forgetPrices is
// false.
func ResetModel(tasks []*Task, servers []*Server, forgetPrices bool) {
	for _, task := range tasks {
		task.ResetAllocation(forgetPrices)
	}
	for _, server := range servers {
		server.ResetAllocations()
	}
}

// SetServerHeuristics applies uniform auction price parameters to a server
// set before a run.
func SetServerHeuristics(servers []*Server, priceChange, initialPrice float64) error {
	if priceChange <= 0 {
		return fmt.Errorf("%w: price change must be positive, got %f", ErrInvalidConfig, priceChange)
	}
	if initialPrice < 0 {
		return fmt.Errorf("%w: initial price must be non-negative, got %f", ErrInvalidConfig, initialPrice)
	}

	for _, server := range servers {
		server.PriceChange = priceChange
		server.InitialPrice = initialPrice
		server.Price = initialPrice
	}

	return nil
}

// TotalValue is the sum of every task's value, allocated or not.
func TotalValue(tasks []*Task) float64 {
	var total float64
	for _, task := range tasks {
		total += task.Value
	}
	return total
}

// SocialWelfare is the sum of value over the allocated tasks.
func SocialWelfare(tasks []*Task) float64 {
	var welfare float64
	for _, task := range tasks {
		if task.RunningServer != nil {
			welfare += task.Value
		}
	}
	return welfare
}
