package model

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// NewSuperServer builds a synthetic server whose capacities are the sums of
// the given set's capacities and whose price parameters are the set's
// statistical mode. It is a relaxation used only for upper-bound
// comparison, never on the live allocation path.
func NewSuperServer(servers []*Server) *Server {
	var storage, computation, bandwidth int
	priceChanges := make([]float64, 0, len(servers))
	initialPrices := make([]float64, 0, len(servers))

	for _, server := range servers {
		storage += server.StorageCapacity
		computation += server.ComputationCapacity
		bandwidth += server.BandwidthCapacity
		priceChanges = append(priceChanges, server.PriceChange)
		initialPrices = append(initialPrices, server.InitialPrice)
	}

	super := &Server{
		Name:                 "super server",
		StorageCapacity:      storage,
		ComputationCapacity:  computation,
		BandwidthCapacity:    bandwidth,
		AvailableStorage:     storage,
		AvailableComputation: computation,
		AvailableBandwidth:   bandwidth,
		PriceChange:          1,
	}

	if len(servers) > 0 {
		super.PriceChange = mode(priceChanges)
		super.InitialPrice = mode(initialPrices)
		super.Price = super.InitialPrice
	}

	return super
}

// stat.Mode expects its input sorted ascending.
func mode(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	value, _ := stat.Mode(sorted, nil)
	return value
}
