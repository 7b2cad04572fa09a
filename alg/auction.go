package alg

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/emirpasic/gods/trees/binaryheap"

	"github.com/ahellier/flexalloc/internal/model"
	"github.com/ahellier/flexalloc/statistics"
)

// AuctionStatus is the terminal state of an auction run. Hitting the time
// limit is not an error, the partial allocation is returned as is.
type AuctionStatus string

const (
	AuctionConverged AuctionStatus = "converged"
	AuctionTimedOut  AuctionStatus = "timed out"
)

type bid struct {
	task   *model.Task
	speeds Speeds
}

// auctionPricing is the cost bids are solved against: the fraction of the
// server's free computation and bandwidth a triple consumes, weighted by
// how much of the deadline budget it actually uses. Frugal triples keep
// capacity open for later rounds instead of draining a server per task.
type auctionPricing struct{}

func (auctionPricing) Name() string { return "deadline weighted consumption" }

func (auctionPricing) Cost(task *model.Task, server *model.Server, loading, compute, sending int) float64 {
	return SumPercentage{}.Cost(task, server, loading, compute, sending) *
		DeadlinePercent{}.Cost(task, server, loading, compute, sending)
}

// DecentralisedIterativeAuction runs the price based multi-round protocol:
// every unallocated task bids on the server maximising its net value, each
// server accepts the highest value bidders it can fit, evicting its lowest
// value tasks when oversubscribed and raising its price. The loop ends
// when a full round changes nothing, or when the time limit elapses
// between rounds (a round in progress always completes).
//
// After convergence every hosted task is charged its critical value: the
// highest value among the competitors its server turned away (or the
// server's initial price if it turned none away), capped by the task's own
// value.
func DecentralisedIterativeAuction(tasks []*model.Task, servers []*model.Server,
	timeLimit time.Duration) (*model.Result, error) {
	startTime := time.Now()

	for _, server := range servers {
		if server.PriceChange <= 0 {
			return nil, fmt.Errorf("%w: server %s has non-positive price change %f",
				model.ErrInvalidConfig, server.Name, server.PriceChange)
		}
		server.Price = server.InitialPrice
	}

	taskIndex := make(map[*model.Task]int, len(tasks))
	for i, task := range tasks {
		taskIndex[task] = i
	}

	// lost collects, per server, every task the server rejected or evicted
	// over the whole run. Only tasks that end the auction unallocated count
	// towards critical values.
	lost := make(map[*model.Server][]*model.Task)

	status := AuctionConverged
	rounds := 0
	for {
		changed := auctionRound(tasks, servers, taskIndex, lost)
		rounds++
		statistics.Change("auction rounds", 1)

		if !changed {
			break
		}
		if timeLimit > 0 && time.Since(startTime) >= timeLimit {
			status = AuctionTimedOut
			break
		}
	}

	chargeCriticalValues(servers, taskIndex, lost)

	log.Debug().Msgf("auction %s after %d rounds, social welfare %f",
		status, rounds, model.SocialWelfare(tasks))

	result := model.NewResult("decentralised iterative auction", tasks, servers,
		time.Since(startTime).Seconds(), false, true)
	result.Status = string(status)
	result.Rounds = rounds

	return result, nil
}

// auctionRound runs one bidding plus price-update phase and reports
// whether anything changed. Bid evaluation is pure, all commits happen in
// server input order so runs are reproducible.
func auctionRound(tasks []*model.Task, servers []*model.Server,
	taskIndex map[*model.Task]int, lost map[*model.Server][]*model.Task) bool {
	pricing := auctionPricing{}

	bids := make(map[*model.Server][]bid)
	for _, task := range tasks {
		if task.RunningServer != nil {
			continue
		}

		var bestServer *model.Server
		var bestSpeeds Speeds
		bestNet := 0.0

		for _, server := range servers {
			if !server.CanRun(task) {
				continue
			}
			speeds, ok := MinCostSpeeds(task, server, pricing.Cost)
			if !ok {
				continue
			}
			statistics.Change("auction bid evaluations", 1)

			// Strictly better only, ties keep the earlier server.
			net := task.Value - server.Price*normalizedCost(task, server, speeds)
			if net > bestNet {
				bestServer = server
				bestSpeeds = speeds
				bestNet = net
			}
		}

		if bestServer == nil {
			// No positive-utility server, the task abstains this round.
			continue
		}
		bids[bestServer] = append(bids[bestServer], bid{task: task, speeds: bestSpeeds})
		statistics.Change("auction messages", 1)
	}

	changed := false
	for _, server := range servers {
		roundBids := bids[server]
		if len(roundBids) == 0 {
			continue
		}
		if acceptBids(server, roundBids, taskIndex, lost) {
			changed = true
		}
	}

	return changed
}

// acceptBids processes one server's bids for the round, highest task value
// first, evicting the lowest value hosted tasks when a better bidder does
// not fit. Any eviction or rejection is ascending-auction pressure and
// raises the server's price by its price change step.
func acceptBids(server *model.Server, roundBids []bid,
	taskIndex map[*model.Task]int, lost map[*model.Server][]*model.Task) bool {
	sort.Slice(roundBids, func(i, j int) bool {
		if roundBids[i].task.Value != roundBids[j].task.Value {
			return roundBids[i].task.Value > roundBids[j].task.Value
		}
		return taskIndex[roundBids[i].task] < taskIndex[roundBids[j].task]
	})

	// Eviction candidates ordered by (value, input index) ascending.
	hosted := binaryheap.NewWith(func(a, b interface{}) int {
		taskA, taskB := a.(*model.Task), b.(*model.Task)
		if taskA.Value < taskB.Value {
			return -1
		}
		if taskA.Value > taskB.Value {
			return 1
		}
		return taskIndex[taskA] - taskIndex[taskB]
	})
	for _, task := range server.AllocatedTasks {
		// Tasks committed by earlier batch windows are running and cannot
		// be evicted, their capacity is simply unavailable.
		if _, ok := taskIndex[task]; ok {
			hosted.Push(task)
		}
	}

	changed := false
	oversubscribed := false

	for _, b := range roundBids {
		for !fits(server, b) {
			peeked, ok := hosted.Peek()
			if !ok {
				break
			}
			victim := peeked.(*model.Task)
			if victim.Value >= b.task.Value {
				break
			}

			hosted.Pop()
			server.RemoveTask(victim)
			victim.ResetAllocation(true)
			lost[server] = append(lost[server], victim)
			oversubscribed = true
			changed = true
			statistics.Change("auction evictions", 1)
		}

		if fits(server, b) {
			if err := model.ServerTaskAllocation(server, b.task,
				b.speeds.Loading, b.speeds.Compute, b.speeds.Sending, 0); err != nil {
				// fits() guarantees capacity, a failure here is a ledger bug.
				panic(err)
			}
			hosted.Push(b.task)
			changed = true
			statistics.Change("auction acceptances", 1)
		} else {
			lost[server] = append(lost[server], b.task)
			oversubscribed = true
		}
	}

	if oversubscribed {
		server.Price += server.PriceChange
		changed = true
	}

	return changed
}

func fits(server *model.Server, b bid) bool {
	return b.task.RequiredStorage <= server.AvailableStorage &&
		b.speeds.Compute <= server.AvailableComputation &&
		b.speeds.Loading+b.speeds.Sending <= server.AvailableBandwidth
}

// normalizedCost is the fraction of the server's total capacities a triple
// consumes, the multiplier turning a server's price into a charge.
func normalizedCost(task *model.Task, server *model.Server, speeds Speeds) float64 {
	return float64(task.RequiredStorage)/float64(server.StorageCapacity) +
		float64(speeds.Compute)/float64(server.ComputationCapacity) +
		float64(speeds.Loading+speeds.Sending)/float64(server.BandwidthCapacity)
}

// chargeCriticalValues back-derives each winner's price from its server's
// rejection threshold. Tasks that never won keep price zero. Tasks hosted
// from earlier batch windows were charged in their own run and are left
// alone.
func chargeCriticalValues(servers []*model.Server, taskIndex map[*model.Task]int,
	lost map[*model.Server][]*model.Task) {
	for _, server := range servers {
		threshold := server.InitialPrice
		for _, loser := range lost[server] {
			if loser.RunningServer == nil && loser.Value > threshold {
				threshold = loser.Value
			}
		}

		for _, task := range server.AllocatedTasks {
			if _, ok := taskIndex[task]; !ok {
				continue
			}
			price := math.Min(task.Value, threshold)
			if price < 0 {
				price = 0
			}
			task.Price = price
			server.Revenue += price
		}
	}
}
