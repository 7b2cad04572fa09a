// Run-wide counters for the allocation algorithms, e.g. the number of
// auction rounds, bids and evictions. Safe to use from parallel bid
// evaluation, commits still go through the single round loop.
package statistics

import (
	"fmt"
	"sync"
)

type statisticsData struct {
	dataMap map[string]int

	mutex sync.Mutex
}

var stats = &statisticsData{
	dataMap: make(map[string]int),
}

// Reset clears every counter, used between independent algorithm runs.
func Reset() {
	stats.mutex.Lock()
	defer stats.mutex.Unlock()

	stats.dataMap = make(map[string]int)
}

func Set(key string, value int) {
	stats.mutex.Lock()
	defer stats.mutex.Unlock()

	stats.dataMap[key] = value
}

func Change(key string, value int) {
	stats.mutex.Lock()
	defer stats.mutex.Unlock()

	stats.dataMap[key] += value
}

func Get(key string) int {
	stats.mutex.Lock()
	defer stats.mutex.Unlock()

	return stats.dataMap[key]
}

func Display() string {
	stats.mutex.Lock()
	defer stats.mutex.Unlock()

	result := "Statistics results are:\n"
	for key, value := range stats.dataMap {
		result += fmt.Sprintf("Number of %s is %d\n", key, value)
	}

	return result
}
