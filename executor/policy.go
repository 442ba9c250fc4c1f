package executor

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Policy decides which worker receives a submitted unit.
type Policy int

const (
	// RoundRobin cycles through workers in order.
	RoundRobin Policy = iota
	// ShortestQueue picks the worker with the fewest queued units, lowest
	// index first on ties.
	ShortestQueue
)

func (p Policy) String() string {
	switch p {
	case ShortestQueue:
		return "shortest_queue"
	default:
		return "round_robin"
	}
}

// ParsePolicy maps a configuration value to a policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "round_robin", "roundrobin":
		return RoundRobin, nil
	case "shortest_queue", "shortestqueue":
		return ShortestQueue, nil
	default:
		return RoundRobin, fmt.Errorf("unknown assignment policy: %s", s)
	}
}

func (p Policy) pick(depths []int, counter *atomic.Uint64) int {
	n := len(depths)
	if p == ShortestQueue {
		best := 0
		for i := 1; i < n; i++ {
			if depths[i] < depths[best] {
				best = i
			}
		}
		return best
	}
	return int((counter.Add(1) - 1) % uint64(n))
}
