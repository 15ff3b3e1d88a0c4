package scanning

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nvestad/portsleuth/internal/logging"
)

// ProbeFunc probes a single port and returns its result.
type ProbeFunc func(ctx context.Context, port int) PortScanResult

// ResultFunc receives each result as it completes. Delivery order is
// completion order, not port order; callbacks may run concurrently from
// multiple workers and must be safe for that.
type ResultFunc func(PortScanResult)

// Executor runs a probe over a port list. Every port yields exactly one
// result and the returned slice is ordered by port number regardless of how
// execution interleaved.
type Executor interface {
	Execute(ctx context.Context, ports []int, probe ProbeFunc, onResult ResultFunc) []PortScanResult
}

// NewExecutor selects the executor for a configuration.
func NewExecutor(cfg *ScanConfig) Executor {
	if cfg.Parallel {
		return &parallelExecutor{workers: cfg.ThreadCount}
	}
	return &sequentialExecutor{}
}

// sequentialExecutor probes ports one at a time in list order.
type sequentialExecutor struct{}

func (e *sequentialExecutor) Execute(ctx context.Context, ports []int, probe ProbeFunc, onResult ResultFunc) []PortScanResult {
	results := make([]PortScanResult, 0, len(ports))
	for _, port := range ports {
		result := safeProbe(ctx, probe, port)
		if onResult != nil {
			onResult(result)
		}
		results = append(results, result)
	}
	sortByPort(results)
	return results
}

// parallelExecutor fans ports out to a bounded worker pool. Workers pull from
// a shared jobs channel, so a slow port never stalls the rest of the list.
type parallelExecutor struct {
	workers int
}

func (e *parallelExecutor) Execute(ctx context.Context, ports []int, probe ProbeFunc, onResult ResultFunc) []PortScanResult {
	workers := e.workers
	if workers > len(ports) {
		workers = len(ports)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	results := make([]PortScanResult, 0, len(ports))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for port := range jobs {
				result := safeProbe(ctx, probe, port)
				if onResult != nil {
					onResult(result)
				}
				mu.Lock()
				results = append(results, result)
				mu.Unlock()
			}
		}()
	}

	for _, port := range ports {
		jobs <- port
	}
	close(jobs)
	wg.Wait()

	sortByPort(results)
	return results
}

// safeProbe runs the probe with panic containment: a panicking probe becomes
// an error result for its port instead of taking down the scan.
func safeProbe(ctx context.Context, probe ProbeFunc, port int) (result PortScanResult) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Probe panicked", "port", port, "panic", r)
			result = PortScanResult{
				Port:   port,
				Status: StatusError,
				Error:  fmt.Sprintf("probe panicked: %v", r),
			}
		}
	}()
	return probe(ctx, port)
}

func sortByPort(results []PortScanResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Port < results[j].Port
	})
}
