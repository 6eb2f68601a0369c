package health

import (
	"context"
	"fmt"
	"runtime"
)

// RuntimeCheckerConfig configures the heap budget check.
type RuntimeCheckerConfig struct {
	// HeapBudget is the expected heap ceiling in bytes. Zero reports usage
	// without judging it.
	HeapBudget uint64

	// WarnRatio of HeapBudget degrades the check. Default: 0.8
	WarnRatio float64

	// CriticalRatio of HeapBudget fails the check. Default: 0.95
	CriticalRatio float64
}

type runtimeChecker struct {
	config RuntimeCheckerConfig
	read   func(*runtime.MemStats)
}

// NewRuntimeChecker watches heap usage. The recipe cache lives on the heap,
// so its growth shows up here first.
func NewRuntimeChecker(config RuntimeCheckerConfig) Checker {
	if config.WarnRatio <= 0 || config.WarnRatio >= 1 {
		config.WarnRatio = 0.8
	}
	if config.CriticalRatio <= config.WarnRatio || config.CriticalRatio > 1 {
		config.CriticalRatio = max(0.95, config.WarnRatio)
	}
	return runtimeChecker{config: config, read: runtime.ReadMemStats}
}

func (r runtimeChecker) Name() string { return "runtime" }

func (r runtimeChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context done", err)
	}

	var st runtime.MemStats
	r.read(&st)
	details := map[string]any{
		"heap_alloc_bytes": st.HeapAlloc,
		"heap_objects":     st.HeapObjects,
		"num_gc":           st.NumGC,
		"goroutines":       runtime.NumGoroutine(),
	}
	if r.config.HeapBudget == 0 {
		return Healthy(fmt.Sprintf("heap %d MiB", st.HeapAlloc>>20)).WithDetails(details)
	}

	ratio := float64(st.HeapAlloc) / float64(r.config.HeapBudget)
	details["heap_budget_bytes"] = r.config.HeapBudget
	details["usage_percent"] = ratio * 100
	msg := fmt.Sprintf("heap at %.1f%% of budget", ratio*100)
	switch {
	case ratio >= r.config.CriticalRatio:
		return Unhealthy(msg, ErrCheckFailed).WithDetails(details)
	case ratio >= r.config.WarnRatio:
		return Degraded(msg).WithDetails(details)
	default:
		return Healthy(msg).WithDetails(details)
	}
}
