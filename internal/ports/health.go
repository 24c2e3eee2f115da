package ports

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrDuplicateChecker is returned when a checker name is registered twice.
var ErrDuplicateChecker = errors.New("duplicate health checker")

// DefaultCheckTimeout bounds a single check when the caller's context has no earlier deadline.
const DefaultCheckTimeout = 2 * time.Second

// HealthChecker is implemented by components that can report their health.
type HealthChecker interface {
	// Name is unique within a registry.
	Name() string

	// Check returns nil when the component is usable.
	Check(ctx context.Context) error
}

// HealthRegistry aggregates health checks.
type HealthRegistry interface {
	CheckAll(ctx context.Context) *HealthResult
}

// HealthStatus is the overall state of the service.
type HealthStatus string

const (
	HealthStatusHealthy HealthStatus = "healthy"
	// HealthStatusDegraded means only optional checks failed: records can
	// still be read and edited, but sync cycles will fail.
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResult is one aggregated run.
type HealthResult struct {
	Status    HealthStatus            `json:"status"`
	Checks    map[string]*CheckResult `json:"checks"`
	Timestamp time.Time               `json:"timestamp"`
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Up         bool   `json:"up"`
	Critical   bool   `json:"critical"`
	Message    string `json:"message,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type probe struct {
	checker  HealthChecker
	critical bool
}

// CheckRegistry runs registered checks concurrently. A failing critical
// check makes the service unhealthy; a failing optional one degrades it.
type CheckRegistry struct {
	mu      sync.RWMutex
	probes  []probe
	timeout time.Duration
}

// NewHealthRegistry creates an empty registry.
func NewHealthRegistry() *CheckRegistry {
	return &CheckRegistry{timeout: DefaultCheckTimeout}
}

// Register adds a critical check, such as the record store.
func (r *CheckRegistry) Register(checker HealthChecker) error {
	return r.add(probe{checker: checker, critical: true})
}

// RegisterOptional adds a check whose failure only degrades the service,
// such as the remote collection.
func (r *CheckRegistry) RegisterOptional(checker HealthChecker) error {
	return r.add(probe{checker: checker})
}

func (r *CheckRegistry) add(p probe) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.probes {
		if existing.checker.Name() == p.checker.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateChecker, p.checker.Name())
		}
	}

	r.probes = append(r.probes, p)

	return nil
}

// CheckAll runs every check, each bounded by the registry timeout.
func (r *CheckRegistry) CheckAll(ctx context.Context) *HealthResult {
	r.mu.RLock()
	probes := append([]probe(nil), r.probes...)
	r.mu.RUnlock()

	results := make([]*CheckResult, len(probes))

	var g errgroup.Group
	for i, p := range probes {
		g.Go(func() error {
			results[i] = r.run(ctx, p)
			return nil
		})
	}

	_ = g.Wait()

	out := &HealthResult{
		Status:    HealthStatusHealthy,
		Checks:    make(map[string]*CheckResult, len(probes)),
		Timestamp: time.Now().UTC(),
	}

	for i, p := range probes {
		res := results[i]
		out.Checks[p.checker.Name()] = res

		switch {
		case res.Up:
		case res.Critical:
			out.Status = HealthStatusUnhealthy
		case out.Status == HealthStatusHealthy:
			out.Status = HealthStatusDegraded
		}
	}

	return out
}

func (r *CheckRegistry) run(ctx context.Context, p probe) *CheckResult {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	err := p.checker.Check(ctx)

	res := &CheckResult{Up: err == nil, Critical: p.critical, DurationMS: time.Since(start).Milliseconds()}
	if err != nil {
		res.Message = err.Error()
	}

	return res
}
