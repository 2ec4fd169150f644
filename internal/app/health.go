package app

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// HealthCheckTimeout bounds all probes together.
const HealthCheckTimeout = 2 * time.Second

// HealthProbe checks one backing dependency.
type HealthProbe interface {
	Name() string
	Check(ctx context.Context) error
}

// ComponentStatus is the health of a single dependency.
type ComponentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthReport aggregates probe results.
type HealthReport struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentStatus `json:"components,omitempty"`
}

// Healthy reports whether every probe passed.
func (r HealthReport) Healthy() bool {
	return r.Status == "healthy"
}

// probeFunc adapts a function to HealthProbe.
type probeFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func (p probeFunc) Name() string                    { return p.name }
func (p probeFunc) Check(ctx context.Context) error { return p.fn(ctx) }

// NewProbe wraps fn as a HealthProbe.
func NewProbe(name string, fn func(ctx context.Context) error) HealthProbe {
	return probeFunc{name: name, fn: fn}
}

// HealthProbes returns a probe for each configured backend.
func (a *App) HealthProbes() []HealthProbe {
	var probes []HealthProbe
	if a.Pool != nil {
		probes = append(probes, NewProbe("postgres", a.Pool.Ping))
	}
	if a.redisPing != nil {
		probes = append(probes, NewProbe("redis", a.redisPing))
	}
	return probes
}

// CheckHealth runs probes concurrently under HealthCheckTimeout. A probe
// that panics or does not finish in time is reported unhealthy.
func CheckHealth(ctx context.Context, probes []HealthProbe) HealthReport {
	if len(probes) == 0 {
		return HealthReport{Status: "healthy"}
	}

	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]error, len(probes))
		wg      sync.WaitGroup
	)
	for _, probe := range probes {
		wg.Add(1)
		go func(p HealthProbe) {
			defer wg.Done()

			var err error
			func() {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("probe panicked: %v", r)
					}
				}()
				err = p.Check(ctx)
			}()

			mu.Lock()
			results[p.Name()] = err
			mu.Unlock()
		}(probe)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()

	report := HealthReport{Status: "healthy", Components: make(map[string]ComponentStatus, len(probes))}
	for _, probe := range probes {
		name := probe.Name()
		err, ok := results[name]
		switch {
		case !ok:
			report.Status = "unhealthy"
			report.Components[name] = ComponentStatus{Status: "unhealthy", Message: "health check timed out"}
		case err != nil:
			report.Status = "unhealthy"
			report.Components[name] = ComponentStatus{Status: "unhealthy", Message: err.Error()}
		default:
			report.Components[name] = ComponentStatus{Status: "healthy"}
		}
	}
	return report
}
