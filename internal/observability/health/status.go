package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// HealthStatus represents the health status
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// CheckFunc probes one component. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

// HealthResult represents the result of a health check
type HealthResult struct {
	Status   HealthStatus `json:"status"`
	Critical bool         `json:"critical"`
	Message  string       `json:"message,omitempty"`
	Duration string       `json:"duration"`
}

// SystemStatus represents overall health
type SystemStatus struct {
	OverallStatus  HealthStatus            `json:"status"`
	Checks         map[string]HealthResult `json:"checks"`
	CriticalIssues []string                `json:"critical_issues,omitempty"`
	Timestamp      time.Time               `json:"timestamp"`
	Uptime         string                  `json:"uptime"`
}

type registeredCheck struct {
	check    CheckFunc
	critical bool
}

// HealthMonitor runs registered component checks on demand. A failing
// critical check makes the system unhealthy, any other failure degraded.
type HealthMonitor struct {
	logger    *logrus.Logger
	clock     clockwork.Clock
	timeout   time.Duration
	startTime time.Time

	mu     sync.RWMutex
	checks map[string]registeredCheck
}

// NewHealthMonitor creates a monitor whose checks are each bounded by timeout
func NewHealthMonitor(timeout time.Duration, clock clockwork.Clock, logger *logrus.Logger) *HealthMonitor {
	if logger == nil {
		logger = logrus.New()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HealthMonitor{
		logger:    logger,
		clock:     clock,
		timeout:   timeout,
		startTime: clock.Now(),
		checks:    make(map[string]registeredCheck),
	}
}

// RegisterCheck adds or replaces the named check
func (hm *HealthMonitor) RegisterCheck(name string, critical bool, check CheckFunc) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	hm.checks[name] = registeredCheck{check: check, critical: critical}
	hm.logger.WithField("check", name).Debug("Registered health check")
}

// Check runs every registered check concurrently and aggregates the results
func (hm *HealthMonitor) Check(ctx context.Context) *SystemStatus {
	hm.mu.RLock()
	checks := make(map[string]registeredCheck, len(hm.checks))
	for name, c := range hm.checks {
		checks[name] = c
	}
	hm.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		resMu   sync.Mutex
		results = make(map[string]HealthResult, len(checks))
	)
	for name, c := range checks {
		wg.Add(1)
		go func(name string, c registeredCheck) {
			defer wg.Done()
			result := hm.execute(ctx, name, c)
			resMu.Lock()
			results[name] = result
			resMu.Unlock()
		}(name, c)
	}
	wg.Wait()

	status := &SystemStatus{
		OverallStatus:  StatusHealthy,
		Checks:         results,
		CriticalIssues: make([]string, 0),
		Timestamp:      hm.clock.Now().UTC(),
		Uptime:         hm.clock.Since(hm.startTime).Round(time.Second).String(),
	}
	for name, r := range results {
		if r.Status == StatusHealthy {
			continue
		}
		if r.Critical {
			status.OverallStatus = StatusUnhealthy
			status.CriticalIssues = append(status.CriticalIssues, name)
		} else if status.OverallStatus == StatusHealthy {
			status.OverallStatus = StatusDegraded
		}
	}
	sort.Strings(status.CriticalIssues)

	return status
}

func (hm *HealthMonitor) execute(ctx context.Context, name string, c registeredCheck) HealthResult {
	checkCtx, cancel := context.WithTimeout(ctx, hm.timeout)
	defer cancel()

	start := hm.clock.Now()
	err := c.check(checkCtx)
	result := HealthResult{
		Status:   StatusHealthy,
		Critical: c.critical,
		Duration: hm.clock.Since(start).String(),
	}

	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
		hm.logger.WithFields(logrus.Fields{
			"check":    name,
			"critical": c.critical,
		}).WithError(err).Warn("Health check failed")
	}

	return result
}
