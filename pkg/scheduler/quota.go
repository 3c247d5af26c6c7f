// Package scheduler sits in front of actor.WorkerActor: it enforces
// per-tenant resource quotas and consults the RBAC/guardrail policy layer
// before a step is allowed to reach a pool, and resets quota counters on a
// cron schedule.
package scheduler

import (
	"sync"
)

// TenantQuota is the per-tenant ceiling spec.md §4.7 describes: a memory
// budget and a cpu-time budget, both reset periodically.
type TenantQuota struct {
	MaxMemoryBytes int64
	MaxCPUTimeMs   int64
}

// tenantUsage tracks consumption against a TenantQuota since the last reset.
type tenantUsage struct {
	memoryBytes int64
	cpuTimeMs   int64
}

// QuotaTracker enforces TenantQuota ceilings across concurrent submissions.
type QuotaTracker struct {
	mu           sync.Mutex
	quotas       map[string]TenantQuota
	usage        map[string]*tenantUsage
	defaultQuota TenantQuota
}

// NewQuotaTracker builds a tracker. defaultQuota applies to any tenant with
// no explicit override.
func NewQuotaTracker(defaultQuota TenantQuota) *QuotaTracker {
	return &QuotaTracker{
		quotas:       map[string]TenantQuota{},
		usage:        map[string]*tenantUsage{},
		defaultQuota: defaultQuota,
	}
}

// SetQuota overrides the quota for a specific tenant.
func (q *QuotaTracker) SetQuota(tenantID string, quota TenantQuota) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.quotas[tenantID] = quota
}

// Reserve attempts to charge memoryBytes/cpuTimeMs against tenantID's
// remaining quota. It reports false if either ceiling would be exceeded,
// making no change in that case.
func (q *QuotaTracker) Reserve(tenantID string, memoryBytes, cpuTimeMs int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	quota, ok := q.quotas[tenantID]
	if !ok {
		quota = q.defaultQuota
	}

	usage, ok := q.usage[tenantID]
	if !ok {
		usage = &tenantUsage{}
		q.usage[tenantID] = usage
	}

	if quota.MaxMemoryBytes > 0 && usage.memoryBytes+memoryBytes > quota.MaxMemoryBytes {
		return false
	}

	if quota.MaxCPUTimeMs > 0 && usage.cpuTimeMs+cpuTimeMs > quota.MaxCPUTimeMs {
		return false
	}

	usage.memoryBytes += memoryBytes
	usage.cpuTimeMs += cpuTimeMs

	return true
}

// Release gives back memoryBytes/cpuTimeMs against tenantID's usage, called
// once a step completes so its resources no longer count toward the quota.
func (q *QuotaTracker) Release(tenantID string, memoryBytes, cpuTimeMs int64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	usage, ok := q.usage[tenantID]
	if !ok {
		return
	}

	usage.memoryBytes -= memoryBytes
	if usage.memoryBytes < 0 {
		usage.memoryBytes = 0
	}

	usage.cpuTimeMs -= cpuTimeMs
	if usage.cpuTimeMs < 0 {
		usage.cpuTimeMs = 0
	}
}

// ResetAll zeroes every tenant's usage counters. Called periodically by the
// scheduler's cron job.
func (q *QuotaTracker) ResetAll() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for tenantID := range q.usage {
		q.usage[tenantID] = &tenantUsage{}
	}
}
