package reconciler

import (
	"context"
	"time"
)

// Health is the externally reported sync status.
type Health struct {
	// Healthy is false when the newest audit entry records a failure.
	Healthy bool `json:"isHealthy"`
	// LastSync is the timestamp of the newest audit entry, nil before the first one.
	LastSync *time.Time `json:"lastSync"`
	// ActiveBlocks is the number of lesson blocks open right now.
	ActiveBlocks int  `json:"activeBlocks"`
	CachedGroups int  `json:"cachedGroups"`
	Running      bool `json:"running"`
}

// HealthStatus derives the sync status from the newest audit entry and the clock.
func (r *Reconciler) HealthStatus(ctx context.Context) (Health, error) {
	h := Health{
		Healthy:      true,
		CachedGroups: r.cache.Len(),
		Running:      r.Running(),
	}

	now := r.now()
	if _, school := r.cal.Day(now); school {
		h.ActiveBlocks = len(r.cal.ActiveBlocks(now))
	}

	logs, err := r.store.RecentSyncLogs(ctx, 1)
	if err != nil {
		return h, err
	}

	if len(logs) > 0 {
		ts := logs[0].Timestamp
		h.LastSync = &ts
		h.Healthy = logs[0].Success
	}

	return h, nil
}
