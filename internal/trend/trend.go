// Package trend computes period-over-period metric movement from
// persisted snapshots.
package trend

import (
	"context"
	"fmt"
	"time"

	"github.com/shopify-ad-intelligence/adbrain/internal/domain"
	"github.com/shopify-ad-intelligence/adbrain/internal/metrics"
)

// Service derives trend deltas for a tenant from the snapshot store.
type Service struct {
	repo domain.Repository
}

// NewService creates a new trend service.
func NewService(repo domain.Repository) *Service {
	return &Service{repo: repo}
}

// Deltas compares the newest snapshot in the lookback window against
// the oldest one, using the same percent-change formula as the metric
// comparator. A single snapshot degrades to a zero-change result and
// an empty window yields nil; neither is an error.
func (s *Service) Deltas(ctx context.Context, tenantID string, lookback time.Duration) (map[string]domain.MetricDelta, error) {
	since := time.Now().Add(-lookback)

	snaps, err := s.repo.ListSnapshots(ctx, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	if len(snaps) == 0 {
		return nil, nil
	}

	// Snapshots are ordered oldest first.
	oldest := metrics.Compute(snaps[0].Raw)
	newest := metrics.Compute(snaps[len(snaps)-1].Raw)

	return metrics.Compare(newest, oldest), nil
}
