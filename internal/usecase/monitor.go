package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/codingiran/applicationskit/internal/domain"
)

// DefaultWatchInterval is how often the monitor rescans.
const DefaultWatchInterval = 5 * time.Minute

// ChangeFunc receives the applications added and removed between two
// consecutive scans.
type ChangeFunc func(added, removed []domain.Application)

// Monitor periodically rediscovers a root directory and reports
// inventory changes.
type Monitor struct {
	discovery *DiscoveryService
	root      string
	interval  time.Duration
	onChange  ChangeFunc // optional
	logger    *zap.Logger
}

// NewMonitor creates a monitor. interval <= 0 uses the default.
func NewMonitor(discovery *DiscoveryService, root string, interval time.Duration, onChange ChangeFunc, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	return &Monitor{
		discovery: discovery,
		root:      root,
		interval:  interval,
		onChange:  onChange,
		logger:    logger,
	}
}

// Run scans once immediately, then on every tick until the context is
// canceled. Scan failures are logged and the previous baseline kept.
func (m *Monitor) Run(ctx context.Context) error {
	baseline, err := m.scan(ctx)
	if err != nil {
		return err
	}
	m.logger.Info("watch baseline established",
		zap.String("root", m.root), zap.Int("apps", len(baseline)))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			current, err := m.scan(ctx)
			if err != nil {
				m.logger.Warn("rescan failed, keeping previous baseline", zap.Error(err))
				continue
			}
			added, removed := diffInventories(baseline, current)
			for _, app := range added {
				m.logger.Info("application added",
					zap.String("path", app.Path),
					zap.String("bundle_id", app.BundleIdentifier),
					zap.String("version", app.Version))
			}
			for _, app := range removed {
				m.logger.Info("application removed",
					zap.String("path", app.Path),
					zap.String("bundle_id", app.BundleIdentifier))
			}
			if m.onChange != nil && (len(added) > 0 || len(removed) > 0) {
				m.onChange(added, removed)
			}
			baseline = current
		}
	}
}

func (m *Monitor) scan(ctx context.Context) (map[string]domain.Application, error) {
	apps, err := m.discovery.Discover(ctx, m.root)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]domain.Application, len(apps))
	for _, app := range apps {
		byKey[app.Key()] = app
	}
	return byKey, nil
}

func diffInventories(before, after map[string]domain.Application) (added, removed []domain.Application) {
	for key, app := range after {
		if _, ok := before[key]; !ok {
			added = append(added, app)
		}
	}
	for key, app := range before {
		if _, ok := after[key]; !ok {
			removed = append(removed, app)
		}
	}
	return added, removed
}
