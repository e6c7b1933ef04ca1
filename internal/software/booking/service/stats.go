package service

import (
	"context"
	"fmt"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/locking"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/ports"
)

// GetLockStatistics returns every currently held lock with its remaining TTL.
// Pure read path for monitoring; never mutates lock state.
func (service *bookingService) GetLockStatistics(ctx context.Context) ([]locking.ActiveLock, error) {
	locks, err := service.locks.ListActiveLocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active locks: %w", ports.ErrStoreUnavailable)
	}
	return locks, nil
}
