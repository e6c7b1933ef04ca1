package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/booking"
)

func newTestDriver(t *testing.T) *Driver {
	t.Helper()
	d, err := NewDriver("driver-1", "LIC-123", booking.VehicleEconomy)
	require.NoError(t, err)
	return d
}

func TestNewDriverDefaults(t *testing.T) {
	d := newTestDriver(t)
	assert.Equal(t, StatusOffline, d.Status)
	assert.Equal(t, 5.0, d.Rating)
	assert.Zero(t, d.TotalRides)
}

func TestAvailabilityTransitions(t *testing.T) {
	d := newTestDriver(t)

	// BUSY is only reachable from ONLINE
	assert.ErrorIs(t, d.MarkBusy(), ErrInvalidStatusSwitch)

	require.NoError(t, d.MarkOnline())
	assert.Equal(t, StatusOnline, d.Status)
	assert.True(t, d.Status.Available())

	require.NoError(t, d.MarkBusy())
	assert.Equal(t, StatusBusy, d.Status)
	assert.False(t, d.Status.Available())

	// back online after a completed or cancelled booking
	require.NoError(t, d.MarkOnline())
	assert.Equal(t, StatusOnline, d.Status)

	require.NoError(t, d.GoOffline())
	assert.Equal(t, StatusOffline, d.Status)
	assert.ErrorIs(t, d.GoOffline(), ErrInvalidStatusSwitch)
}

func TestApplyEarnings(t *testing.T) {
	d := newTestDriver(t)

	require.NoError(t, d.ApplyEarnings(1, 1200))
	assert.Equal(t, 1, d.TotalRides)
	assert.Equal(t, 1200.0, d.TotalEarnings)

	assert.ErrorIs(t, d.ApplyEarnings(-1, 0), ErrNegativeTotals)
	assert.ErrorIs(t, d.ApplyEarnings(0, -5), ErrNegativeTotals)
}
