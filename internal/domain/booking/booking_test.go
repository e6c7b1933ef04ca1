package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBooking(t *testing.T) *Booking {
	t.Helper()
	b, err := NewBooking("BOOK_20250101_000000_001", "rider-1", VehicleEconomy,
		40.7580, -73.9855, "Times Square",
		40.6413, -73.7781, "JFK Airport")
	require.NoError(t, err)
	return b
}

func TestNewBookingStartsPending(t *testing.T) {
	b := newTestBooking(t)

	assert.Equal(t, StatusPending, b.Status)
	assert.Nil(t, b.DriverID)
	assert.Greater(t, b.EstimatedFare, 0.0)
	assert.False(t, b.RequestedAt.IsZero())
}

func TestNewBookingValidation(t *testing.T) {
	_, err := NewBooking("", "rider-1", VehicleEconomy, 0, 0, "", 1, 1, "")
	assert.ErrorIs(t, err, ErrBookingNumberRequired)

	_, err = NewBooking("BOOK_1", "  ", VehicleEconomy, 0, 0, "", 1, 1, "")
	assert.ErrorIs(t, err, ErrRiderRequired)

	_, err = NewBooking("BOOK_1", "rider-1", VehicleType("HELICOPTER"), 0, 0, "", 1, 1, "")
	assert.ErrorIs(t, err, ErrInvalidVehicleType)
}

func TestLifecycleHappyPath(t *testing.T) {
	b := newTestBooking(t)

	require.NoError(t, b.AssignDriver("driver-1"))
	assert.Equal(t, StatusAssigned, b.Status)
	require.NotNil(t, b.AssignedAt)

	require.NoError(t, b.Accept("driver-1"))
	assert.Equal(t, StatusAccepted, b.Status)
	require.NotNil(t, b.AcceptedAt)

	require.NoError(t, b.Complete("driver-1", 1234.5))
	assert.Equal(t, StatusCompleted, b.Status)
	require.NotNil(t, b.ActualFare)
	assert.Equal(t, 1234.5, *b.ActualFare)
	require.NotNil(t, b.CompletedAt)
}

func TestAssignDriverGuards(t *testing.T) {
	b := newTestBooking(t)

	assert.ErrorIs(t, b.AssignDriver(""), ErrDriverRequired)

	require.NoError(t, b.AssignDriver("driver-1"))
	assert.ErrorIs(t, b.AssignDriver("driver-2"), ErrAlreadyAssigned)
}

func TestAcceptGuards(t *testing.T) {
	b := newTestBooking(t)

	// cannot accept before assignment
	assert.ErrorIs(t, b.Accept("driver-1"), ErrNoDriverAssigned)

	require.NoError(t, b.AssignDriver("driver-1"))
	assert.ErrorIs(t, b.Accept("driver-2"), ErrDriverMismatch)

	require.NoError(t, b.Accept("driver-1"))
	// accepting twice is an invalid transition
	assert.ErrorIs(t, b.Accept("driver-1"), ErrInvalidStatusTransition)
}

func TestCompleteGuards(t *testing.T) {
	b := newTestBooking(t)
	require.NoError(t, b.AssignDriver("driver-1"))

	// must be ACCEPTED first
	assert.ErrorIs(t, b.Complete("driver-1", 100), ErrInvalidStatusTransition)

	require.NoError(t, b.Accept("driver-1"))
	assert.ErrorIs(t, b.Complete("driver-2", 100), ErrDriverMismatch)
	assert.ErrorIs(t, b.Complete("driver-1", -1), ErrNegativeFare)

	require.NoError(t, b.Complete("driver-1", 100))
}

func TestCancelFromEveryNonTerminalState(t *testing.T) {
	// pending
	b := newTestBooking(t)
	require.NoError(t, b.Cancel("rider changed mind"))
	assert.Equal(t, StatusCancelled, b.Status)
	require.NotNil(t, b.CancellationReason)
	assert.Equal(t, "rider changed mind", *b.CancellationReason)

	// assigned
	b = newTestBooking(t)
	require.NoError(t, b.AssignDriver("driver-1"))
	require.NoError(t, b.Cancel("driver unreachable"))
	assert.Equal(t, StatusCancelled, b.Status)

	// accepted
	b = newTestBooking(t)
	require.NoError(t, b.AssignDriver("driver-1"))
	require.NoError(t, b.Accept("driver-1"))
	require.NoError(t, b.Cancel(""))
	assert.Equal(t, StatusCancelled, b.Status)
	assert.Nil(t, b.CancellationReason)
}

func TestTerminalStatesAreFinal(t *testing.T) {
	b := newTestBooking(t)
	require.NoError(t, b.AssignDriver("driver-1"))
	require.NoError(t, b.Accept("driver-1"))
	require.NoError(t, b.Complete("driver-1", 100))

	assert.ErrorIs(t, b.Cancel("too late"), ErrInvalidStatusTransition)

	b = newTestBooking(t)
	require.NoError(t, b.Cancel("gone"))
	assert.ErrorIs(t, b.AssignDriver("driver-1"), ErrInvalidStatusTransition)
	assert.ErrorIs(t, b.Cancel("again"), ErrInvalidStatusTransition)
}

func TestStatusTransitionTable(t *testing.T) {
	cases := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPending, StatusAssigned, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusAccepted, false},
		{StatusAssigned, StatusAccepted, true},
		{StatusAssigned, StatusCancelled, true},
		{StatusAssigned, StatusCompleted, false},
		{StatusAccepted, StatusCompleted, true},
		{StatusAccepted, StatusCancelled, true},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusAssigned, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestEstimateFareByVehicleType(t *testing.T) {
	dist := 10.0
	economy := EstimateFare(VehicleEconomy, dist)
	premium := EstimateFare(VehiclePremium, dist)
	xl := EstimateFare(VehicleXL, dist)

	assert.Equal(t, 500+100*dist, economy)
	assert.Equal(t, 800+120*dist, premium)
	assert.Equal(t, 1000+150*dist, xl)

	// negative distance clamps to the base fare
	assert.Equal(t, 500.0, EstimateFare(VehicleEconomy, -3))
}

func TestHaversineKnownDistance(t *testing.T) {
	// Times Square to JFK is roughly 21 km great-circle
	d := HaversineKM(40.7580, -73.9855, 40.6413, -73.7781)
	assert.InDelta(t, 21.5, d, 1.5)

	assert.Zero(t, HaversineKM(10, 20, 10, 20))
}
