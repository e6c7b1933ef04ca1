package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/booking"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/domain/driver"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/logger"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/locking"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/ports"
)

type testEnv struct {
	svc         ports.BookingService
	bookingRepo *memBookingRepo
	driverRepo  *memDriverRepo
	sink        *recordingSink
	locks       *locking.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := logger.New("test")
	locks := locking.NewManager(locking.NewRedisStore(rdb), log, "lock:").
		WithSleep(func(ctx context.Context, d time.Duration) error { return nil })

	bookingRepo := newMemBookingRepo()
	driverRepo := newMemDriverRepo()
	sink := &recordingSink{}

	svc := NewBookingService(log, fakeUOW{}, bookingRepo, driverRepo, driverRepo, sink, locks, locking.Options{
		TTL:         5 * time.Second,
		MaxAttempts: 3,
		BaseDelay:   10 * time.Millisecond,
	})

	return &testEnv{
		svc:         svc,
		bookingRepo: bookingRepo,
		driverRepo:  driverRepo,
		sink:        sink,
		locks:       locks,
	}
}

func (env *testEnv) seedBooking(t *testing.T) string {
	t.Helper()
	res, err := env.svc.CreateBooking(context.Background(), ports.CreateBookingInput{
		RiderID:          "rider-1",
		VehicleType:      booking.VehicleEconomy,
		PickupLatitude:   40.7580,
		PickupLongitude:  -73.9855,
		PickupAddress:    "Times Square",
		DropoffLatitude:  40.6413,
		DropoffLongitude: -73.7781,
		DropoffAddress:   "JFK Airport",
	})
	require.NoError(t, err)
	return res.BookingID
}

func (env *testEnv) seedDriver(t *testing.T, id string, status driver.Status) {
	t.Helper()
	d, err := driver.NewDriver(id, "LIC-"+id, booking.VehicleEconomy)
	require.NoError(t, err)
	d.Status = status
	require.NoError(t, env.driverRepo.Create(context.Background(), d))
}

func (env *testEnv) assertNoLeakedLocks(t *testing.T) {
	t.Helper()
	locks, err := env.locks.ListActiveLocks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, locks, "locks leaked after the scenario")
}

func TestCreateBooking(t *testing.T) {
	env := newTestEnv(t)

	id := env.seedBooking(t)

	b, err := env.bookingRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, b.Status)
	assert.Greater(t, b.EstimatedFare, 0.0)
	assert.Equal(t, []string{"PENDING"}, env.sink.published())
}

func TestAssignDriverHappyPath(t *testing.T) {
	env := newTestEnv(t)
	bookingID := env.seedBooking(t)
	env.seedDriver(t, "drv-1", driver.StatusOnline)

	res, err := env.svc.AssignDriver(context.Background(), bookingID)
	require.NoError(t, err)
	require.NotNil(t, res.Driver)
	assert.Equal(t, "drv-1", res.Driver.ID)
	assert.Equal(t, booking.StatusAssigned, res.Booking.Status)

	// the committed driver is BUSY in the store
	d, err := env.driverRepo.GetByID(context.Background(), "drv-1")
	require.NoError(t, err)
	assert.Equal(t, driver.StatusBusy, d.Status)

	// persisted booking points at the driver
	b, err := env.bookingRepo.GetByID(context.Background(), bookingID)
	require.NoError(t, err)
	require.NotNil(t, b.DriverID)
	assert.Equal(t, "drv-1", *b.DriverID)

	assert.Equal(t, []string{"PENDING", "ASSIGNED"}, env.sink.published())
	env.assertNoLeakedLocks(t)
}

func TestAssignSkipsLockedDrivers(t *testing.T) {
	env := newTestEnv(t)
	bookingID := env.seedBooking(t)
	env.seedDriver(t, "drv-1", driver.StatusOnline)
	env.seedDriver(t, "drv-2", driver.StatusOnline)

	// another assignment currently holds drv-1
	ctx := context.Background()
	lease, err := env.locks.Acquire(ctx, "driver:drv-1", locking.Options{})
	require.NoError(t, err)
	defer lease.Release(ctx)

	res, err := env.svc.AssignDriver(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, "drv-2", res.Driver.ID)

	// drv-1 was never touched
	d, err := env.driverRepo.GetByID(ctx, "drv-1")
	require.NoError(t, err)
	assert.Equal(t, driver.StatusOnline, d.Status)
}

func TestAssignSkipsUnavailableDrivers(t *testing.T) {
	env := newTestEnv(t)
	bookingID := env.seedBooking(t)
	env.seedDriver(t, "drv-offline", driver.StatusOffline)
	env.seedDriver(t, "drv-busy", driver.StatusBusy)
	env.seedDriver(t, "drv-free", driver.StatusOnline)

	res, err := env.svc.AssignDriver(context.Background(), bookingID)
	require.NoError(t, err)
	assert.Equal(t, "drv-free", res.Driver.ID)
}

func TestAssignNoDriversAvailable(t *testing.T) {
	env := newTestEnv(t)
	bookingID := env.seedBooking(t)

	// empty candidate list
	_, err := env.svc.AssignDriver(context.Background(), bookingID)
	assert.ErrorIs(t, err, ports.ErrNoDriversAvailable)

	// every candidate locked
	env.seedDriver(t, "drv-1", driver.StatusOnline)
	ctx := context.Background()
	lease, err := env.locks.Acquire(ctx, "driver:drv-1", locking.Options{})
	require.NoError(t, err)
	defer lease.Release(ctx)

	_, err = env.svc.AssignDriver(ctx, bookingID)
	assert.ErrorIs(t, err, ports.ErrNoDriversAvailable)

	// the booking is still PENDING and assignable later
	b, err := env.bookingRepo.GetByID(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, b.Status)
}

func TestAssignRequiresPendingBooking(t *testing.T) {
	env := newTestEnv(t)
	bookingID := env.seedBooking(t)
	env.seedDriver(t, "drv-1", driver.StatusOnline)

	_, err := env.svc.AssignDriver(context.Background(), bookingID)
	require.NoError(t, err)

	env.seedDriver(t, "drv-2", driver.StatusOnline)
	_, err = env.svc.AssignDriver(context.Background(), bookingID)
	assert.ErrorIs(t, err, ports.ErrConflict)
}

func TestAssignUnknownBooking(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.AssignDriver(context.Background(), "no-such-booking")
	assert.ErrorIs(t, err, ports.ErrNotFound)
	env.assertNoLeakedLocks(t)
}

func TestAssignSurfacesLockContention(t *testing.T) {
	env := newTestEnv(t)
	bookingID := env.seedBooking(t)
	env.seedDriver(t, "drv-1", driver.StatusOnline)

	ctx := context.Background()
	lease, err := env.locks.Acquire(ctx, "booking:"+bookingID, locking.Options{})
	require.NoError(t, err)
	defer lease.Release(ctx)

	_, err = env.svc.AssignDriver(ctx, bookingID)
	assert.ErrorIs(t, err, ports.ErrLockContention)
}

func TestConcurrentAssignSameBookingSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	bookingID := env.seedBooking(t)
	for _, id := range []string{"drv-1", "drv-2", "drv-3"} {
		env.seedDriver(t, id, driver.StatusOnline)
	}

	const callers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.AssignDriver(context.Background(), bookingID)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			// losers must fail with a taxonomy error, never a silent corruption
			if !errors.Is(err, ports.ErrLockContention) && !errors.Is(err, ports.ErrConflict) {
				t.Errorf("unexpected assign error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)

	// exactly one driver ended up BUSY
	busy := 0
	for _, id := range []string{"drv-1", "drv-2", "drv-3"} {
		d, err := env.driverRepo.GetByID(context.Background(), id)
		require.NoError(t, err)
		if d.Status == driver.StatusBusy {
			busy++
		}
	}
	assert.Equal(t, 1, busy)
	env.assertNoLeakedLocks(t)
}

func TestConcurrentAssignSharedDriverNoDoubleCommit(t *testing.T) {
	env := newTestEnv(t)
	first := env.seedBooking(t)
	second := env.seedBooking(t)
	env.seedDriver(t, "drv-1", driver.StatusOnline)

	var wg sync.WaitGroup
	results := make(map[string]error, 2)
	var mu sync.Mutex
	for _, id := range []string{first, second} {
		wg.Add(1)
		go func(bookingID string) {
			defer wg.Done()
			_, err := env.svc.AssignDriver(context.Background(), bookingID)
			mu.Lock()
			results[bookingID] = err
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	// exactly one booking got the driver, the other saw no availability
	var assigned, starved int
	for _, err := range results {
		switch {
		case err == nil:
			assigned++
		case errors.Is(err, ports.ErrNoDriversAvailable):
			starved++
		default:
			t.Errorf("unexpected assign error: %v", err)
		}
	}
	assert.Equal(t, 1, assigned)
	assert.Equal(t, 1, starved)
	env.assertNoLeakedLocks(t)
}

func TestAcceptBooking(t *testing.T) {
	env := newTestEnv(t)
	bookingID := env.seedBooking(t)
	env.seedDriver(t, "drv-1", driver.StatusOnline)

	_, err := env.svc.AssignDriver(context.Background(), bookingID)
	require.NoError(t, err)

	// the wrong driver may not accept
	_, err = env.svc.AcceptBooking(context.Background(), bookingID, "drv-impostor")
	assert.ErrorIs(t, err, ports.ErrUnauthorized)

	b, err := env.svc.AcceptBooking(context.Background(), bookingID, "drv-1")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusAccepted, b.Status)

	// accept is not valid twice
	_, err = env.svc.AcceptBooking(context.Background(), bookingID, "drv-1")
	assert.ErrorIs(t, err, ports.ErrConflict)
	env.assertNoLeakedLocks(t)
}

func TestCancelAuthorization(t *testing.T) {
	env := newTestEnv(t)
	bookingID := env.seedBooking(t)

	// a stranger cannot cancel
	_, err := env.svc.CancelBooking(context.Background(), ports.CancelBookingInput{
		BookingID: bookingID,
		ActorID:   "rider-other",
		ActorRole: ports.RoleRider,
	})
	assert.ErrorIs(t, err, ports.ErrUnauthorized)

	// a driver who is not assigned cannot cancel
	_, err = env.svc.CancelBooking(context.Background(), ports.CancelBookingInput{
		BookingID: bookingID,
		ActorID:   "drv-1",
		ActorRole: ports.RoleDriver,
	})
	assert.ErrorIs(t, err, ports.ErrUnauthorized)

	// the owning rider can
	b, err := env.svc.CancelBooking(context.Background(), ports.CancelBookingInput{
		BookingID: bookingID,
		Reason:    "changed my mind",
		ActorID:   "rider-1",
		ActorRole: ports.RoleRider,
	})
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, b.Status)
	env.assertNoLeakedLocks(t)
}

func TestCancelAssignedBookingFreesDriver(t *testing.T) {
	env := newTestEnv(t)
	bookingID := env.seedBooking(t)
	env.seedDriver(t, "drv-1", driver.StatusOnline)

	_, err := env.svc.AssignDriver(context.Background(), bookingID)
	require.NoError(t, err)

	// the assigned driver cancels
	b, err := env.svc.CancelBooking(context.Background(), ports.CancelBookingInput{
		BookingID: bookingID,
		Reason:    "vehicle breakdown",
		ActorID:   "drv-1",
		ActorRole: ports.RoleDriver,
	})
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, b.Status)

	d, err := env.driverRepo.GetByID(context.Background(), "drv-1")
	require.NoError(t, err)
	assert.Equal(t, driver.StatusOnline, d.Status)
	env.assertNoLeakedLocks(t)
}

func TestCancelCompletedBookingConflicts(t *testing.T) {
	env := newTestEnv(t)
	bookingID := env.seedBooking(t)
	env.seedDriver(t, "drv-1", driver.StatusOnline)

	_, err := env.svc.AssignDriver(context.Background(), bookingID)
	require.NoError(t, err)
	_, err = env.svc.AcceptBooking(context.Background(), bookingID, "drv-1")
	require.NoError(t, err)
	_, err = env.svc.CompleteRide(context.Background(), bookingID, "drv-1", 1500)
	require.NoError(t, err)

	_, err = env.svc.CancelBooking(context.Background(), ports.CancelBookingInput{
		BookingID: bookingID,
		ActorID:   "rider-1",
		ActorRole: ports.RoleRider,
	})
	assert.ErrorIs(t, err, ports.ErrConflict)
}

func TestCompleteRideSettlesDriver(t *testing.T) {
	env := newTestEnv(t)
	bookingID := env.seedBooking(t)
	env.seedDriver(t, "drv-1", driver.StatusOnline)

	_, err := env.svc.AssignDriver(context.Background(), bookingID)
	require.NoError(t, err)
	_, err = env.svc.AcceptBooking(context.Background(), bookingID, "drv-1")
	require.NoError(t, err)

	// the wrong driver may not complete
	_, err = env.svc.CompleteRide(context.Background(), bookingID, "drv-impostor", 1500)
	assert.ErrorIs(t, err, ports.ErrUnauthorized)

	b, err := env.svc.CompleteRide(context.Background(), bookingID, "drv-1", 1500)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCompleted, b.Status)
	require.NotNil(t, b.ActualFare)
	assert.Equal(t, 1500.0, *b.ActualFare)

	// driver is back ONLINE with settled counters
	d, err := env.driverRepo.GetByID(context.Background(), "drv-1")
	require.NoError(t, err)
	assert.Equal(t, driver.StatusOnline, d.Status)
	assert.Equal(t, 1, d.TotalRides)
	assert.Equal(t, 1500.0, d.TotalEarnings)

	assert.Equal(t, []string{"PENDING", "ASSIGNED", "ACCEPTED", "COMPLETED"}, env.sink.published())
	env.assertNoLeakedLocks(t)
}

func TestGetLockStatisticsSeesHeldLocks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	locks, err := env.svc.GetLockStatistics(ctx)
	require.NoError(t, err)
	assert.Empty(t, locks)

	lease, err := env.locks.Acquire(ctx, "booking:held", locking.Options{})
	require.NoError(t, err)
	defer lease.Release(ctx)

	locks, err = env.svc.GetLockStatistics(ctx)
	require.NoError(t, err)
	require.Len(t, locks, 1)
	assert.Equal(t, "booking:held", locks[0].Resource)
	assert.Greater(t, locks[0].RemainingTTL, time.Duration(0))
}
