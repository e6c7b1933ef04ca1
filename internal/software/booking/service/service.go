package service

import (
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/general/logger"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/locking"
	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/ports"
)

// Defaults for the candidate search when the caller does not configure them.
const (
	defaultSearchRadiusKM = 10.0
	defaultSearchLimit    = 20
)

// bookingService encapsulates the matching logic and dependencies. Every
// booking mutation runs inside a distributed critical section keyed by the
// booking id; assignment additionally holds the chosen driver's lock.
type bookingService struct {
	logger      *logger.Logger
	uow         ports.UnitOfWork
	bookingRepo ports.BookingRepository
	driverRepo  ports.DriverRepository
	candidates  ports.CandidateFinder
	sink        ports.EventSink
	locks       *locking.Manager
	lockOpts    locking.Options

	searchRadiusKM float64
	searchLimit    int
}

// NewBookingService creates a new instance of the BookingService with the provided dependencies.
func NewBookingService(
	log *logger.Logger,
	uow ports.UnitOfWork,
	bookingRepo ports.BookingRepository,
	driverRepo ports.DriverRepository,
	candidates ports.CandidateFinder,
	sink ports.EventSink,
	locks *locking.Manager,
	lockOpts locking.Options,
) ports.BookingService {
	return &bookingService{
		logger:         log,
		uow:            uow,
		bookingRepo:    bookingRepo,
		driverRepo:     driverRepo,
		candidates:     candidates,
		sink:           sink,
		locks:          locks,
		lockOpts:       lockOpts,
		searchRadiusKM: defaultSearchRadiusKM,
		searchLimit:    defaultSearchLimit,
	}
}

// bookingResource returns the lock resource guarding one booking's lifecycle.
func bookingResource(bookingID string) string {
	return "booking:" + bookingID
}

// driverResource returns the lock resource guarding one driver's commitment.
func driverResource(driverID string) string {
	return "driver:" + driverID
}
