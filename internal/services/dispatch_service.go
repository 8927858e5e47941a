package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gocab/internal/config"
	"gocab/internal/events"
	"gocab/internal/models"
	"gocab/internal/observability"
	"gocab/internal/repositories/interfaces"
	"gocab/internal/utils"
	"gocab/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const retryBackoff = 100 * time.Millisecond

// DispatchService orchestrates ride creation, status transitions and rating
// aggregation. Status transitions go through a compare-and-swap in the ride
// repository; rating recomputation serializes per rated party.
type DispatchService struct {
	rides     interfaces.RideRepository
	drivers   interfaces.DriverRepository
	users     interfaces.UserRepository
	fare      *FareService
	publisher *events.Publisher
	pricing   *config.PricingConfig
	opTimeout time.Duration
	logger    *logger.Logger

	ratingMu    sync.Mutex
	ratingLocks map[string]*sync.Mutex
}

func NewDispatchService(
	rides interfaces.RideRepository,
	drivers interfaces.DriverRepository,
	users interfaces.UserRepository,
	fare *FareService,
	publisher *events.Publisher,
	pricing *config.PricingConfig,
	opTimeout time.Duration,
	log *logger.Logger,
) *DispatchService {
	return &DispatchService{
		rides:       rides,
		drivers:     drivers,
		users:       users,
		fare:        fare,
		publisher:   publisher,
		pricing:     pricing,
		opTimeout:   opTimeout,
		logger:      log,
		ratingLocks: make(map[string]*sync.Mutex),
	}
}

// RequestRide computes the fare, persists the ride as pending and returns it
// together with the available drivers near the pickup. A fare failure means
// no ride record is written at all.
func (s *DispatchService) RequestRide(ctx context.Context, riderID primitive.ObjectID, pickup, destination models.RidePoint, paymentMethod string, scheduledFor *time.Time) (*models.Ride, []*models.Driver, error) {
	pickupPoint := utils.NewPointFromCoordinates(pickup.Location.Coordinates)
	destinationPoint := utils.NewPointFromCoordinates(destination.Location.Coordinates)

	fare, err := s.fare.EstimateFare(ctx, pickupPoint, destinationPoint)
	if err != nil {
		return nil, nil, fmt.Errorf("fare computation failed: %w", err)
	}

	ride := &models.Ride{
		RiderID:       riderID,
		Pickup:        pickup,
		Destination:   destination,
		Status:        models.RideStatusPending,
		Fare:          *fare,
		PaymentMethod: paymentMethod,
		ScheduledFor:  scheduledFor,
	}

	if err := s.withRetry(ctx, func(opCtx context.Context) error {
		return s.rides.Create(opCtx, ride)
	}); err != nil {
		return nil, nil, err
	}

	observability.RidesRequestedTotal.Inc()
	observability.FareTotal.Observe(fare.Total)

	// The ride is already persisted; a failed candidate search degrades to
	// an empty list rather than failing the request.
	candidates, err := s.drivers.GetNearbyAvailable(ctx, pickupPoint.Lng, pickupPoint.Lat, s.pricing.SearchRadiusKM)
	if err != nil {
		s.logger.WithError(err).WithRideID(ride.ID).Warn("Nearby driver search failed")
		candidates = nil
	}

	s.publishEvent(ctx, events.RideEvent{
		Type:    events.TypeRideRequested,
		RideID:  ride.ID.Hex(),
		RiderID: riderID.Hex(),
		Status:  string(ride.Status),
		At:      ride.CreatedAt,
	})

	s.logger.WithRideID(ride.ID).WithField("candidates", len(candidates)).Info("Ride requested")

	return ride, candidates, nil
}

// UpdateStatus applies one transition of the ride state machine. Assigning a
// driver is only valid when the ride leaves pending/searching.
func (s *DispatchService) UpdateStatus(ctx context.Context, rideID primitive.ObjectID, status models.RideStatus, driverID *primitive.ObjectID) (*models.Ride, error) {
	previous := status.AllowedPrevious()
	if len(previous) == 0 {
		return nil, fmt.Errorf("%w: no transition to %q", models.ErrConflictingStatusTransition, status)
	}

	if driverID != nil {
		previous = unassignedStatuses(previous)
		if len(previous) == 0 {
			return nil, fmt.Errorf("%w: driver can only be assigned out of pending or searching", models.ErrConflictingStatusTransition)
		}
	}

	update := interfaces.RideStatusUpdate{
		Status:   status,
		Previous: previous,
		DriverID: driverID,
	}

	var ride *models.Ride
	if err := s.withRetry(ctx, func(opCtx context.Context) error {
		var err error
		ride, err = s.rides.UpdateStatus(opCtx, rideID, update)
		return err
	}); err != nil {
		return nil, err
	}

	observability.RideStatusTransitions.WithLabelValues(string(status)).Inc()
	s.updateDriverAvailability(ctx, ride)

	event := events.RideEvent{
		Type:    events.TypeRideStatusChanged,
		RideID:  ride.ID.Hex(),
		RiderID: ride.RiderID.Hex(),
		Status:  string(ride.Status),
		At:      ride.UpdatedAt,
	}
	if ride.DriverID != nil {
		event.DriverID = ride.DriverID.Hex()
	}
	s.publishEvent(ctx, event)

	return ride, nil
}

// RateRide records one side of the post-ride rating and recomputes the rated
// party's rolling average. raterIsDriver=true means the driver is rating the
// rider. Concurrent ratings for the same party serialize on a per-party
// lock so neither recomputation is lost.
func (s *DispatchService) RateRide(ctx context.Context, rideID primitive.ObjectID, score float64, comment string, raterIsDriver bool) error {
	if score < utils.MinRating || score > utils.MaxRating {
		return fmt.Errorf("rating %.1f out of range [%.0f, %.0f]", score, utils.MinRating, utils.MaxRating)
	}

	var ride *models.Ride
	if err := s.withRetry(ctx, func(opCtx context.Context) error {
		var err error
		ride, err = s.rides.GetByID(opCtx, rideID)
		return err
	}); err != nil {
		return err
	}

	var partyID primitive.ObjectID
	if raterIsDriver {
		partyID = ride.RiderID
	} else {
		if ride.DriverID == nil {
			return fmt.Errorf("ride %s has no assigned driver to rate", rideID.Hex())
		}
		partyID = *ride.DriverID
	}

	lock := s.partyLock(partyID.Hex())
	lock.Lock()
	defer lock.Unlock()

	if err := s.withRetry(ctx, func(opCtx context.Context) error {
		return s.rides.SetRating(opCtx, rideID, raterIsDriver, score, comment)
	}); err != nil {
		return err
	}

	var scores []float64
	if err := s.withRetry(ctx, func(opCtx context.Context) error {
		var err error
		scores, err = s.rides.RatedScores(opCtx, partyID, !raterIsDriver)
		return err
	}); err != nil {
		return err
	}
	if len(scores) == 0 {
		return nil
	}

	var sum float64
	for _, v := range scores {
		sum += v
	}
	average := sum / float64(len(scores))

	return s.withRetry(ctx, func(opCtx context.Context) error {
		if raterIsDriver {
			return s.users.UpdateRating(opCtx, partyID, average, int64(len(scores)))
		}
		return s.drivers.UpdateRating(opCtx, partyID, average, int64(len(scores)))
	})
}

// GetHistory returns the user's rides newest first with driver summaries
// joined in.
func (s *DispatchService) GetHistory(ctx context.Context, userID primitive.ObjectID) ([]*models.RideWithDriver, error) {
	var rides []*models.Ride
	if err := s.withRetry(ctx, func(opCtx context.Context) error {
		var err error
		rides, err = s.rides.GetByRider(opCtx, userID)
		return err
	}); err != nil {
		return nil, err
	}

	history := make([]*models.RideWithDriver, 0, len(rides))
	for _, ride := range rides {
		entry := &models.RideWithDriver{Ride: *ride}
		if ride.DriverID != nil {
			driver, err := s.drivers.GetByID(ctx, *ride.DriverID)
			if err != nil {
				s.logger.WithError(err).WithRideID(ride.ID).Warn("Driver summary unavailable for history entry")
			} else {
				entry.Driver = driver.Summary()
			}
		}
		history = append(history, entry)
	}

	return history, nil
}

// FindNearbyDrivers is a pure read against the geo index.
func (s *DispatchService) FindNearbyDrivers(ctx context.Context, point utils.Point) ([]*models.Driver, error) {
	if !point.IsValid() {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidCoordinates, point)
	}
	return s.drivers.GetNearbyAvailable(ctx, point.Lng, point.Lat, s.pricing.SearchRadiusKM)
}

// updateDriverAvailability keeps the driver's own status in step with the
// ride: busy while on a ride, available again once it ends. Failures are
// logged, never fatal to the transition.
func (s *DispatchService) updateDriverAvailability(ctx context.Context, ride *models.Ride) {
	if ride.DriverID == nil {
		return
	}

	var status models.DriverStatus
	switch ride.Status {
	case models.RideStatusAccepted:
		status = models.DriverStatusBusy
	case models.RideStatusCompleted, models.RideStatusCancelled:
		status = models.DriverStatusAvailable
	default:
		return
	}

	if err := s.drivers.UpdateStatus(ctx, *ride.DriverID, status); err != nil {
		s.logger.WithError(err).WithRideID(ride.ID).Warn("Driver status update failed")
	}
}

func (s *DispatchService) publishEvent(ctx context.Context, event events.RideEvent) {
	if err := s.publisher.PublishRideEvent(ctx, event); err != nil {
		s.logger.WithError(err).Warn("Ride event publish failed")
	}
}

// withRetry runs op under the configured persistence timeout, retrying once
// with a bounded backoff when the failure is a timeout. A second timeout is
// surfaced as a non-retryable persistence failure.
func (s *DispatchService) withRetry(ctx context.Context, op func(context.Context) error) error {
	err := s.runOnce(ctx, op)
	if err == nil || !models.IsRetryable(err) {
		return err
	}

	time.Sleep(retryBackoff)

	err = s.runOnce(ctx, op)
	if models.IsRetryable(err) {
		return fmt.Errorf("retry exhausted: %w", models.ErrPersistenceFailure)
	}
	return err
}

func (s *DispatchService) runOnce(ctx context.Context, op func(context.Context) error) error {
	if s.opTimeout <= 0 {
		return op(ctx)
	}
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return op(opCtx)
}

func (s *DispatchService) partyLock(key string) *sync.Mutex {
	s.ratingMu.Lock()
	defer s.ratingMu.Unlock()

	lock, ok := s.ratingLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.ratingLocks[key] = lock
	}
	return lock
}

func unassignedStatuses(statuses []models.RideStatus) []models.RideStatus {
	var out []models.RideStatus
	for _, st := range statuses {
		if st == models.RideStatusPending || st == models.RideStatusSearching {
			out = append(out, st)
		}
	}
	return out
}
