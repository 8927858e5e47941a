package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"gocab/internal/models"
	"gocab/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type dispatchFixture struct {
	svc     *DispatchService
	rides   *fakeRideRepo
	drivers *fakeDriverRepo
	users   *fakeUserRepo
}

func newDispatchFixture() *dispatchFixture {
	rides := newFakeRideRepo()
	drivers := newFakeDriverRepo()
	users := newFakeUserRepo()
	fare := NewFareService(rides, drivers, testPricing(), testLogger())
	svc := NewDispatchService(rides, drivers, users, fare, nil, testPricing(), time.Second, testLogger())
	return &dispatchFixture{svc: svc, rides: rides, drivers: drivers, users: users}
}

func ridePoint(lat, lng float64) models.RidePoint {
	return models.RidePoint{Location: models.NewGeoPoint(lng, lat)}
}

func (f *dispatchFixture) requestRide(t *testing.T) *models.Ride {
	t.Helper()

	ride, _, err := f.svc.RequestRide(
		context.Background(),
		primitive.NewObjectID(),
		ridePoint(6.3703, 2.3912),
		ridePoint(6.4969, 2.6283),
		"cash",
		nil,
	)
	if err != nil {
		t.Fatalf("RequestRide: %v", err)
	}
	return ride
}

func TestRequestRideWithNoDriversNearby(t *testing.T) {
	f := newDispatchFixture()
	f.rides.activeNear = 3
	f.drivers.availableNear = 0

	ride, candidates, err := f.svc.RequestRide(
		context.Background(),
		primitive.NewObjectID(),
		ridePoint(6.3703, 2.3912),
		ridePoint(6.4969, 2.6283),
		"cash",
		nil,
	)
	if err != nil {
		t.Fatalf("RequestRide: %v", err)
	}

	if ride.Status != models.RideStatusPending {
		t.Errorf("status = %q, want pending", ride.Status)
	}
	if len(candidates) != 0 {
		t.Errorf("candidates = %d, want 0", len(candidates))
	}
	if got := ride.Fare.SurgeFactor(); got != 2.0 {
		t.Errorf("surge = %v, want 2.0 with zero supply", got)
	}
	if ride.ID.IsZero() {
		t.Error("ride was not persisted")
	}
}

func TestRequestRideSurvivesCandidateSearchFailure(t *testing.T) {
	f := newDispatchFixture()
	f.drivers.availableNear = 1
	f.drivers.nearbyErr = errors.New("geo index unavailable")

	ride, candidates, err := f.svc.RequestRide(
		context.Background(),
		primitive.NewObjectID(),
		ridePoint(6.3703, 2.3912),
		ridePoint(6.4969, 2.6283),
		"card",
		nil,
	)
	if err != nil {
		t.Fatalf("RequestRide: %v", err)
	}
	if candidates != nil {
		t.Errorf("candidates = %v, want nil", candidates)
	}
	if ride.ID.IsZero() {
		t.Error("ride should persist even when the candidate search fails")
	}
}

func TestRequestRideInvalidCoordinates(t *testing.T) {
	f := newDispatchFixture()

	_, _, err := f.svc.RequestRide(
		context.Background(),
		primitive.NewObjectID(),
		ridePoint(95, 2.3912),
		ridePoint(6.4969, 2.6283),
		"cash",
		nil,
	)
	if !errors.Is(err, models.ErrInvalidCoordinates) {
		t.Fatalf("err = %v, want ErrInvalidCoordinates", err)
	}
	if f.rides.createCalls != 0 {
		t.Error("no ride should be written when the fare fails")
	}
}

func TestStatusLifecycle(t *testing.T) {
	f := newDispatchFixture()
	f.drivers.availableNear = 1
	ride := f.requestRide(t)
	driverID := primitive.NewObjectID()

	steps := []struct {
		status   models.RideStatus
		driverID *primitive.ObjectID
	}{
		{models.RideStatusSearching, nil},
		{models.RideStatusAccepted, &driverID},
		{models.RideStatusInProgress, nil},
		{models.RideStatusCompleted, nil},
	}

	for _, step := range steps {
		updated, err := f.svc.UpdateStatus(context.Background(), ride.ID, step.status, step.driverID)
		if err != nil {
			t.Fatalf("UpdateStatus(%s): %v", step.status, err)
		}
		if updated.Status != step.status {
			t.Fatalf("status = %q, want %q", updated.Status, step.status)
		}
	}

	final, err := f.rides.GetByID(context.Background(), ride.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if final.DriverID == nil || *final.DriverID != driverID {
		t.Error("driver assignment lost across transitions")
	}
	if final.CompletedAt == nil {
		t.Error("CompletedAt not set on completion")
	}
}

func TestStatusTransitionConflicts(t *testing.T) {
	f := newDispatchFixture()
	f.drivers.availableNear = 1
	ride := f.requestRide(t)
	driverID := primitive.NewObjectID()

	// pending -> completed skips the whole lifecycle
	if _, err := f.svc.UpdateStatus(context.Background(), ride.ID, models.RideStatusCompleted, nil); !errors.Is(err, models.ErrConflictingStatusTransition) {
		t.Errorf("pending->completed err = %v, want conflict", err)
	}

	mustUpdate := func(status models.RideStatus, id *primitive.ObjectID) {
		t.Helper()
		if _, err := f.svc.UpdateStatus(context.Background(), ride.ID, status, id); err != nil {
			t.Fatalf("UpdateStatus(%s): %v", status, err)
		}
	}
	mustUpdate(models.RideStatusAccepted, &driverID)
	mustUpdate(models.RideStatusArrived, nil)
	mustUpdate(models.RideStatusInProgress, nil)
	mustUpdate(models.RideStatusCompleted, nil)

	// terminal states accept nothing further
	if _, err := f.svc.UpdateStatus(context.Background(), ride.ID, models.RideStatusAccepted, nil); !errors.Is(err, models.ErrConflictingStatusTransition) {
		t.Errorf("completed->accepted err = %v, want conflict", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), ride.ID, models.RideStatusCancelled, nil); !errors.Is(err, models.ErrConflictingStatusTransition) {
		t.Errorf("completed->cancelled err = %v, want conflict", err)
	}
}

func TestCancelFromEveryActiveState(t *testing.T) {
	for _, status := range []models.RideStatus{
		models.RideStatusPending,
		models.RideStatusAccepted,
		models.RideStatusInProgress,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newDispatchFixture()
			f.drivers.availableNear = 1
			ride := f.requestRide(t)
			driverID := primitive.NewObjectID()

			if status != models.RideStatusPending {
				if _, err := f.svc.UpdateStatus(context.Background(), ride.ID, models.RideStatusAccepted, &driverID); err != nil {
					t.Fatalf("accept: %v", err)
				}
			}
			if status == models.RideStatusInProgress {
				if _, err := f.svc.UpdateStatus(context.Background(), ride.ID, models.RideStatusInProgress, nil); err != nil {
					t.Fatalf("start: %v", err)
				}
			}

			cancelled, err := f.svc.UpdateStatus(context.Background(), ride.ID, models.RideStatusCancelled, nil)
			if err != nil {
				t.Fatalf("cancel from %s: %v", status, err)
			}
			if cancelled.Status != models.RideStatusCancelled {
				t.Errorf("status = %q, want cancelled", cancelled.Status)
			}
		})
	}
}

func TestDriverAssignmentOnlyFromUnassignedStates(t *testing.T) {
	f := newDispatchFixture()
	f.drivers.availableNear = 1
	ride := f.requestRide(t)
	driverID := primitive.NewObjectID()

	if _, err := f.svc.UpdateStatus(context.Background(), ride.ID, models.RideStatusAccepted, &driverID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// arrived comes from accepted only; carrying a driver ID means the
	// transition would re-assign, which is rejected outright.
	other := primitive.NewObjectID()
	if _, err := f.svc.UpdateStatus(context.Background(), ride.ID, models.RideStatusArrived, &other); !errors.Is(err, models.ErrConflictingStatusTransition) {
		t.Fatalf("err = %v, want conflict on re-assignment", err)
	}
}

func TestDriverAvailabilityFollowsRide(t *testing.T) {
	f := newDispatchFixture()
	f.drivers.availableNear = 1
	ride := f.requestRide(t)
	driverID := primitive.NewObjectID()

	if _, err := f.svc.UpdateStatus(context.Background(), ride.ID, models.RideStatusAccepted, &driverID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got := f.drivers.statusUpdates[driverID]; got != models.DriverStatusBusy {
		t.Errorf("driver status after accept = %q, want busy", got)
	}

	if _, err := f.svc.UpdateStatus(context.Background(), ride.ID, models.RideStatusInProgress, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), ride.ID, models.RideStatusCompleted, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := f.drivers.statusUpdates[driverID]; got != models.DriverStatusAvailable {
		t.Errorf("driver status after completion = %q, want available", got)
	}
}

func TestUpdateStatusUnknownRide(t *testing.T) {
	f := newDispatchFixture()

	_, err := f.svc.UpdateStatus(context.Background(), primitive.NewObjectID(), models.RideStatusSearching, nil)
	if !errors.Is(err, models.ErrRideNotFound) {
		t.Fatalf("err = %v, want ErrRideNotFound", err)
	}
}

func TestCreateRetriesOnceOnTimeout(t *testing.T) {
	f := newDispatchFixture()
	f.rides.createErr = models.ErrPersistenceTimeout

	_, _, err := f.svc.RequestRide(
		context.Background(),
		primitive.NewObjectID(),
		ridePoint(6.3703, 2.3912),
		ridePoint(6.4969, 2.6283),
		"cash",
		nil,
	)
	if !errors.Is(err, models.ErrPersistenceFailure) {
		t.Fatalf("err = %v, want ErrPersistenceFailure after exhausting the retry", err)
	}
	if f.rides.createCalls != 2 {
		t.Errorf("create attempts = %d, want 2", f.rides.createCalls)
	}
}

func TestRateRideDriverRatesRider(t *testing.T) {
	f := newDispatchFixture()
	f.drivers.availableNear = 1
	ride := f.requestRide(t)
	riderID := ride.RiderID

	if err := f.svc.RateRide(context.Background(), ride.ID, 4, "smooth trip", true); err != nil {
		t.Fatalf("RateRide: %v", err)
	}

	stored, _ := f.rides.GetByID(context.Background(), ride.ID)
	if stored.Rating.Rider == nil || *stored.Rating.Rider != 4 {
		t.Fatalf("rider score = %v, want 4", stored.Rating.Rider)
	}
	if stored.Rating.Driver != nil {
		t.Error("driver score should be untouched")
	}
	if got := f.users.ratings[riderID]; got != 4 {
		t.Errorf("rider average = %v, want 4", got)
	}
	if len(f.drivers.ratings) != 0 {
		t.Error("no driver average should be written")
	}
}

func TestRateRideRiderRatesDriver(t *testing.T) {
	f := newDispatchFixture()
	f.drivers.availableNear = 1
	ride := f.requestRide(t)
	driverID := primitive.NewObjectID()

	if _, err := f.svc.UpdateStatus(context.Background(), ride.ID, models.RideStatusAccepted, &driverID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if err := f.svc.RateRide(context.Background(), ride.ID, 5, "", false); err != nil {
		t.Fatalf("RateRide: %v", err)
	}
	if got := f.drivers.ratings[driverID]; got != 5 {
		t.Errorf("driver average = %v, want 5", got)
	}
}

func TestRateRideRetriesAverageRecomputeOnTimeout(t *testing.T) {
	f := newDispatchFixture()
	f.drivers.availableNear = 1
	ride := f.requestRide(t)
	driverID := primitive.NewObjectID()

	if _, err := f.svc.UpdateStatus(context.Background(), ride.ID, models.RideStatusAccepted, &driverID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// The score lookup behind the average times out once. The rating must
	// still land after the single retry.
	f.rides.ratedScoresTimeouts = 1
	if err := f.svc.RateRide(context.Background(), ride.ID, 4, "", false); err != nil {
		t.Fatalf("RateRide: %v", err)
	}
	if f.rides.ratedScoresCalls != 2 {
		t.Errorf("score lookups = %d, want 2", f.rides.ratedScoresCalls)
	}
	if got := f.drivers.ratings[driverID]; got != 4 {
		t.Errorf("driver average = %v, want 4", got)
	}
}

func TestRateRideBounds(t *testing.T) {
	f := newDispatchFixture()

	for _, score := range []float64{0, 0.9, 5.1, -1} {
		if err := f.svc.RateRide(context.Background(), primitive.NewObjectID(), score, "", true); err == nil {
			t.Errorf("score %v accepted, want rejection", score)
		}
	}
}

func TestRateRideWithoutDriver(t *testing.T) {
	f := newDispatchFixture()
	f.drivers.availableNear = 1
	ride := f.requestRide(t)

	if err := f.svc.RateRide(context.Background(), ride.ID, 3, "", false); err == nil {
		t.Fatal("rating an unassigned driver should fail")
	}
}

func TestConcurrentRatingsKeepEveryScore(t *testing.T) {
	f := newDispatchFixture()
	f.drivers.availableNear = 1
	riderID := primitive.NewObjectID()

	// Several completed rides by the same rider, rated concurrently by
	// their drivers. The recomputed average must reflect every score.
	scores := []float64{1, 2, 3, 4, 5}
	rideIDs := make([]primitive.ObjectID, len(scores))
	for i := range scores {
		ride := &models.Ride{
			RiderID:     riderID,
			Pickup:      ridePoint(6.3703, 2.3912),
			Destination: ridePoint(6.4969, 2.6283),
			Status:      models.RideStatusCompleted,
		}
		if err := f.rides.Create(context.Background(), ride); err != nil {
			t.Fatalf("Create: %v", err)
		}
		rideIDs[i] = ride.ID
	}

	var wg sync.WaitGroup
	for i, score := range scores {
		wg.Add(1)
		go func(id primitive.ObjectID, score float64) {
			defer wg.Done()
			if err := f.svc.RateRide(context.Background(), id, score, "", true); err != nil {
				t.Errorf("RateRide: %v", err)
			}
		}(rideIDs[i], score)
	}
	wg.Wait()

	want := 3.0
	if got := f.users.ratings[riderID]; math.Abs(got-want) > 1e-9 {
		t.Errorf("average = %v, want %v", got, want)
	}
}

func TestGetHistoryJoinsDriverSummaries(t *testing.T) {
	f := newDispatchFixture()
	f.drivers.availableNear = 1
	riderID := primitive.NewObjectID()

	driver := &models.Driver{
		FirstName: "Ayo",
		LastName:  "D",
		Rating:    4.8,
	}
	if err := f.drivers.Create(context.Background(), driver); err != nil {
		t.Fatalf("Create driver: %v", err)
	}

	assigned := &models.Ride{
		RiderID:     riderID,
		DriverID:    &driver.ID,
		Pickup:      ridePoint(6.3703, 2.3912),
		Destination: ridePoint(6.4969, 2.6283),
		Status:      models.RideStatusCompleted,
	}
	unassigned := &models.Ride{
		RiderID:     riderID,
		Pickup:      ridePoint(6.3703, 2.3912),
		Destination: ridePoint(6.4969, 2.6283),
		Status:      models.RideStatusCancelled,
	}
	for _, ride := range []*models.Ride{assigned, unassigned} {
		if err := f.rides.Create(context.Background(), ride); err != nil {
			t.Fatalf("Create ride: %v", err)
		}
	}

	history, err := f.svc.GetHistory(context.Background(), riderID)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history entries = %d, want 2", len(history))
	}

	var joined, bare int
	for _, entry := range history {
		if entry.Driver != nil {
			joined++
			if entry.Driver.Rating != 4.8 {
				t.Errorf("joined rating = %v, want 4.8", entry.Driver.Rating)
			}
		} else {
			bare++
		}
	}
	if joined != 1 || bare != 1 {
		t.Errorf("joined/bare = %d/%d, want 1/1", joined, bare)
	}
}

func TestFindNearbyDriversValidatesPoint(t *testing.T) {
	f := newDispatchFixture()

	_, err := f.svc.FindNearbyDrivers(context.Background(), utils.Point{Lat: -91, Lng: 0})
	if !errors.Is(err, models.ErrInvalidCoordinates) {
		t.Fatalf("err = %v, want ErrInvalidCoordinates", err)
	}
}
