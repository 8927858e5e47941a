package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"gocab/internal/config"
	"gocab/internal/models"
	"gocab/internal/repositories/interfaces"
	"gocab/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testLogger() *logger.Logger {
	log, err := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: "text"})
	if err != nil {
		panic(err)
	}
	log.SetOutput(io.Discard)
	return log
}

func testPricing() *config.PricingConfig {
	return &config.PricingConfig{
		BaseFare:       500,
		PerKMRate:      100,
		PerMinuteRate:  50,
		MinutesPerKM:   3,
		SearchRadiusKM: 5,
		SurgeRadiusKM:  5,
		Currency:       "CFA",
	}
}

// fakeRideRepo is an in-memory RideRepository. The CAS semantics of
// UpdateStatus match the Mongo implementation, including the error split
// between missing rides and conflicting transitions.
type fakeRideRepo struct {
	mu    sync.Mutex
	rides map[primitive.ObjectID]*models.Ride

	activeNear int64
	countErr   error
	createErr  error

	createCalls int

	ratedScoresTimeouts int
	ratedScoresCalls    int
}

func newFakeRideRepo() *fakeRideRepo {
	return &fakeRideRepo{rides: make(map[primitive.ObjectID]*models.Ride)}
}

func (f *fakeRideRepo) Create(ctx context.Context, ride *models.Ride) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}

	ride.ID = primitive.NewObjectID()
	ride.CreatedAt = time.Now()
	ride.UpdatedAt = ride.CreatedAt
	clone := *ride
	f.rides[ride.ID] = &clone
	return nil
}

func (f *fakeRideRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ride, ok := f.rides[id]
	if !ok {
		return nil, models.ErrRideNotFound
	}
	clone := *ride
	return &clone, nil
}

func (f *fakeRideRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, update interfaces.RideStatusUpdate) (*models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ride, ok := f.rides[id]
	if !ok {
		return nil, models.ErrRideNotFound
	}

	allowed := false
	for _, prev := range update.Previous {
		if ride.Status == prev {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s", models.ErrConflictingStatusTransition, ride.Status)
	}

	ride.Status = update.Status
	ride.UpdatedAt = time.Now()
	if update.DriverID != nil {
		ride.DriverID = update.DriverID
	}
	if update.Status == models.RideStatusCompleted {
		now := time.Now()
		ride.CompletedAt = &now
	}

	clone := *ride
	return &clone, nil
}

func (f *fakeRideRepo) GetByRider(ctx context.Context, riderID primitive.ObjectID) ([]*models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.Ride
	for _, ride := range f.rides {
		if ride.RiderID == riderID {
			clone := *ride
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeRideRepo) CountActiveNear(ctx context.Context, lng, lat, radiusKM float64) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.activeNear, nil
}

func (f *fakeRideRepo) SetRating(ctx context.Context, id primitive.ObjectID, raterIsDriver bool, score float64, comment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	ride, ok := f.rides[id]
	if !ok {
		return models.ErrRideNotFound
	}
	if ride.Rating == nil {
		ride.Rating = &models.RideRating{}
	}
	if raterIsDriver {
		ride.Rating.Rider = &score
		ride.Rating.RiderComment = comment
	} else {
		ride.Rating.Driver = &score
		ride.Rating.DriverComment = comment
	}
	return nil
}

func (f *fakeRideRepo) RatedScores(ctx context.Context, partyID primitive.ObjectID, partyIsDriver bool) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ratedScoresCalls++
	if f.ratedScoresTimeouts > 0 {
		f.ratedScoresTimeouts--
		return nil, models.ErrPersistenceTimeout
	}

	var scores []float64
	for _, ride := range f.rides {
		if ride.Rating == nil {
			continue
		}
		if partyIsDriver {
			if ride.DriverID != nil && *ride.DriverID == partyID && ride.Rating.Driver != nil {
				scores = append(scores, *ride.Rating.Driver)
			}
		} else {
			if ride.RiderID == partyID && ride.Rating.Rider != nil {
				scores = append(scores, *ride.Rating.Rider)
			}
		}
	}
	return scores, nil
}

// fakeDriverRepo is an in-memory DriverRepository.
type fakeDriverRepo struct {
	mu      sync.Mutex
	drivers map[primitive.ObjectID]*models.Driver

	nearby        []*models.Driver
	nearbyErr     error
	availableNear int64
	countErr      error

	statusUpdates map[primitive.ObjectID]models.DriverStatus
	ratings       map[primitive.ObjectID]float64
}

func newFakeDriverRepo() *fakeDriverRepo {
	return &fakeDriverRepo{
		drivers:       make(map[primitive.ObjectID]*models.Driver),
		statusUpdates: make(map[primitive.ObjectID]models.DriverStatus),
		ratings:       make(map[primitive.ObjectID]float64),
	}
}

func (f *fakeDriverRepo) Create(ctx context.Context, driver *models.Driver) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if driver.ID.IsZero() {
		driver.ID = primitive.NewObjectID()
	}
	clone := *driver
	f.drivers[driver.ID] = &clone
	return nil
}

func (f *fakeDriverRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	driver, ok := f.drivers[id]
	if !ok {
		return nil, models.ErrDriverNotFound
	}
	clone := *driver
	return &clone, nil
}

func (f *fakeDriverRepo) GetNearbyAvailable(ctx context.Context, lng, lat, radiusKM float64) ([]*models.Driver, error) {
	if f.nearbyErr != nil {
		return nil, f.nearbyErr
	}
	return f.nearby, nil
}

func (f *fakeDriverRepo) CountAvailableNear(ctx context.Context, lng, lat, radiusKM float64) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.availableNear, nil
}

func (f *fakeDriverRepo) UpdateLocation(ctx context.Context, id primitive.ObjectID, lng, lat float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if driver, ok := f.drivers[id]; ok {
		driver.Location = models.NewGeoPoint(lng, lat)
	}
	return nil
}

func (f *fakeDriverRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.DriverStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statusUpdates[id] = status
	return nil
}

func (f *fakeDriverRepo) UpdateRating(ctx context.Context, id primitive.ObjectID, rating float64, totalRides int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ratings[id] = rating
	return nil
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[primitive.ObjectID]*models.User
	ratings map[primitive.ObjectID]float64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:   make(map[primitive.ObjectID]*models.User),
		ratings: make(map[primitive.ObjectID]float64),
	}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) UpdateRating(ctx context.Context, id primitive.ObjectID, rating float64, totalRides int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ratings[id] = rating
	return nil
}

// fakeMessageRepo is an in-memory MessageRepository.
type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*models.Message

	unread    int64
	createErr error
}

func (f *fakeMessageRepo) Create(ctx context.Context, message *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	message.ID = primitive.NewObjectID()
	message.CreatedAt = time.Now()
	clone := *message
	f.messages = append(f.messages, &clone)
	return nil
}

func (f *fakeMessageRepo) ListByRide(ctx context.Context, rideID primitive.ObjectID) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.Message
	for _, msg := range f.messages {
		if msg.RideID == rideID {
			clone := *msg
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) MarkRead(ctx context.Context, ids []primitive.ObjectID, receiverID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	wanted := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var updated int64
	for _, msg := range f.messages {
		if wanted[msg.ID] && msg.ReceiverID == receiverID && !msg.Read {
			msg.Read = true
			updated++
		}
	}
	return updated, nil
}

func (f *fakeMessageRepo) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.unread != 0 {
		return f.unread, nil
	}

	var count int64
	for _, msg := range f.messages {
		if msg.ReceiverID == userID && !msg.Read {
			count++
		}
	}
	return count, nil
}

// fakeCache is an in-memory CacheService.
type fakeCache struct {
	mu      sync.Mutex
	store   map[string][]byte
	deletes []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: make(map[string][]byte)}
}

func (f *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.store[key]
	if !ok {
		return fmt.Errorf("cache miss: %s", key)
	}
	return json.Unmarshal(data, dest)
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.store[key] = data
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, key := range keys {
		delete(f.store, key)
		f.deletes = append(f.deletes, key)
	}
	return nil
}

func (f *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.store[key]
	return ok, nil
}
