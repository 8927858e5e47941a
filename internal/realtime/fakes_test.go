package realtime

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"gocab/internal/models"
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

// connStub records every event pushed to it.
type connStub struct {
	mu      sync.Mutex
	events  []Event
	sendErr error
	closed  bool
}

func (c *connStub) Send(event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sendErr != nil {
		return c.sendErr
	}
	c.events = append(c.events, event)
	return nil
}

func (c *connStub) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	return nil
}

func (c *connStub) recorded() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *connStub) lastOfType(eventType string) (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Type == eventType {
			return c.events[i], true
		}
	}
	return Event{}, false
}

// driverRepoStub implements interfaces.DriverRepository for gateway tests.
type driverRepoStub struct {
	mu        sync.Mutex
	locations map[primitive.ObjectID][2]float64
	updateErr error
}

func newDriverRepoStub() *driverRepoStub {
	return &driverRepoStub{locations: make(map[primitive.ObjectID][2]float64)}
}

func (s *driverRepoStub) Create(ctx context.Context, driver *models.Driver) error { return nil }

func (s *driverRepoStub) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	return nil, models.ErrDriverNotFound
}

func (s *driverRepoStub) GetNearbyAvailable(ctx context.Context, lng, lat, radiusKM float64) ([]*models.Driver, error) {
	return nil, nil
}

func (s *driverRepoStub) CountAvailableNear(ctx context.Context, lng, lat, radiusKM float64) (int64, error) {
	return 0, nil
}

func (s *driverRepoStub) UpdateLocation(ctx context.Context, id primitive.ObjectID, lng, lat float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.updateErr != nil {
		return s.updateErr
	}
	s.locations[id] = [2]float64{lng, lat}
	return nil
}

func (s *driverRepoStub) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.DriverStatus) error {
	return nil
}

func (s *driverRepoStub) UpdateRating(ctx context.Context, id primitive.ObjectID, rating float64, totalRides int64) error {
	return nil
}

// messageRepoStub implements interfaces.MessageRepository.
type messageRepoStub struct {
	mu        sync.Mutex
	messages  []*models.Message
	createErr error
}

func (s *messageRepoStub) Create(ctx context.Context, message *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return s.createErr
	}
	message.ID = primitive.NewObjectID()
	clone := *message
	s.messages = append(s.messages, &clone)
	return nil
}

func (s *messageRepoStub) ListByRide(ctx context.Context, rideID primitive.ObjectID) ([]*models.Message, error) {
	return nil, nil
}

func (s *messageRepoStub) MarkRead(ctx context.Context, ids []primitive.ObjectID, receiverID primitive.ObjectID) (int64, error) {
	return 0, nil
}

func (s *messageRepoStub) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return 0, nil
}

var errStubFailure = errors.New("stub failure")

// waitFor polls cond until it holds or the deadline passes. Needed where
// delivery happens on a forwarding goroutine.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
