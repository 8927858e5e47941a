package interfaces

import (
	"context"

	"gocab/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DriverRepository interface {
	Create(ctx context.Context, driver *models.Driver) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error)

	// GetNearbyAvailable returns available drivers within radiusKM of the
	// point, nearest first. A pure read; never mutates driver state.
	GetNearbyAvailable(ctx context.Context, lng, lat, radiusKM float64) ([]*models.Driver, error)

	// CountAvailableNear feeds the surge ratio denominator.
	CountAvailableNear(ctx context.Context, lng, lat, radiusKM float64) (int64, error)

	// UpdateLocation persists a location ping. Writes to a single driver
	// document, so it is linearizable with reads of that driver.
	UpdateLocation(ctx context.Context, id primitive.ObjectID, lng, lat float64) error

	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.DriverStatus) error

	// UpdateRating persists a recomputed rolling average.
	UpdateRating(ctx context.Context, id primitive.ObjectID, rating float64, totalRides int64) error
}
