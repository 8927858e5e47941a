package interfaces

import (
	"context"

	"gocab/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RideStatusUpdate describes one status transition. Previous lists the
// statuses the transition is valid from; the repository applies it as a
// compare-and-swap so a racing writer can never move a ride backward.
type RideStatusUpdate struct {
	Status   models.RideStatus
	Previous []models.RideStatus
	DriverID *primitive.ObjectID
}

type RideRepository interface {
	Create(ctx context.Context, ride *models.Ride) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error)

	// UpdateStatus applies a compare-and-swap transition and returns the
	// updated ride. models.ErrRideNotFound when the id does not resolve,
	// models.ErrConflictingStatusTransition when the stored status is not in
	// update.Previous.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, update RideStatusUpdate) (*models.Ride, error)

	// GetByRider returns the rider's rides newest first.
	GetByRider(ctx context.Context, riderID primitive.ObjectID) ([]*models.Ride, error)

	// CountActiveNear counts rides in pending/searching/accepted whose pickup
	// lies within radiusKM of the point. Feeds the surge ratio.
	CountActiveNear(ctx context.Context, lng, lat, radiusKM float64) (int64, error)

	// SetRating writes one side of the ride's rating block.
	// raterIsDriver=true writes the rider-side score (the driver rated the
	// rider), false writes the driver-side score.
	SetRating(ctx context.Context, id primitive.ObjectID, raterIsDriver bool, score float64, comment string) error

	// RatedScores returns every historical score received by the given party
	// across their rides, for recomputing the rolling average.
	RatedScores(ctx context.Context, partyID primitive.ObjectID, partyIsDriver bool) ([]float64, error)
}
