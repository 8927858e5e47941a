package mongodb

import (
	"context"
	"time"

	"gocab/internal/models"
	"gocab/internal/repositories/interfaces"
	"gocab/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var activeRideStatuses = []models.RideStatus{
	models.RideStatusPending,
	models.RideStatusSearching,
	models.RideStatusAccepted,
}

type rideRepository struct {
	collection *mongo.Collection
}

func NewRideRepository(db *mongo.Database) interfaces.RideRepository {
	return &rideRepository{
		collection: db.Collection("rides"),
	}
}

func (r *rideRepository) Create(ctx context.Context, ride *models.Ride) error {
	ride.ID = primitive.NewObjectID()
	ride.CreatedAt = time.Now()
	ride.UpdatedAt = ride.CreatedAt

	if _, err := r.collection.InsertOne(ctx, ride); err != nil {
		return storageErr("failed to create ride", err)
	}

	return nil
}

func (r *rideRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error) {
	var ride models.Ride
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ride)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrRideNotFound
		}
		return nil, storageErr("failed to get ride", err)
	}

	return &ride, nil
}

// UpdateStatus is a compare-and-swap on the stored status: the filter pins
// the allowed previous statuses, so a concurrent transition that already
// moved the ride past them makes this one fail instead of clobbering it.
func (r *rideRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, update interfaces.RideStatusUpdate) (*models.Ride, error) {
	now := time.Now()

	set := bson.M{
		"status":     update.Status,
		"updated_at": now,
	}
	if update.DriverID != nil {
		set["driver_id"] = *update.DriverID
	}
	if update.Status == models.RideStatusCompleted {
		set["completed_at"] = now
	}

	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": update.Previous},
	}

	var ride models.Ride
	err := r.collection.FindOneAndUpdate(
		ctx,
		filter,
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&ride)
	if err == nil {
		return &ride, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, storageErr("failed to update ride status", err)
	}

	// Distinguish a missing ride from a lost race.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, models.ErrConflictingStatusTransition
}

func (r *rideRepository) GetByRider(ctx context.Context, riderID primitive.ObjectID) ([]*models.Ride, error) {
	cursor, err := r.collection.Find(
		ctx,
		bson.M{"rider_id": riderID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, storageErr("failed to list rides", err)
	}
	defer cursor.Close(ctx)

	var rides []*models.Ride
	if err := cursor.All(ctx, &rides); err != nil {
		return nil, storageErr("failed to decode rides", err)
	}

	return rides, nil
}

func (r *rideRepository) CountActiveNear(ctx context.Context, lng, lat, radiusKM float64) (int64, error) {
	// countDocuments cannot run $near; $geoWithin gives the same membership
	// test without the sort.
	filter := bson.M{
		"pickup.location": bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": []interface{}{
					[]float64{lng, lat},
					radiusKM / utils.EarthRadiusKM,
				},
			},
		},
		"status": bson.M{"$in": activeRideStatuses},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, storageErr("failed to count active rides", err)
	}

	return count, nil
}

func (r *rideRepository) SetRating(ctx context.Context, id primitive.ObjectID, raterIsDriver bool, score float64, comment string) error {
	// The driver rates the rider side of the block, the rider the driver side.
	scoreField, commentField := "rating.driver", "rating.driver_comment"
	if raterIsDriver {
		scoreField, commentField = "rating.rider", "rating.rider_comment"
	}

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			scoreField:   score,
			commentField: comment,
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		return storageErr("failed to set ride rating", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrRideNotFound
	}

	return nil
}

func (r *rideRepository) RatedScores(ctx context.Context, partyID primitive.ObjectID, partyIsDriver bool) ([]float64, error) {
	idField, scoreField := "rider_id", "rating.rider"
	if partyIsDriver {
		idField, scoreField = "driver_id", "rating.driver"
	}

	filter := bson.M{
		idField:    partyID,
		scoreField: bson.M{"$exists": true},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, storageErr("failed to load rated rides", err)
	}
	defer cursor.Close(ctx)

	var rides []*models.Ride
	if err := cursor.All(ctx, &rides); err != nil {
		return nil, storageErr("failed to decode rated rides", err)
	}

	scores := make([]float64, 0, len(rides))
	for _, ride := range rides {
		if ride.Rating == nil {
			continue
		}
		if partyIsDriver && ride.Rating.Driver != nil {
			scores = append(scores, *ride.Rating.Driver)
		} else if !partyIsDriver && ride.Rating.Rider != nil {
			scores = append(scores, *ride.Rating.Rider)
		}
	}

	return scores, nil
}
