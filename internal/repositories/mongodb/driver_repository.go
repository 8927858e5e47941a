package mongodb

import (
	"context"
	"fmt"
	"time"

	"gocab/internal/models"
	"gocab/internal/repositories/interfaces"
	"gocab/internal/services"
	"gocab/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type driverRepository struct {
	collection *mongo.Collection

	cache services.CacheService
}

func NewDriverRepository(db *mongo.Database, cache services.CacheService) interfaces.DriverRepository {
	return &driverRepository{
		collection: db.Collection("drivers"),
		cache:      cache,
	}
}

func (r *driverRepository) Create(ctx context.Context, driver *models.Driver) error {
	driver.ID = primitive.NewObjectID()
	driver.CreatedAt = time.Now()
	driver.UpdatedAt = driver.CreatedAt

	if _, err := r.collection.InsertOne(ctx, driver); err != nil {
		return storageErr("failed to create driver", err)
	}

	r.cacheDriver(ctx, driver)

	return nil
}

func (r *driverRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	// Try cache first
	if driver := r.getDriverFromCache(ctx, id.Hex()); driver != nil {
		return driver, nil
	}

	var driver models.Driver
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&driver)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrDriverNotFound
		}
		return nil, storageErr("failed to get driver", err)
	}

	r.cacheDriver(ctx, &driver)

	return &driver, nil
}

func (r *driverRepository) GetNearbyAvailable(ctx context.Context, lng, lat, radiusKM float64) ([]*models.Driver, error) {
	filter := bson.M{
		"location": bson.M{
			"$near": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": []float64{lng, lat},
				},
				"$maxDistance": radiusKM * 1000,
			},
		},
		"status": models.DriverStatusAvailable,
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, storageErr("failed to find nearby drivers", err)
	}
	defer cursor.Close(ctx)

	// $near returns documents nearest first; keep that order.
	var drivers []*models.Driver
	if err := cursor.All(ctx, &drivers); err != nil {
		return nil, storageErr("failed to decode nearby drivers", err)
	}

	return drivers, nil
}

func (r *driverRepository) CountAvailableNear(ctx context.Context, lng, lat, radiusKM float64) (int64, error) {
	// countDocuments cannot run $near; $geoWithin gives the same membership
	// test without the sort.
	filter := bson.M{
		"location": bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": []interface{}{
					[]float64{lng, lat},
					radiusKM / utils.EarthRadiusKM,
				},
			},
		},
		"status": models.DriverStatusAvailable,
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, storageErr("failed to count available drivers", err)
	}

	return count, nil
}

func (r *driverRepository) UpdateLocation(ctx context.Context, id primitive.ObjectID, lng, lat float64) error {
	now := time.Now()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"location":         models.NewGeoPoint(lng, lat),
			"last_location_at": now,
			"updated_at":       now,
		}},
	)
	if err != nil {
		return storageErr("failed to update driver location", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrDriverNotFound
	}

	r.invalidateDriverCache(ctx, id.Hex())

	return nil
}

func (r *driverRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.DriverStatus) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"status":     status,
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		return storageErr("failed to update driver status", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrDriverNotFound
	}

	r.invalidateDriverCache(ctx, id.Hex())

	return nil
}

func (r *driverRepository) UpdateRating(ctx context.Context, id primitive.ObjectID, rating float64, totalRides int64) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"rating":      rating,
			"total_rides": totalRides,
			"updated_at":  time.Now(),
		}},
	)
	if err != nil {
		return storageErr("failed to update driver rating", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrDriverNotFound
	}

	r.invalidateDriverCache(ctx, id.Hex())

	return nil
}

func driverCacheKey(id string) string {
	return fmt.Sprintf("driver_%s", id)
}

func (r *driverRepository) cacheDriver(ctx context.Context, driver *models.Driver) {
	if r.cache == nil {
		return
	}
	r.cache.Set(ctx, driverCacheKey(driver.ID.Hex()), driver, 30*time.Minute)
}

func (r *driverRepository) getDriverFromCache(ctx context.Context, id string) *models.Driver {
	if r.cache == nil {
		return nil
	}
	var driver models.Driver
	if err := r.cache.Get(ctx, driverCacheKey(id), &driver); err != nil {
		return nil
	}
	return &driver
}

func (r *driverRepository) invalidateDriverCache(ctx context.Context, id string) {
	if r.cache == nil {
		return
	}
	r.cache.Delete(ctx, driverCacheKey(id))
}
