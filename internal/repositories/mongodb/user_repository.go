package mongodb

import (
	"context"
	"fmt"
	"time"

	"gocab/internal/models"
	"gocab/internal/repositories/interfaces"
	"gocab/internal/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type userRepository struct {
	collection *mongo.Collection

	cache services.CacheService
}

func NewUserRepository(db *mongo.Database, cache services.CacheService) interfaces.UserRepository {
	return &userRepository{
		collection: db.Collection("users"),
		cache:      cache,
	}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		return storageErr("failed to create user", err)
	}

	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	// Try cache first
	cacheKey := userCacheKey(id.Hex())
	if r.cache != nil {
		var user models.User
		if err := r.cache.Get(ctx, cacheKey, &user); err == nil {
			return &user, nil
		}
	}

	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrUserNotFound
		}
		return nil, storageErr("failed to get user", err)
	}

	if r.cache != nil {
		r.cache.Set(ctx, cacheKey, &user, 30*time.Minute)
	}

	return &user, nil
}

func (r *userRepository) UpdateRating(ctx context.Context, id primitive.ObjectID, rating float64, totalRides int64) error {
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
		return storageErr("failed to update user rating", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrUserNotFound
	}

	if r.cache != nil {
		r.cache.Delete(ctx, userCacheKey(id.Hex()))
	}

	return nil
}

func userCacheKey(id string) string {
	return fmt.Sprintf("user_%s", id)
}
