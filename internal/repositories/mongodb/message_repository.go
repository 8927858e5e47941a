package mongodb

import (
	"context"
	"time"

	"gocab/internal/models"
	"gocab/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type messageRepository struct {
	collection *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) interfaces.MessageRepository {
	return &messageRepository{
		collection: db.Collection("messages"),
	}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	message.ID = primitive.NewObjectID()
	message.CreatedAt = time.Now()

	if _, err := r.collection.InsertOne(ctx, message); err != nil {
		return storageErr("failed to create message", err)
	}

	return nil
}

func (r *messageRepository) ListByRide(ctx context.Context, rideID primitive.ObjectID) ([]*models.Message, error) {
	cursor, err := r.collection.Find(
		ctx,
		bson.M{"ride_id": rideID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, storageErr("failed to list messages", err)
	}
	defer cursor.Close(ctx)

	var messages []*models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, storageErr("failed to decode messages", err)
	}

	return messages, nil
}

// MarkRead only touches messages addressed to receiverID; ids that belong to
// another receiver simply do not match the filter and are left alone.
func (r *messageRepository) MarkRead(ctx context.Context, ids []primitive.ObjectID, receiverID primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := r.collection.UpdateMany(
		ctx,
		bson.M{
			"_id":         bson.M{"$in": ids},
			"receiver_id": receiverID,
		},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, storageErr("failed to mark messages read", err)
	}

	return result.ModifiedCount, nil
}

func (r *messageRepository) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"receiver_id": userID,
		"read":        false,
	})
	if err != nil {
		return 0, storageErr("failed to count unread messages", err)
	}

	return count, nil
}
