package interfaces

import (
	"context"

	"gocab/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error

	// ListByRide returns the ride's messages ascending by creation time.
	ListByRide(ctx context.Context, rideID primitive.ObjectID) ([]*models.Message, error)

	// MarkRead flips the read flag on the given messages, but only those
	// addressed to receiverID. Ids that do not match are silently skipped.
	// Returns the number of messages updated.
	MarkRead(ctx context.Context, ids []primitive.ObjectID, receiverID primitive.ObjectID) (int64, error)

	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
}
