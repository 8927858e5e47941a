package services

import (
	"context"
	"fmt"
	"time"

	"gocab/internal/models"
	"gocab/internal/observability"
	"gocab/internal/repositories/interfaces"
	"gocab/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const unreadCountTTL = time.Minute

// MessageService persists ride-scoped chat and tracks read state. The
// sender identity always comes from the authenticated session; it is a
// parameter on every call, never inferred.
type MessageService struct {
	messages interfaces.MessageRepository
	cache    CacheService
}

func NewMessageService(messages interfaces.MessageRepository, cache CacheService) *MessageService {
	return &MessageService{
		messages: messages,
		cache:    cache,
	}
}

func (s *MessageService) Send(ctx context.Context, senderID, rideID, receiverID primitive.ObjectID, content string, kind models.MessageType) (*models.Message, error) {
	if content == "" {
		return nil, fmt.Errorf("message content is required")
	}
	if len(content) > utils.MaxMessageLength {
		return nil, fmt.Errorf("message content exceeds %d characters", utils.MaxMessageLength)
	}
	if kind == "" {
		kind = models.MessageTypeText
	}

	message := &models.Message{
		RideID:     rideID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Type:       kind,
		Read:       false,
	}

	if err := s.messages.Create(ctx, message); err != nil {
		return nil, err
	}

	observability.MessagesSentTotal.Inc()
	s.invalidateUnreadCount(ctx, receiverID)

	return message, nil
}

func (s *MessageService) List(ctx context.Context, rideID primitive.ObjectID) ([]*models.Message, error) {
	return s.messages.ListByRide(ctx, rideID)
}

// MarkRead flips the read flag on the listed messages addressed to
// receiverID. Ids addressed to someone else are skipped without error.
func (s *MessageService) MarkRead(ctx context.Context, ids []primitive.ObjectID, receiverID primitive.ObjectID) (int64, error) {
	updated, err := s.messages.MarkRead(ctx, ids, receiverID)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		s.invalidateUnreadCount(ctx, receiverID)
	}
	return updated, nil
}

func (s *MessageService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	cacheKey := unreadCountKey(userID)
	if s.cache != nil {
		var count int64
		if err := s.cache.Get(ctx, cacheKey, &count); err == nil {
			return count, nil
		}
	}

	count, err := s.messages.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, cacheKey, count, unreadCountTTL)
	}

	return count, nil
}

func (s *MessageService) invalidateUnreadCount(ctx context.Context, userID primitive.ObjectID) {
	if s.cache == nil {
		return
	}
	s.cache.Delete(ctx, unreadCountKey(userID))
}

func unreadCountKey(userID primitive.ObjectID) string {
	return fmt.Sprintf("unread_count_%s", userID.Hex())
}
