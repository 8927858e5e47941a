package handlers

import (
	"net/http"

	"gocab/internal/models"
	"gocab/internal/services"
	"gocab/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageHandler struct {
	messageService *services.MessageService
}

func NewMessageHandler(messageService *services.MessageService) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
	}
}

type sendMessageRequest struct {
	ReceiverID string `json:"receiver_id" binding:"required"`
	Content    string `json:"content" binding:"required"`
	Type       string `json:"type"`
}

// SendMessage persists a chat message on a ride. The realtime gateway is
// the usual path for this; the HTTP route exists for clients without a live
// socket.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	rideID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ride ID")
		return
	}

	var request sendMessageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	receiverID, err := primitive.ObjectIDFromHex(request.ReceiverID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid receiver ID")
		return
	}

	senderID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	message, err := h.messageService.Send(c.Request.Context(), senderID, rideID, receiverID, request.Content, models.MessageType(request.Type))
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "MESSAGE_SEND_FAILED", "Failed to send message: "+err.Error())
		return
	}

	utils.CreatedResponse(c, "Message sent successfully", message)
}

// GetMessages lists a ride's messages in chronological order.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	rideID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ride ID")
		return
	}

	messages, err := h.messageService.List(c.Request.Context(), rideID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "MESSAGE_FETCH_FAILED", "Failed to get messages: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Messages retrieved successfully", messages)
}

type markReadRequest struct {
	MessageIDs []string `json:"message_ids" binding:"required"`
}

// MarkRead marks the given messages as read. Only messages addressed to the
// caller are touched; IDs belonging to someone else are silently skipped.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	var request markReadRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	ids := make([]primitive.ObjectID, 0, len(request.MessageIDs))
	for _, raw := range request.MessageIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid message ID: "+raw)
			return
		}
		ids = append(ids, id)
	}

	receiverID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	updated, err := h.messageService.MarkRead(c.Request.Context(), ids, receiverID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "MARK_READ_FAILED", "Failed to mark messages read: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Messages marked as read", gin.H{"updated": updated})
}

// GetUnreadCount returns how many unread messages the caller has.
func (h *MessageHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	count, err := h.messageService.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "UNREAD_COUNT_FAILED", "Failed to get unread count: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Unread count retrieved successfully", gin.H{"unread": count})
}
