package realtime

import (
	"context"
	"encoding/json"
	"time"

	"gocab/internal/models"
	"gocab/internal/observability"
	"gocab/internal/repositories/interfaces"
	"gocab/internal/services"
	"gocab/internal/utils"
	"gocab/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Gateway routes realtime traffic: inbound events into the dispatch and
// message layers, outbound events to the right sessions via the registry
// and hub. A failing event handler reports an error event to the session
// that sent it and nothing else; it never takes down the gateway or other
// sessions.
type Gateway struct {
	registry *Registry
	hub      *Hub
	drivers  interfaces.DriverRepository
	messages *services.MessageService
	logger   *logger.Logger
}

func NewGateway(registry *Registry, hub *Hub, drivers interfaces.DriverRepository, messages *services.MessageService, log *logger.Logger) *Gateway {
	return &Gateway{
		registry: registry,
		hub:      hub,
		drivers:  drivers,
		messages: messages,
		logger:   log,
	}
}

func (g *Gateway) Hub() *Hub {
	return g.hub
}

func (g *Gateway) Registry() *Registry {
	return g.registry
}

// Register adds a freshly authenticated session. Last connect wins: a prior
// session for the same identity is superseded in the registry and left to
// its own disconnect path.
func (g *Gateway) Register(sess *Session) {
	g.registry.Register(sess)
	observability.SessionsConnected.Set(float64(g.registry.Len()))

	g.logger.WithFields(map[string]interface{}{
		"user_id": sess.UserID,
		"role":    string(sess.Role),
	}).Info("Session registered")

	sess.Conn.Send(NewEvent(EventWelcome, map[string]string{
		"message": "Connected successfully",
	}))
}

// Disconnect releases the session's registry entry (unless it was already
// superseded) and cancels its topic subscriptions.
func (g *Gateway) Disconnect(sess *Session) {
	removed := g.registry.Unregister(sess)
	sess.cancelAll()
	observability.SessionsConnected.Set(float64(g.registry.Len()))

	g.logger.WithFields(map[string]interface{}{
		"user_id": sess.UserID,
		"role":    string(sess.Role),
		"removed": removed,
	}).Info("Session disconnected")
}

// HandleEvent dispatches one inbound event.
func (g *Gateway) HandleEvent(ctx context.Context, sess *Session, event Event) {
	switch event.Type {
	case EventLocationUpdate:
		g.handleLocationUpdate(ctx, sess, event)
	case EventMessageSend:
		g.handleMessageSend(ctx, sess, event)
	case EventRideStatusUpdate:
		g.handleRideStatusUpdate(sess, event)
	case EventSubscribe:
		g.handleSubscribe(sess, event)
	case EventUnsubscribe:
		g.handleUnsubscribe(sess, event)
	default:
		sess.Conn.Send(ErrorEvent(EventError, "UNKNOWN_EVENT", "unsupported event type: "+event.Type))
	}
}

// handleLocationUpdate persists a driver location ping and broadcasts it on
// the driver's location topic. Which subscribers care about the driver is
// their concern, not the gateway's.
func (g *Gateway) handleLocationUpdate(ctx context.Context, sess *Session, event Event) {
	if sess.Role != RoleDriver {
		sess.Conn.Send(ErrorEvent(EventError, "FORBIDDEN", "location updates are driver-only"))
		return
	}

	var payload locationUpdatePayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		sess.Conn.Send(ErrorEvent(EventError, "BAD_PAYLOAD", "invalid location payload"))
		return
	}
	if !utils.IsValidCoordinates(payload.Latitude, payload.Longitude) {
		sess.Conn.Send(ErrorEvent(EventError, "INVALID_COORDINATES", "latitude/longitude out of range"))
		return
	}

	driverID, err := primitive.ObjectIDFromHex(sess.UserID)
	if err != nil {
		sess.Conn.Send(ErrorEvent(EventError, "BAD_IDENTITY", "invalid driver id"))
		return
	}

	if err := g.drivers.UpdateLocation(ctx, driverID, payload.Longitude, payload.Latitude); err != nil {
		g.logger.WithError(err).WithField("driver_id", sess.UserID).Error("Driver location update failed")
		sess.Conn.Send(ErrorEvent(EventError, "LOCATION_UPDATE_FAILED", "could not persist location"))
		return
	}

	g.hub.Publish(DriverLocationTopic(sess.UserID), NewEvent(EventLocationUpdate, map[string]interface{}{
		"driver_id": sess.UserID,
		"latitude":  payload.Latitude,
		"longitude": payload.Longitude,
		"at":        time.Now().UTC(),
	}))
}

// handleMessageSend persists the message, pushes it to the receiver's live
// session when there is one, and acknowledges the sender. Offline receivers
// get nothing beyond the normal persistence.
func (g *Gateway) handleMessageSend(ctx context.Context, sess *Session, event Event) {
	var payload messageSendPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		sess.Conn.Send(ErrorEvent(EventMessageError, "BAD_PAYLOAD", "invalid message payload"))
		return
	}

	rideID, err := primitive.ObjectIDFromHex(payload.RideID)
	if err != nil {
		sess.Conn.Send(ErrorEvent(EventMessageError, "BAD_RIDE_ID", "invalid ride id"))
		return
	}
	receiverID, err := primitive.ObjectIDFromHex(payload.ReceiverID)
	if err != nil {
		sess.Conn.Send(ErrorEvent(EventMessageError, "BAD_RECEIVER_ID", "invalid receiver id"))
		return
	}
	senderID, err := primitive.ObjectIDFromHex(sess.UserID)
	if err != nil {
		sess.Conn.Send(ErrorEvent(EventMessageError, "BAD_IDENTITY", "invalid sender id"))
		return
	}

	message, err := g.messages.Send(ctx, senderID, rideID, receiverID, payload.Content, models.MessageType(payload.Type))
	if err != nil {
		g.logger.WithError(err).WithField("sender_id", sess.UserID).Error("Message send failed")
		sess.Conn.Send(ErrorEvent(EventMessageError, "SEND_FAILED", "could not send message"))
		return
	}

	// A receiver that disconnected between lookup and send just misses the
	// push; the message is persisted either way.
	if receiver, ok := g.registry.Lookup(payload.ReceiverID); ok {
		receiver.Conn.Send(NewEvent(EventMessageReceived, message))
	}

	sess.Conn.Send(NewEvent(EventMessageSent, message))
}

// handleRideStatusUpdate broadcasts on the ride's status topic. It does not
// mutate the ride; status persistence is DispatchService.UpdateStatus,
// invoked by the HTTP layer.
func (g *Gateway) handleRideStatusUpdate(sess *Session, event Event) {
	var payload rideStatusPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil || payload.RideID == "" {
		sess.Conn.Send(ErrorEvent(EventError, "BAD_PAYLOAD", "invalid ride status payload"))
		return
	}

	g.hub.Publish(RideStatusTopic(payload.RideID), NewEvent(EventRideStatus, payload))
}

func (g *Gateway) handleSubscribe(sess *Session, event Event) {
	var payload topicPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil || payload.Topic == "" {
		sess.Conn.Send(ErrorEvent(EventError, "BAD_PAYLOAD", "invalid subscribe payload"))
		return
	}

	sub := g.hub.Subscribe(payload.Topic)
	sess.track(sub)

	go func() {
		for ev := range sub.C {
			if sess.Conn.Send(ev) != nil {
				return
			}
		}
	}()
}

func (g *Gateway) handleUnsubscribe(sess *Session, event Event) {
	var payload topicPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil || payload.Topic == "" {
		sess.Conn.Send(ErrorEvent(EventError, "BAD_PAYLOAD", "invalid unsubscribe payload"))
		return
	}

	if sub := sess.untrack(payload.Topic); sub != nil {
		sub.Cancel()
	}
}
