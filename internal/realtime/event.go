package realtime

import (
	"encoding/json"
)

// Inbound event types accepted from clients, and the outbound types pushed
// back. The wire names match the mobile clients' socket protocol.
const (
	EventLocationUpdate   = "location:update"
	EventMessageSend      = "message:send"
	EventMessageReceived  = "message:received"
	EventMessageSent      = "message:sent"
	EventMessageError     = "message:error"
	EventRideStatusUpdate = "ride:statusUpdate"
	EventRideStatus       = "ride:status"
	EventSubscribe        = "subscribe"
	EventUnsubscribe      = "unsubscribe"
	EventWelcome          = "welcome"
	EventError            = "error"
)

// Event is one frame on a realtime connection, inbound or outbound.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent builds an event with the payload marshaled in place.
func NewEvent(eventType string, payload interface{}) Event {
	data, _ := json.Marshal(payload)
	return Event{Type: eventType, Data: data}
}

// ErrorEvent is the scoped failure report pushed to the session whose event
// handler failed. Other sessions never see it.
func ErrorEvent(eventType, code, message string) Event {
	return NewEvent(eventType, map[string]string{
		"code":    code,
		"message": message,
	})
}

type locationUpdatePayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type messageSendPayload struct {
	RideID     string `json:"ride_id"`
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
	Type       string `json:"type"`
}

type rideStatusPayload struct {
	RideID   string                 `json:"ride_id"`
	Status   string                 `json:"status"`
	Location *locationUpdatePayload `json:"location,omitempty"`
}

type topicPayload struct {
	Topic string `json:"topic"`
}
