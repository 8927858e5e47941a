package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideStatus string

const (
	RideStatusPending    RideStatus = "pending"
	RideStatusSearching  RideStatus = "searching"
	RideStatusAccepted   RideStatus = "accepted"
	RideStatusArrived    RideStatus = "arrived"
	RideStatusInProgress RideStatus = "in_progress"
	RideStatusCompleted  RideStatus = "completed"
	RideStatusCancelled  RideStatus = "cancelled"
)

// IsTerminal reports whether no further status transition is allowed.
func (s RideStatus) IsTerminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// AllowedPrevious returns the statuses a ride may transition to s from.
// Cancellation is reachable from every non-terminal state; every other
// transition follows the pickup flow one step at a time, except that a ride
// may start directly from accepted when the arrival ping was never sent.
func (s RideStatus) AllowedPrevious() []RideStatus {
	switch s {
	case RideStatusSearching:
		return []RideStatus{RideStatusPending}
	case RideStatusAccepted:
		return []RideStatus{RideStatusPending, RideStatusSearching}
	case RideStatusArrived:
		return []RideStatus{RideStatusAccepted}
	case RideStatusInProgress:
		return []RideStatus{RideStatusAccepted, RideStatusArrived}
	case RideStatusCompleted:
		return []RideStatus{RideStatusInProgress}
	case RideStatusCancelled:
		return []RideStatus{
			RideStatusPending, RideStatusSearching, RideStatusAccepted,
			RideStatusArrived, RideStatusInProgress,
		}
	default:
		return nil
	}
}

// Fare is the price breakdown attached to a ride. Surge is set only when the
// multiplier exceeds 1.0; Total is always (Base+Distance+Time) times the
// effective multiplier.
type Fare struct {
	Base     float64  `json:"base" bson:"base"`
	Distance float64  `json:"distance" bson:"distance"`
	Time     float64  `json:"time" bson:"time"`
	Surge    *float64 `json:"surge,omitempty" bson:"surge,omitempty"`
	Total    float64  `json:"total" bson:"total"`
	Currency string   `json:"currency" bson:"currency"`
}

// SurgeFactor returns the effective multiplier, 1.0 when none was applied.
func (f Fare) SurgeFactor() float64 {
	if f.Surge != nil {
		return *f.Surge
	}
	return 1.0
}

// RideRating holds both sides of the post-ride rating exchange. Rider is the
// score the driver gave the rider; Driver is the score the rider gave the
// driver.
type RideRating struct {
	Rider         *float64 `json:"rider,omitempty" bson:"rider,omitempty"`
	Driver        *float64 `json:"driver,omitempty" bson:"driver,omitempty"`
	RiderComment  string   `json:"rider_comment,omitempty" bson:"rider_comment,omitempty"`
	DriverComment string   `json:"driver_comment,omitempty" bson:"driver_comment,omitempty"`
}

type Ride struct {
	ID            primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	RiderID       primitive.ObjectID  `json:"rider_id" bson:"rider_id"`
	DriverID      *primitive.ObjectID `json:"driver_id,omitempty" bson:"driver_id,omitempty"`
	Pickup        RidePoint           `json:"pickup" bson:"pickup"`
	Destination   RidePoint           `json:"destination" bson:"destination"`
	Status        RideStatus          `json:"status" bson:"status"`
	Fare          Fare                `json:"fare" bson:"fare"`
	PaymentMethod string              `json:"payment_method" bson:"payment_method"`
	ScheduledFor  *time.Time          `json:"scheduled_for,omitempty" bson:"scheduled_for,omitempty"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	Rating        *RideRating         `json:"rating,omitempty" bson:"rating,omitempty"`
	CreatedAt     time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at" bson:"updated_at"`
}

// DriverSummary is the slice of a driver profile joined into ride history.
type DriverSummary struct {
	ID             primitive.ObjectID `json:"id" bson:"_id"`
	FirstName      string             `json:"first_name" bson:"first_name"`
	LastName       string             `json:"last_name" bson:"last_name"`
	ProfilePicture string             `json:"profile_picture" bson:"profile_picture"`
	Rating         float64            `json:"rating" bson:"rating"`
}

// RideWithDriver is a history entry: the ride plus its driver summary, when
// a driver was assigned.
type RideWithDriver struct {
	Ride   `bson:",inline"`
	Driver *DriverSummary `json:"driver,omitempty" bson:"driver,omitempty"`
}
