package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationSettings struct {
	PushEnabled  bool `json:"push_enabled" bson:"push_enabled"`
	EmailEnabled bool `json:"email_enabled" bson:"email_enabled"`
	SMSEnabled   bool `json:"sms_enabled" bson:"sms_enabled"`
	RideUpdates  bool `json:"ride_updates" bson:"ride_updates"`
	Promotions   bool `json:"promotions" bson:"promotions"`
}

// User is a rider account. Rating is the rolling average of scores drivers
// have given this rider across completed rides.
type User struct {
	ID                   primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Email                string               `json:"email" bson:"email"`
	Phone                string               `json:"phone" bson:"phone"`
	FirstName            string               `json:"first_name" bson:"first_name"`
	LastName             string               `json:"last_name" bson:"last_name"`
	ProfilePicture       string               `json:"profile_picture,omitempty" bson:"profile_picture,omitempty"`
	DefaultPaymentMethod string               `json:"default_payment_method,omitempty" bson:"default_payment_method,omitempty"`
	PreferredLanguage    string               `json:"preferred_language" bson:"preferred_language"`
	NotificationSettings NotificationSettings `json:"notification_settings" bson:"notification_settings"`
	Rating               float64              `json:"rating" bson:"rating"`
	TotalRides           int64                `json:"total_rides" bson:"total_rides"`
	CreatedAt            time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at" bson:"updated_at"`
}
