package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DriverStatus string
type VehicleType string

const (
	DriverStatusAvailable DriverStatus = "available"
	DriverStatusBusy      DriverStatus = "busy"
	DriverStatusOffline   DriverStatus = "offline"

	VehicleTypeComfort   VehicleType = "comfort"
	VehicleTypeExecutive VehicleType = "executive"
	VehicleTypeMax       VehicleType = "max"
)

type VehicleInfo struct {
	Make        string      `json:"make" bson:"make"`
	Model       string      `json:"model" bson:"model"`
	Year        int         `json:"year" bson:"year"`
	Color       string      `json:"color" bson:"color"`
	PlateNumber string      `json:"plate_number" bson:"plate_number"`
	Type        VehicleType `json:"type" bson:"type"`
	Features    []string    `json:"features" bson:"features"`
}

type DriverDocuments struct {
	License         string     `json:"license" bson:"license"`
	Insurance       string     `json:"insurance" bson:"insurance"`
	Registration    string     `json:"registration" bson:"registration"`
	BackgroundCheck string     `json:"background_check" bson:"background_check"`
	LicenseExpiry   *time.Time `json:"license_expiry,omitempty" bson:"license_expiry,omitempty"`
	InsuranceExpiry *time.Time `json:"insurance_expiry,omitempty" bson:"insurance_expiry,omitempty"`
}

type Driver struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email          string             `json:"email" bson:"email"`
	Phone          string             `json:"phone" bson:"phone"`
	FirstName      string             `json:"first_name" bson:"first_name"`
	LastName       string             `json:"last_name" bson:"last_name"`
	ProfilePicture string             `json:"profile_picture" bson:"profile_picture"`
	VehicleInfo    VehicleInfo        `json:"vehicle_info" bson:"vehicle_info"`
	Location       GeoPoint           `json:"location" bson:"location"`
	Status         DriverStatus       `json:"status" bson:"status"`
	Rating         float64            `json:"rating" bson:"rating"`
	TotalRides     int64              `json:"total_rides" bson:"total_rides"`
	Documents      DriverDocuments    `json:"documents" bson:"documents"`
	LastLocationAt *time.Time         `json:"last_location_at,omitempty" bson:"last_location_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
}

func (d *Driver) Summary() *DriverSummary {
	return &DriverSummary{
		ID:             d.ID,
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		ProfilePicture: d.ProfilePicture,
		Rating:         d.Rating,
	}
}
