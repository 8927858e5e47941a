package models

// GeoPoint is a GeoJSON point as stored in MongoDB 2dsphere indexes.
// Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

func NewGeoPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

func (p GeoPoint) Latitude() float64 {
	if len(p.Coordinates) >= 2 {
		return p.Coordinates[1]
	}
	return 0
}

func (p GeoPoint) Longitude() float64 {
	if len(p.Coordinates) >= 1 {
		return p.Coordinates[0]
	}
	return 0
}

// RidePoint is a pickup or destination: a geo point plus its human-readable
// address and optional rider instructions.
type RidePoint struct {
	Location     GeoPoint `json:"location" bson:"location"`
	Address      string   `json:"address" bson:"address"`
	Instructions string   `json:"instructions,omitempty" bson:"instructions,omitempty"`
}
