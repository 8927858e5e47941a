package handlers

import (
	"errors"
	"net/http"
	"time"

	"gocab/internal/models"
	"gocab/internal/services"
	"gocab/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideHandler struct {
	dispatchService *services.DispatchService
	fareService     *services.FareService
}

func NewRideHandler(dispatchService *services.DispatchService, fareService *services.FareService) *RideHandler {
	return &RideHandler{
		dispatchService: dispatchService,
		fareService:     fareService,
	}
}

type ridePointRequest struct {
	Latitude     float64 `json:"latitude" binding:"required"`
	Longitude    float64 `json:"longitude" binding:"required"`
	Address      string  `json:"address"`
	Instructions string  `json:"instructions"`
}

func (r ridePointRequest) toModel() models.RidePoint {
	return models.RidePoint{
		Location:     models.NewGeoPoint(r.Longitude, r.Latitude),
		Address:      r.Address,
		Instructions: r.Instructions,
	}
}

type requestRideRequest struct {
	Pickup        ridePointRequest `json:"pickup" binding:"required"`
	Destination   ridePointRequest `json:"destination" binding:"required"`
	PaymentMethod string           `json:"payment_method"`
	ScheduledFor  *time.Time       `json:"scheduled_for"`
}

// RequestRide creates a ride, estimates its fare and returns nearby
// candidate drivers alongside it.
func (h *RideHandler) RequestRide(c *gin.Context) {
	var request requestRideRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	riderID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	ride, candidates, err := h.dispatchService.RequestRide(
		c.Request.Context(),
		riderID,
		request.Pickup.toModel(),
		request.Destination.toModel(),
		request.PaymentMethod,
		request.ScheduledFor,
	)
	if err != nil {
		respondServiceError(c, err, "RIDE_REQUEST_FAILED", "Failed to request ride")
		return
	}

	summaries := make([]*models.DriverSummary, 0, len(candidates))
	for _, driver := range candidates {
		summaries = append(summaries, driver.Summary())
	}

	utils.CreatedResponse(c, "Ride requested successfully", gin.H{
		"ride":    ride,
		"drivers": summaries,
	})
}

type estimateFareRequest struct {
	Pickup      ridePointRequest `json:"pickup" binding:"required"`
	Destination ridePointRequest `json:"destination" binding:"required"`
}

// EstimateFare quotes a fare without creating a ride.
func (h *RideHandler) EstimateFare(c *gin.Context) {
	var request estimateFareRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	fare, err := h.fareService.EstimateFare(
		c.Request.Context(),
		utils.Point{Lat: request.Pickup.Latitude, Lng: request.Pickup.Longitude},
		utils.Point{Lat: request.Destination.Latitude, Lng: request.Destination.Longitude},
	)
	if err != nil {
		respondServiceError(c, err, "FARE_ESTIMATE_FAILED", "Failed to estimate fare")
		return
	}

	utils.SuccessResponse(c, "Fare estimated successfully", fare)
}

type updateStatusRequest struct {
	Status   string `json:"status" binding:"required"`
	DriverID string `json:"driver_id"`
}

// UpdateStatus advances a ride through its lifecycle. Assigning a driver is
// part of the same operation: accepting a ride carries the driver's ID.
func (h *RideHandler) UpdateStatus(c *gin.Context) {
	rideID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ride ID")
		return
	}

	var request updateStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	var driverID *primitive.ObjectID
	if request.DriverID != "" {
		id, err := primitive.ObjectIDFromHex(request.DriverID)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid driver ID")
			return
		}
		driverID = &id
	}

	ride, err := h.dispatchService.UpdateStatus(c.Request.Context(), rideID, models.RideStatus(request.Status), driverID)
	if err != nil {
		respondServiceError(c, err, "STATUS_UPDATE_FAILED", "Failed to update ride status")
		return
	}

	utils.SuccessResponse(c, "Ride status updated successfully", ride)
}

type rateRideRequest struct {
	Score   float64 `json:"score" binding:"required"`
	Comment string  `json:"comment"`
}

// RateRide records a post-ride rating. The rater's role decides which party
// the score lands on: a driver rates the rider and vice versa.
func (h *RideHandler) RateRide(c *gin.Context) {
	rideID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ride ID")
		return
	}

	var request rateRideRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	raterIsDriver := c.GetString("user_type") == "driver"

	if err := h.dispatchService.RateRide(c.Request.Context(), rideID, request.Score, request.Comment, raterIsDriver); err != nil {
		respondServiceError(c, err, "RATING_FAILED", "Failed to rate ride")
		return
	}

	utils.SuccessResponse(c, "Ride rated successfully", nil)
}

// GetHistory lists the caller's past rides, newest first, each joined with
// a summary of the assigned driver when one exists.
func (h *RideHandler) GetHistory(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	rides, err := h.dispatchService.GetHistory(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "HISTORY_FETCH_FAILED", "Failed to get ride history")
		return
	}

	utils.SuccessResponse(c, "Ride history retrieved successfully", rides)
}

type nearbyDriversRequest struct {
	Latitude  float64 `form:"latitude" binding:"required"`
	Longitude float64 `form:"longitude" binding:"required"`
}

// GetNearbyDrivers returns available drivers around a point.
func (h *RideHandler) GetNearbyDrivers(c *gin.Context) {
	var request nearbyDriversRequest
	if err := c.ShouldBindQuery(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	drivers, err := h.dispatchService.FindNearbyDrivers(c.Request.Context(), utils.Point{
		Lat: request.Latitude,
		Lng: request.Longitude,
	})
	if err != nil {
		respondServiceError(c, err, "NEARBY_FETCH_FAILED", "Failed to find nearby drivers")
		return
	}

	summaries := make([]*models.DriverSummary, 0, len(drivers))
	for _, driver := range drivers {
		summaries = append(summaries, driver.Summary())
	}

	utils.SuccessResponse(c, "Nearby drivers retrieved successfully", summaries)
}

func authenticatedUserID(c *gin.Context) (primitive.ObjectID, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.UnauthorizedResponse(c)
		return primitive.NilObjectID, false
	}

	id, ok := userID.(primitive.ObjectID)
	if !ok {
		utils.BadRequestResponse(c, "Invalid user ID")
		return primitive.NilObjectID, false
	}
	return id, true
}

// respondServiceError maps service errors onto HTTP statuses.
func respondServiceError(c *gin.Context, err error, code, message string) {
	switch {
	case errors.Is(err, models.ErrInvalidCoordinates):
		utils.BadRequestResponse(c, err.Error())
	case errors.Is(err, models.ErrRideNotFound):
		utils.NotFoundResponse(c, "Ride")
	case errors.Is(err, models.ErrDriverNotFound):
		utils.NotFoundResponse(c, "Driver")
	case errors.Is(err, models.ErrUserNotFound):
		utils.NotFoundResponse(c, "User")
	case errors.Is(err, models.ErrConflictingStatusTransition):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, models.ErrPersistenceTimeout):
		utils.ErrorResponse(c, http.StatusGatewayTimeout, "PERSISTENCE_TIMEOUT", message)
	case errors.Is(err, models.ErrPersistenceFailure):
		utils.InternalServerErrorResponse(c)
	default:
		utils.ErrorResponse(c, http.StatusInternalServerError, code, message+": "+err.Error())
	}
}
