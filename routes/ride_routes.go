package routes

import (
	"gocab/internal/middleware"
	"gocab/internal/realtime"

	handlers "gocab/internal/handlers/shared"

	"github.com/gin-gonic/gin"
)

// SetupRideRoutes wires the dispatch and messaging HTTP surface.
func SetupRideRoutes(r *gin.RouterGroup, jwtSecret string, rideHandler *handlers.RideHandler, messageHandler *handlers.MessageHandler) {
	rides := r.Group("/rides")
	rides.Use(middleware.AuthRequired(jwtSecret))
	{
		// Requesting a ride and browsing history treat the caller as the
		// rider, so both are rider-only.
		rides.POST("/", middleware.RoleRequired("rider"), rideHandler.RequestRide)
		rides.POST("/estimate", rideHandler.EstimateFare)
		rides.PUT("/:id/status", rideHandler.UpdateStatus)
		rides.POST("/:id/rate", rideHandler.RateRide)
		rides.GET("/history", middleware.RoleRequired("rider"), rideHandler.GetHistory)
		rides.GET("/nearby-drivers", rideHandler.GetNearbyDrivers)

		// Ride-scoped chat
		rides.POST("/:id/messages", messageHandler.SendMessage)
		rides.GET("/:id/messages", messageHandler.GetMessages)
	}

	messages := r.Group("/messages")
	messages.Use(middleware.AuthRequired(jwtSecret))
	{
		messages.PUT("/read", messageHandler.MarkRead)
		messages.GET("/unread-count", messageHandler.GetUnreadCount)
	}
}

// SetupRealtimeRoutes exposes the websocket endpoint. Authentication happens
// inside the handler, before the upgrade.
func SetupRealtimeRoutes(r *gin.Engine, path string, wsHandler *realtime.Handler) {
	r.GET(path, wsHandler.HandleConnection)
}
