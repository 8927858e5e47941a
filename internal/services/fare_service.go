package services

import (
	"context"
	"fmt"

	"gocab/internal/config"
	"gocab/internal/models"
	"gocab/internal/repositories/interfaces"
	"gocab/internal/utils"
	"gocab/pkg/logger"
)

// FareService estimates ride fares. It is stateless: distance comes from the
// haversine formula, the time estimate from a configured minutes-per-km
// heuristic, and the surge factor from the local demand/supply ratio.
type FareService struct {
	rides   interfaces.RideRepository
	drivers interfaces.DriverRepository
	pricing *config.PricingConfig
	logger  *logger.Logger
}

func NewFareService(rides interfaces.RideRepository, drivers interfaces.DriverRepository, pricing *config.PricingConfig, log *logger.Logger) *FareService {
	return &FareService{
		rides:   rides,
		drivers: drivers,
		pricing: pricing,
		logger:  log,
	}
}

// EstimateFare computes the full fare breakdown for a trip. The surge field
// is set only when the multiplier exceeds 1.0.
func (s *FareService) EstimateFare(ctx context.Context, pickup, destination utils.Point) (*models.Fare, error) {
	if !pickup.IsValid() || !destination.IsValid() {
		return nil, fmt.Errorf("%w: pickup=%s destination=%s", models.ErrInvalidCoordinates, pickup, destination)
	}

	distanceKM := utils.CalculateDistance(pickup.Lat, pickup.Lng, destination.Lat, destination.Lng)
	estimatedMinutes := distanceKM * s.pricing.MinutesPerKM

	baseFare := s.pricing.BaseFare
	distanceFare := distanceKM * s.pricing.PerKMRate
	timeFare := estimatedMinutes * s.pricing.PerMinuteRate

	surge := s.surgeFactor(ctx, pickup)

	fare := &models.Fare{
		Base:     baseFare,
		Distance: distanceFare,
		Time:     timeFare,
		Total:    (baseFare + distanceFare + timeFare) * surge,
		Currency: s.pricing.Currency,
	}
	if surge > 1.0 {
		fare.Surge = &surge
	}

	return fare, nil
}

// surgeFactor derives the multiplier from the ratio of active rides to
// available drivers around the pickup point. Surge pricing degrades to 1.0
// on any failure computing the ratio; it must never block ride creation.
func (s *FareService) surgeFactor(ctx context.Context, pickup utils.Point) float64 {
	activeRides, err := s.rides.CountActiveNear(ctx, pickup.Lng, pickup.Lat, s.pricing.SurgeRadiusKM)
	if err != nil {
		s.logger.WithError(err).Warn("Surge pricing unavailable, defaulting to no surge")
		return 1.0
	}

	availableDrivers, err := s.drivers.CountAvailableNear(ctx, pickup.Lng, pickup.Lat, s.pricing.SurgeRadiusKM)
	if err != nil {
		s.logger.WithError(err).Warn("Surge pricing unavailable, defaulting to no surge")
		return 1.0
	}

	// Maximum surge when there is demand but no supply at all.
	if availableDrivers == 0 {
		return 2.0
	}

	ratio := float64(activeRides) / float64(availableDrivers)
	switch {
	case ratio > 2:
		return 2.0
	case ratio > 1.5:
		return 1.75
	case ratio > 1:
		return 1.5
	case ratio > 0.75:
		return 1.25
	default:
		return 1.0
	}
}
