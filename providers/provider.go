package providers

import (
	"context"

	"github.com/yashrajoria/ups-shipping-service/models"
)

// CarrierProvider is the carrier integration used by the shipping service.
type CarrierProvider interface {
	// Authenticate exchanges the configured client credentials for a bearer token.
	Authenticate(ctx context.Context) (string, error)

	// ShopRates returns rates for every service the carrier offers on the lane.
	ShopRates(ctx context.Context, req *models.ShipmentRequest) ([]models.Rate, error)

	// FallbackServiceRate looks up the ground-saver service, which the shop
	// call never includes. Failure is reported in the result, not as an error.
	FallbackServiceRate(ctx context.Context, req *models.ShipmentRequest) models.FallbackRate

	// CreateShipment books the selected service and returns the decoded label.
	CreateShipment(ctx context.Context, req *models.ShipmentRequest) (*models.ShipmentResult, error)
}
