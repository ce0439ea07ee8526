package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/yashrajoria/ups-shipping-service/models"
	awspkg "github.com/yashrajoria/ups-shipping-service/pkg/aws"
	"github.com/yashrajoria/ups-shipping-service/providers"
	"github.com/yashrajoria/ups-shipping-service/storage"
	"go.uber.org/zap"
)

const labelContentType = "image/gif"

// ServiceError is a typed error with an HTTP status code. Err keeps the
// underlying cause for display on the error page.
type ServiceError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string { return e.Message }

func (e *ServiceError) Unwrap() error { return e.Err }

// Chain lists the messages of the wrapped errors, outermost first.
func (e *ServiceError) Chain() []string {
	var chain []string
	for err := e.Err; err != nil; err = errors.Unwrap(err) {
		chain = append(chain, err.Error())
	}
	return chain
}

// ShippingService defines the business logic interface.
type ShippingService interface {
	GetRates(ctx context.Context, req *models.ShipmentRequest) ([]models.Rate, *ServiceError)
	CreateShipment(ctx context.Context, req *models.ShipmentRequest) (*models.ShipmentResult, *ServiceError)
	TestAuth(ctx context.Context) (string, *ServiceError)
}

type shippingServiceImpl struct {
	provider    providers.CarrierProvider
	store       storage.LabelStore
	snsClient   awspkg.SNSPublisher
	snsTopicArn string
	metrics     awspkg.MetricsRecorder
	logger      *zap.Logger
}

// NewShippingService creates a new ShippingService. snsClient and metrics may
// be nil.
func NewShippingService(
	provider providers.CarrierProvider,
	store storage.LabelStore,
	snsClient awspkg.SNSPublisher,
	snsTopicArn string,
	metrics awspkg.MetricsRecorder,
	logger *zap.Logger,
) ShippingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &shippingServiceImpl{
		provider:    provider,
		store:       store,
		snsClient:   snsClient,
		snsTopicArn: snsTopicArn,
		metrics:     metrics,
		logger:      logger,
	}
}

// GetRates shops every service on the lane, adds the ground-saver quote when
// the carrier has one, and returns them cheapest first. An empty list is not
// an error.
func (s *shippingServiceImpl) GetRates(ctx context.Context, req *models.ShipmentRequest) ([]models.Rate, *ServiceError) {
	shop, err := s.provider.ShopRates(ctx, req)
	if err != nil {
		s.logger.Error("ShopRates failed", zap.Error(err))
		return nil, &ServiceError{
			StatusCode: http.StatusBadGateway,
			Message:    "Failed to retrieve shipping rates: " + err.Error(),
			Err:        err,
		}
	}

	fallback := s.provider.FallbackServiceRate(ctx, req)
	if !fallback.Available() {
		s.logger.Info("Ground saver rate unavailable", zap.String("reason", fallback.Reason))
		s.count(awspkg.MetricFallbackUnavailable)
	}

	rates := MergeRates(shop, fallback)
	s.logger.Info("Rates quoted",
		zap.Int("count", len(rates)),
		zap.String("from_postal", req.ShipperPostal),
		zap.String("to_postal", req.RecipientPostal),
	)
	s.count(awspkg.MetricRatesQuoted)
	return rates, nil
}

// CreateShipment books the shipment, stores the label and announces it.
func (s *shippingServiceImpl) CreateShipment(ctx context.Context, req *models.ShipmentRequest) (*models.ShipmentResult, *ServiceError) {
	result, err := s.provider.CreateShipment(ctx, req)
	if err != nil {
		s.logger.Error("CreateShipment failed",
			zap.String("service_code", req.SelectedService),
			zap.Error(err),
		)
		s.count(awspkg.MetricLabelsFailed)
		return nil, &ServiceError{
			StatusCode: http.StatusBadGateway,
			Message:    "Failed to create shipment: " + err.Error(),
			Err:        err,
		}
	}

	url, err := s.store.Save(ctx, storage.LabelKey(result.TrackingNumber), result.LabelBytes, labelContentType)
	if err != nil {
		s.logger.Error("Failed to store label",
			zap.String("tracking_number", result.TrackingNumber),
			zap.Error(err),
		)
		s.count(awspkg.MetricLabelsFailed)
		return nil, &ServiceError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Shipment " + result.TrackingNumber + " was created but its label could not be saved",
			Err:        err,
		}
	}
	result.LabelURL = url

	s.logger.Info("Label created",
		zap.String("tracking_number", result.TrackingNumber),
		zap.String("service_code", result.ServiceCode),
		zap.String("label_url", url),
	)
	s.count(awspkg.MetricLabelsCreated)

	s.publishEvent(ctx, models.LabelCreatedEvent{
		EventType:      "label_created",
		TrackingNumber: result.TrackingNumber,
		ServiceCode:    result.ServiceCode,
		ServiceName:    result.ServiceName,
		LabelURL:       url,
		Timestamp:      time.Now(),
	})

	return result, nil
}

// TestAuth fetches a token to confirm the credentials work.
func (s *shippingServiceImpl) TestAuth(ctx context.Context) (string, *ServiceError) {
	token, err := s.provider.Authenticate(ctx)
	if err != nil {
		s.logger.Error("Authentication test failed", zap.Error(err))
		return "", &ServiceError{StatusCode: http.StatusInternalServerError, Message: err.Error(), Err: err}
	}
	return token, nil
}

// publishEvent marshals an event and publishes it to SNS (non-fatal on error).
func (s *shippingServiceImpl) publishEvent(ctx context.Context, event interface{}) {
	if s.snsClient == nil || s.snsTopicArn == "" {
		s.logger.Debug("SNS not configured, skipping event publish")
		return
	}
	b, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal SNS event", zap.Error(err))
		return
	}
	if err := s.snsClient.Publish(ctx, s.snsTopicArn, b); err != nil {
		s.logger.Error("Failed to publish SNS event", zap.Error(err))
		return
	}
	s.logger.Info("Published SNS event", zap.String("topic", s.snsTopicArn))
}

func (s *shippingServiceImpl) count(metric string) {
	if s.metrics == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.metrics.RecordCount(ctx, metric, map[string]string{"Service": "ups-shipping-service"}); err != nil {
			s.logger.Debug("Failed to record metric", zap.String("metric", metric), zap.Error(err))
		}
	}()
}
