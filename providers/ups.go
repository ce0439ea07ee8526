package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/ups-shipping-service/models"
	"go.uber.org/zap"
)

const (
	sandboxHost    = "wwwcie.ups.com"
	productionHost = "onlinetools.ups.com"

	tokenPath       = "/security/v1/oauth/token"
	shopRatePath    = "/api/rating/v1/shop"
	singleRatePath  = "/api/rating/v2409/Rate"
	shipmentPath    = "/api/shipments/v1/ship"
	shipSubVersion  = "1801"
	labelFormatGIF  = "GIF"
	labelUserAgent  = "Mozilla/5.0"
	packagingCustom = "02" // customer supplied package
	chargeTransport = "01" // transportation charges

	defaultShipperPhone   = "5551234567"
	defaultRecipientPhone = "5559876543"
)

// UPSConfig is everything the client needs to reach one UPS environment.
type UPSConfig struct {
	ClientID          string
	ClientSecret      string
	Sandbox           bool
	AccountNumber     string
	ProductionURL     string
	SandboxURL        string
	TransactionSource string
	Timeout           time.Duration
}

// BaseURL returns the API root for the configured environment.
func (c UPSConfig) BaseURL() string {
	if c.Sandbox {
		return strings.TrimRight(c.SandboxURL, "/")
	}
	return strings.TrimRight(c.ProductionURL, "/")
}

// Host returns the Host header UPS expects for the configured environment.
func (c UPSConfig) Host() string {
	if c.Sandbox {
		return sandboxHost
	}
	return productionHost
}

// UPSProvider implements CarrierProvider against the UPS REST API.
// Every call fetches a fresh OAuth token; nothing is cached between calls.
type UPSProvider struct {
	cfg        UPSConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewUPSProvider creates a new UPSProvider.
func NewUPSProvider(cfg UPSConfig, logger *zap.Logger) *UPSProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.TransactionSource == "" {
		cfg.TransactionSource = "testing"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UPSProvider{
		cfg:    cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// ---- CarrierProvider implementation ----

// Authenticate runs the OAuth client-credentials exchange.
func (p *UPSProvider) Authenticate(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL()+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &AuthError{Err: fmt.Errorf("create request: %w", err)}
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(p.cfg.ClientID + ":" + p.cfg.ClientSecret))
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Host = p.cfg.Host()

	status, body, err := p.do(req)
	if err != nil {
		return "", &AuthError{Err: err}
	}
	if !isSuccess(status) {
		p.logger.Error("UPS token request failed", zap.Int("status", status), zap.ByteString("body", body))
		return "", &AuthError{StatusCode: status, Body: string(body)}
	}

	var tok upsTokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", &AuthError{StatusCode: status, Body: string(body), Err: fmt.Errorf("decode response: %w", err)}
	}
	if tok.AccessToken == "" {
		return "", &AuthError{StatusCode: status, Body: string(body), Err: errors.New("response has no access_token")}
	}
	return tok.AccessToken, nil
}

// ShopRates requests rates for all eligible services in one call.
func (p *UPSProvider) ShopRates(ctx context.Context, req *models.ShipmentRequest) ([]models.Rate, error) {
	token, err := p.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	body := upsRateRequestEnvelope{RateRequest: upsRateRequest{
		Request: upsRequest{
			RequestOption:        "Shop",
			TransactionReference: upsTransactionReference{CustomerContext: "Rating and service selection"},
		},
		Shipment: p.rateShipment(req, nil),
	}}

	status, respBody, err := p.postJSON(ctx, shopRatePath, token, body)
	if err != nil {
		return nil, &RateError{Err: err}
	}
	p.logger.Debug("UPS shop rate response", zap.Int("status", status), zap.ByteString("body", respBody))
	if !isSuccess(status) {
		p.logger.Error("UPS rate API error", zap.Int("status", status), zap.ByteString("body", respBody))
		return nil, &RateError{StatusCode: status, Body: string(respBody)}
	}

	var resp upsRateResponseEnvelope
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &RateError{StatusCode: status, Body: string(respBody), Err: fmt.Errorf("decode response: %w", err)}
	}

	rates := make([]models.Rate, 0, len(resp.RateResponse.RatedShipment))
	for _, rs := range resp.RateResponse.RatedShipment {
		rate, err := toRate(rs, ServiceName(rs.Service.Code))
		if err != nil {
			return nil, &RateError{StatusCode: status, Body: string(respBody), Err: err}
		}
		rates = append(rates, rate)
	}
	return rates, nil
}

// FallbackServiceRate prices the ground-saver service for the package weight.
// The service is missing on many lanes, so every failure becomes an
// unavailable result.
func (p *UPSProvider) FallbackServiceRate(ctx context.Context, req *models.ShipmentRequest) models.FallbackRate {
	code := FallbackServiceCode(req.WeightLbs())

	token, err := p.Authenticate(ctx)
	if err != nil {
		return unavailable(err.Error())
	}

	service := &upsCode{Code: code, Description: ServiceName(code)}
	body := upsRateRequestEnvelope{RateRequest: upsRateRequest{
		Request: upsRequest{
			RequestOption:        "Rate",
			TransactionReference: upsTransactionReference{CustomerContext: "UPS Ground Saver Rate"},
		},
		Shipment: p.rateShipment(req, service),
	}}

	status, respBody, err := p.postJSON(ctx, singleRatePath, token, body)
	if err != nil {
		return unavailable(err.Error())
	}
	p.logger.Debug("UPS ground saver response", zap.Int("status", status), zap.ByteString("body", respBody))
	if !isSuccess(status) {
		return unavailable(fmt.Sprintf("status %d: %s", status, string(respBody)))
	}

	var resp upsRateResponseEnvelope
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return unavailable(fmt.Sprintf("decode response: %v", err))
	}
	if len(resp.RateResponse.RatedShipment) == 0 {
		return unavailable("no rated shipment in response")
	}

	rs := resp.RateResponse.RatedShipment[0]
	if rs.Service.Code == "" {
		rs.Service.Code = code
	}
	rate, err := toRate(rs, ServiceName(rs.Service.Code))
	if err != nil {
		return unavailable(err.Error())
	}
	return models.FallbackRate{Rate: &rate}
}

// CreateShipment books the shipment and returns the decoded GIF label.
func (p *UPSProvider) CreateShipment(ctx context.Context, req *models.ShipmentRequest) (*models.ShipmentResult, error) {
	token, err := p.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	code := req.SelectedService
	if code == "" {
		code = ServiceGround
	}
	p.logger.Info("Creating UPS shipment", zap.String("service_code", code))

	shipper := toUPSParty(req.Shipper(), defaultShipperPhone)
	shipper.ShipperNumber = p.cfg.AccountNumber
	pkg := req.Package()

	body := upsShipRequestEnvelope{ShipmentRequest: upsShipRequest{
		Request: upsRequest{
			RequestOption:        "validate",
			SubVersion:           shipSubVersion,
			TransactionReference: upsTransactionReference{CustomerContext: "Creating Shipment and Label"},
		},
		Shipment: upsShipShipment{
			Description:        "Package from " + req.ShipperName,
			Shipper:            shipper,
			ShipTo:             toUPSParty(req.Recipient(), defaultRecipientPhone),
			ShipFrom:           toUPSParty(req.Shipper(), defaultShipperPhone),
			PaymentInformation: p.billShipper(),
			Service:            upsCode{Code: code, Description: ServiceName(code)},
			Package: []upsShipPackage{{
				Description:   "Package",
				Packaging:     upsCode{Code: packagingCustom, Description: "Package"},
				Dimensions:    toUPSDimensions(pkg, true),
				PackageWeight: toUPSWeight(pkg, true),
			}},
			ShipmentRatingOptions: upsRatingOptions{NegotiatedRatesIndicator: "true"},
		},
		LabelSpecification: upsLabelSpecification{
			LabelImageFormat: upsCode{Code: labelFormatGIF, Description: labelFormatGIF},
			HTTPUserAgent:    labelUserAgent,
		},
	}}

	status, respBody, err := p.postJSON(ctx, shipmentPath, token, body)
	if err != nil {
		return nil, &ShipmentError{Err: err}
	}
	if !isSuccess(status) {
		p.logger.Error("UPS ship API error", zap.Int("status", status), zap.ByteString("body", respBody))
		return nil, &ShipmentError{StatusCode: status, Body: string(respBody)}
	}

	var resp upsShipResponseEnvelope
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &ShipmentError{StatusCode: status, Body: string(respBody), Err: fmt.Errorf("decode response: %w", err)}
	}
	results := resp.ShipmentResponse.ShipmentResults.PackageResults
	if len(results) == 0 {
		return nil, &ShipmentError{StatusCode: status, Body: string(respBody), Err: errors.New("response has no package results")}
	}
	pr := results[0]
	if pr.TrackingNumber == "" {
		return nil, &ShipmentError{StatusCode: status, Body: string(respBody), Err: errors.New("response has no tracking number")}
	}
	if pr.ShippingLabel == nil || pr.ShippingLabel.GraphicImage == "" {
		return nil, &ShipmentError{StatusCode: status, Body: string(respBody), Err: errors.New("response has no label image")}
	}
	label, err := base64.StdEncoding.DecodeString(pr.ShippingLabel.GraphicImage)
	if err != nil {
		return nil, &ShipmentError{StatusCode: status, Err: fmt.Errorf("decode label image: %w", err)}
	}

	return &models.ShipmentResult{
		TrackingNumber: pr.TrackingNumber,
		ServiceCode:    code,
		ServiceName:    ServiceName(code),
		LabelBytes:     label,
	}, nil
}

// ---- request builders ----

func (p *UPSProvider) rateShipment(req *models.ShipmentRequest, service *upsCode) upsRateShipment {
	shipper := toRateParty(req.Shipper())
	shipper.ShipperNumber = p.cfg.AccountNumber

	pkg := req.Package()
	// Only the shop request spells out unit descriptions.
	describe := service == nil

	packaging := upsCode{Code: packagingCustom}
	if describe {
		packaging.Description = "Package"
	}

	return upsRateShipment{
		Shipper:  shipper,
		ShipTo:   toRateParty(req.Recipient()),
		ShipFrom: toRateParty(req.Shipper()),
		Service:  service,
		Package: []upsRatePackage{{
			PackagingType: packaging,
			Dimensions:    toUPSDimensions(pkg, describe),
			PackageWeight: toUPSWeight(pkg, describe),
		}},
		ShipmentRatingOptions: upsRatingOptions{NegotiatedRatesIndicator: "true"},
		PaymentInformation:    p.billShipper(),
	}
}

func (p *UPSProvider) billShipper() upsPaymentInformation {
	return upsPaymentInformation{ShipmentCharge: upsShipmentCharge{
		Type:        chargeTransport,
		BillShipper: upsBillShipper{AccountNumber: p.cfg.AccountNumber},
	}}
}

// ---- HTTP helpers ----

func (p *UPSProvider) postJSON(ctx context.Context, path, token string, body interface{}) (int, []byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL()+path, bytes.NewReader(b))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("transId", newTransID())
	req.Header.Set("transactionSrc", p.cfg.TransactionSource)
	req.Host = p.cfg.Host()

	return p.do(req)
}

func (p *UPSProvider) do(req *http.Request) (int, []byte, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBytes, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// newTransID returns a 32 character id, the longest transId UPS accepts.
func newTransID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ---- conversion helpers ----

func toUPSParty(p models.Party, fallbackPhone string) upsParty {
	party := upsParty{
		Name:          p.Name,
		AttentionName: p.Name,
		Address: upsAddress{
			AddressLine:       p.Address,
			City:              p.City,
			StateProvinceCode: p.State,
			PostalCode:        p.Postal,
			CountryCode:       p.Country,
		},
	}
	phone := p.Phone
	if phone == "" {
		phone = fallbackPhone
	}
	if phone != "" {
		party.Phone = &upsPhone{Number: phone}
	}
	return party
}

// toRateParty omits phone and attention name, which rating does not use.
func toRateParty(p models.Party) upsParty {
	return upsParty{
		Name: p.Name,
		Address: upsAddress{
			AddressLine:       p.Address,
			City:              p.City,
			StateProvinceCode: p.State,
			PostalCode:        p.Postal,
			CountryCode:       p.Country,
		},
	}
}

func toUPSDimensions(pkg models.Package, describe bool) upsDimensions {
	unit := upsCode{Code: "IN"}
	if describe {
		unit.Description = "Inches"
	}
	return upsDimensions{
		UnitOfMeasurement: unit,
		Length:            pkg.Length,
		Width:             pkg.Width,
		Height:            pkg.Height,
	}
}

func toUPSWeight(pkg models.Package, describe bool) upsPackageWeight {
	unit := upsCode{Code: "LBS"}
	if describe {
		unit.Description = "Pounds"
	}
	return upsPackageWeight{UnitOfMeasurement: unit, Weight: pkg.Weight}
}

// toRate applies the negotiated-rate-first rule to one rated shipment.
func toRate(rs upsRatedShipment, serviceName string) (models.Rate, error) {
	charge := rs.TotalCharges
	if rs.NegotiatedRateCharges != nil && rs.NegotiatedRateCharges.TotalCharge != nil {
		charge = rs.NegotiatedRateCharges.TotalCharge
	}
	if charge == nil {
		return models.Rate{}, fmt.Errorf("service %s has no total charge", rs.Service.Code)
	}

	amount, err := strconv.ParseFloat(strings.TrimSpace(charge.MonetaryValue), 64)
	if err != nil {
		return models.Rate{}, fmt.Errorf("service %s: invalid charge %q: %w", rs.Service.Code, charge.MonetaryValue, err)
	}

	rate := models.Rate{
		ServiceCode: rs.Service.Code,
		ServiceName: serviceName,
		TotalCharge: amount,
		Currency:    charge.CurrencyCode,
	}
	if rs.GuaranteedDelivery != nil {
		if days, err := strconv.Atoi(strings.TrimSpace(rs.GuaranteedDelivery.BusinessDaysInTransit)); err == nil {
			rate.DeliveryDays = &days
		}
	}
	return rate, nil
}

func unavailable(reason string) models.FallbackRate {
	return models.FallbackRate{Reason: reason}
}
