package providers

import (
	"bytes"
	"encoding/json"
)

// ---- UPS API request structs ----

type upsTransactionReference struct {
	CustomerContext string `json:"CustomerContext"`
}

type upsRequest struct {
	RequestOption        string                  `json:"RequestOption"`
	SubVersion           string                  `json:"SubVersion,omitempty"`
	TransactionReference upsTransactionReference `json:"TransactionReference"`
}

type upsCode struct {
	Code        string `json:"Code"`
	Description string `json:"Description,omitempty"`
}

type upsAddress struct {
	AddressLine       string `json:"AddressLine"`
	City              string `json:"City"`
	StateProvinceCode string `json:"StateProvinceCode"`
	PostalCode        string `json:"PostalCode"`
	CountryCode       string `json:"CountryCode"`
}

type upsPhone struct {
	Number string `json:"Number"`
}

type upsParty struct {
	Name          string     `json:"Name"`
	AttentionName string     `json:"AttentionName,omitempty"`
	ShipperNumber string     `json:"ShipperNumber,omitempty"`
	Phone         *upsPhone  `json:"Phone,omitempty"`
	Address       upsAddress `json:"Address"`
}

type upsDimensions struct {
	UnitOfMeasurement upsCode `json:"UnitOfMeasurement"`
	Length            string  `json:"Length"`
	Width             string  `json:"Width"`
	Height            string  `json:"Height"`
}

type upsPackageWeight struct {
	UnitOfMeasurement upsCode `json:"UnitOfMeasurement"`
	Weight            string  `json:"Weight"`
}

type upsRatingOptions struct {
	NegotiatedRatesIndicator string `json:"NegotiatedRatesIndicator"`
}

type upsBillShipper struct {
	AccountNumber string `json:"AccountNumber"`
}

type upsShipmentCharge struct {
	Type        string         `json:"Type"`
	BillShipper upsBillShipper `json:"BillShipper"`
}

type upsPaymentInformation struct {
	ShipmentCharge upsShipmentCharge `json:"ShipmentCharge"`
}

type upsRatePackage struct {
	PackagingType upsCode          `json:"PackagingType"`
	Dimensions    upsDimensions    `json:"Dimensions"`
	PackageWeight upsPackageWeight `json:"PackageWeight"`
}

type upsRateShipment struct {
	Shipper               upsParty              `json:"Shipper"`
	ShipTo                upsParty              `json:"ShipTo"`
	ShipFrom              upsParty              `json:"ShipFrom"`
	Service               *upsCode              `json:"Service,omitempty"`
	Package               []upsRatePackage      `json:"Package"`
	ShipmentRatingOptions upsRatingOptions      `json:"ShipmentRatingOptions"`
	PaymentInformation    upsPaymentInformation `json:"PaymentInformation"`
}

type upsRateRequest struct {
	Request  upsRequest      `json:"Request"`
	Shipment upsRateShipment `json:"Shipment"`
}

type upsRateRequestEnvelope struct {
	RateRequest upsRateRequest `json:"RateRequest"`
}

type upsShipPackage struct {
	Description   string           `json:"Description"`
	Packaging     upsCode          `json:"Packaging"`
	Dimensions    upsDimensions    `json:"Dimensions"`
	PackageWeight upsPackageWeight `json:"PackageWeight"`
}

type upsShipShipment struct {
	Description           string                `json:"Description"`
	Shipper               upsParty              `json:"Shipper"`
	ShipTo                upsParty              `json:"ShipTo"`
	ShipFrom              upsParty              `json:"ShipFrom"`
	PaymentInformation    upsPaymentInformation `json:"PaymentInformation"`
	Service               upsCode               `json:"Service"`
	Package               []upsShipPackage      `json:"Package"`
	ShipmentRatingOptions upsRatingOptions      `json:"ShipmentRatingOptions"`
}

type upsLabelSpecification struct {
	LabelImageFormat upsCode `json:"LabelImageFormat"`
	HTTPUserAgent    string  `json:"HTTPUserAgent"`
}

type upsShipRequest struct {
	Request            upsRequest            `json:"Request"`
	Shipment           upsShipShipment       `json:"Shipment"`
	LabelSpecification upsLabelSpecification `json:"LabelSpecification"`
}

type upsShipRequestEnvelope struct {
	ShipmentRequest upsShipRequest `json:"ShipmentRequest"`
}

// ---- UPS API response structs ----

type upsTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   string `json:"expires_in"`
}

type upsCharge struct {
	CurrencyCode  string `json:"CurrencyCode"`
	MonetaryValue string `json:"MonetaryValue"`
}

type upsRatedShipment struct {
	Service               upsCode    `json:"Service"`
	TotalCharges          *upsCharge `json:"TotalCharges"`
	NegotiatedRateCharges *struct {
		TotalCharge *upsCharge `json:"TotalCharge"`
	} `json:"NegotiatedRateCharges"`
	GuaranteedDelivery *struct {
		BusinessDaysInTransit string `json:"BusinessDaysInTransit"`
	} `json:"GuaranteedDelivery"`
}

// ratedShipments accepts both shapes UPS uses for RatedShipment: an array
// for Shop requests and a bare object for single-service Rate requests.
type ratedShipments []upsRatedShipment

func (r *ratedShipments) UnmarshalJSON(data []byte) error {
	return unmarshalOneOrMany(data, (*[]upsRatedShipment)(r))
}

type upsRateResponseEnvelope struct {
	RateResponse struct {
		RatedShipment ratedShipments `json:"RatedShipment"`
	} `json:"RateResponse"`
}

type upsPackageResult struct {
	TrackingNumber string `json:"TrackingNumber"`
	ShippingLabel  *struct {
		ImageFormat  upsCode `json:"ImageFormat"`
		GraphicImage string  `json:"GraphicImage"`
	} `json:"ShippingLabel"`
}

// packageResults is an object for single-package shipments and an array
// otherwise.
type packageResults []upsPackageResult

func (p *packageResults) UnmarshalJSON(data []byte) error {
	return unmarshalOneOrMany(data, (*[]upsPackageResult)(p))
}

type upsShipResponseEnvelope struct {
	ShipmentResponse struct {
		ShipmentResults struct {
			ShipmentIdentificationNumber string         `json:"ShipmentIdentificationNumber"`
			PackageResults               packageResults `json:"PackageResults"`
		} `json:"ShipmentResults"`
	} `json:"ShipmentResponse"`
}

func unmarshalOneOrMany[T any](data []byte, out *[]T) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*out = nil
		return nil
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, out)
	}
	var single T
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return err
	}
	*out = []T{single}
	return nil
}
