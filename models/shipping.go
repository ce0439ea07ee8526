package models

import (
	"strconv"
	"strings"
	"time"
)

// Package dimension and weight defaults applied when the form leaves them blank.
const (
	DefaultWeightLbs = "5"
	DefaultDimension = "4"
)

// Party is a shipper or recipient as the carrier sees it.
type Party struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Postal  string `json:"postal"`
	Country string `json:"country"` // ISO 3166-1 alpha-2, e.g. "US"
	Phone   string `json:"phone,omitempty"`
}

// Package holds weight in pounds and dimensions in inches, kept as the
// strings the user typed so they reach the carrier unchanged.
type Package struct {
	Weight string `json:"weight"`
	Length string `json:"length"`
	Width  string `json:"width"`
	Height string `json:"height"`
}

// ShipmentRequest is the flat payload submitted by the shipment form and
// round-tripped through the rate page back to the create step.
type ShipmentRequest struct {
	ShipperName    string `form:"shipper_name" json:"shipper_name" binding:"required"`
	ShipperPhone   string `form:"shipper_phone" json:"shipper_phone"`
	ShipperAddress string `form:"shipper_address" json:"shipper_address" binding:"required"`
	ShipperCity    string `form:"shipper_city" json:"shipper_city" binding:"required"`
	ShipperState   string `form:"shipper_state" json:"shipper_state" binding:"required"`
	ShipperPostal  string `form:"shipper_postal" json:"shipper_postal" binding:"required"`
	ShipperCountry string `form:"shipper_country" json:"shipper_country" binding:"required"`

	RecipientName    string `form:"recipient_name" json:"recipient_name" binding:"required"`
	RecipientPhone   string `form:"recipient_phone" json:"recipient_phone"`
	RecipientAddress string `form:"recipient_address" json:"recipient_address" binding:"required"`
	RecipientCity    string `form:"recipient_city" json:"recipient_city" binding:"required"`
	RecipientState   string `form:"recipient_state" json:"recipient_state" binding:"required"`
	RecipientPostal  string `form:"recipient_postal" json:"recipient_postal" binding:"required"`
	RecipientCountry string `form:"recipient_country" json:"recipient_country" binding:"required"`

	Weight string `form:"weight" json:"weight" binding:"required,numeric"`
	Length string `form:"length" json:"length" binding:"omitempty,numeric"`
	Width  string `form:"width" json:"width" binding:"omitempty,numeric"`
	Height string `form:"height" json:"height" binding:"omitempty,numeric"`

	SelectedService string `form:"selected_service" json:"selected_service,omitempty"`
}

// Shipper returns the ship-from party.
func (r *ShipmentRequest) Shipper() Party {
	return Party{
		Name:    r.ShipperName,
		Address: r.ShipperAddress,
		City:    r.ShipperCity,
		State:   r.ShipperState,
		Postal:  r.ShipperPostal,
		Country: r.ShipperCountry,
		Phone:   r.ShipperPhone,
	}
}

// Recipient returns the ship-to party.
func (r *ShipmentRequest) Recipient() Party {
	return Party{
		Name:    r.RecipientName,
		Address: r.RecipientAddress,
		City:    r.RecipientCity,
		State:   r.RecipientState,
		Postal:  r.RecipientPostal,
		Country: r.RecipientCountry,
		Phone:   r.RecipientPhone,
	}
}

// Package returns the parcel with blank fields replaced by defaults.
func (r *ShipmentRequest) Package() Package {
	return Package{
		Weight: orDefault(r.Weight, DefaultWeightLbs),
		Length: orDefault(r.Length, DefaultDimension),
		Width:  orDefault(r.Width, DefaultDimension),
		Height: orDefault(r.Height, DefaultDimension),
	}
}

// WeightLbs parses the package weight. Unparseable input counts as zero.
func (r *ShipmentRequest) WeightLbs() float64 {
	w, err := strconv.ParseFloat(strings.TrimSpace(r.Package().Weight), 64)
	if err != nil {
		return 0
	}
	return w
}

// FormField is a single name/value pair echoed back as a hidden input.
type FormField struct {
	Name  string
	Value string
}

// Fields lists the shipment fields in form order, excluding selected_service,
// so the rate page can resubmit them with the chosen service.
func (r *ShipmentRequest) Fields() []FormField {
	return []FormField{
		{"shipper_name", r.ShipperName},
		{"shipper_phone", r.ShipperPhone},
		{"shipper_address", r.ShipperAddress},
		{"shipper_city", r.ShipperCity},
		{"shipper_state", r.ShipperState},
		{"shipper_postal", r.ShipperPostal},
		{"shipper_country", r.ShipperCountry},
		{"recipient_name", r.RecipientName},
		{"recipient_phone", r.RecipientPhone},
		{"recipient_address", r.RecipientAddress},
		{"recipient_city", r.RecipientCity},
		{"recipient_state", r.RecipientState},
		{"recipient_postal", r.RecipientPostal},
		{"recipient_country", r.RecipientCountry},
		{"weight", r.Weight},
		{"length", r.Length},
		{"width", r.Width},
		{"height", r.Height},
	}
}

// Rate is a single priced service offer.
type Rate struct {
	ServiceCode  string  `json:"service_code"`
	ServiceName  string  `json:"service_name"`
	TotalCharge  float64 `json:"total_charge"` // negotiated total when offered, else published
	Currency     string  `json:"currency"`
	DeliveryDays *int    `json:"delivery_days,omitempty"`
}

// FallbackRate is the outcome of the optional ground-saver lookup. It never
// carries an error: an unavailable service is a normal outcome.
type FallbackRate struct {
	Rate   *Rate
	Reason string // why no rate was obtained, for logs only
}

// Available reports whether the lookup produced a rate.
func (f FallbackRate) Available() bool { return f.Rate != nil }

// ShipmentResult is returned after the carrier accepts a shipment.
type ShipmentResult struct {
	TrackingNumber string `json:"tracking_number"`
	ServiceCode    string `json:"service_code"`
	ServiceName    string `json:"service_name"`
	LabelBytes     []byte `json:"-"`
	LabelURL       string `json:"label_url,omitempty"`
}

// LabelCreatedEvent is published to SNS once a label has been stored.
type LabelCreatedEvent struct {
	EventType      string    `json:"event_type"`
	TrackingNumber string    `json:"tracking_number"`
	ServiceCode    string    `json:"service_code"`
	ServiceName    string    `json:"service_name"`
	LabelURL       string    `json:"label_url"`
	Timestamp      time.Time `json:"timestamp"`
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
