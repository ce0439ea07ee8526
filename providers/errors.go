package providers

import "fmt"

// AuthError is returned when the OAuth token exchange fails.
type AuthError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to get access token: %v", e.Err)
	}
	return fmt.Sprintf("failed to get access token (status %d): %s", e.StatusCode, e.Body)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RateError is returned when the shop rate call fails or cannot be decoded.
type RateError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *RateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rate API error: %v", e.Err)
	}
	return fmt.Sprintf("rate API error (status %d): %s", e.StatusCode, e.Body)
}

func (e *RateError) Unwrap() error { return e.Err }

// ShipmentError is returned when shipment creation fails or the response
// lacks the tracking number or label image.
type ShipmentError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ShipmentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("shipment creation failed: %v", e.Err)
	}
	return fmt.Sprintf("shipment creation failed (status %d): %s", e.StatusCode, e.Body)
}

func (e *ShipmentError) Unwrap() error { return e.Err }
