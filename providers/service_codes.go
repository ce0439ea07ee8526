package providers

import "fmt"

// UPS service codes referenced directly by the client.
const (
	ServiceGround             = "03"
	ServiceGroundSaverUnder1  = "92"
	ServiceGroundSaver        = "93"
	groundSaverWeightLimitLbs = 1.0
)

var serviceNames = map[string]string{
	"01": "UPS Next Day Air",
	"02": "UPS 2nd Day Air",
	"03": "UPS Ground",
	"07": "UPS Worldwide Express",
	"08": "UPS Worldwide Expedited",
	"11": "UPS Standard",
	"12": "UPS 3 Day Select",
	"13": "UPS Next Day Air Saver",
	"14": "UPS Next Day Air Early",
	"54": "UPS Worldwide Express Plus",
	"59": "UPS 2nd Day Air A.M.",
	"65": "UPS Saver",
	"70": "UPS Access Point Economy",
	"92": "UPS Ground Saver (Under 1lb)",
	"93": "UPS Ground Saver",
}

// ServiceName maps a UPS service code to its display name.
func ServiceName(code string) string {
	if name, ok := serviceNames[code]; ok {
		return name
	}
	return fmt.Sprintf("Service Code %s", code)
}

// FallbackServiceCode picks the ground-saver code for a package weight.
// Packages under one pound use 92, everything else 93.
func FallbackServiceCode(weightLbs float64) string {
	if weightLbs < groundSaverWeightLimitLbs {
		return ServiceGroundSaverUnder1
	}
	return ServiceGroundSaver
}
