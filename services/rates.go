package services

import (
	"sort"

	"github.com/yashrajoria/ups-shipping-service/models"
)

// MergeRates appends the fallback rate, when available, to the shop rates and
// orders the result by total charge, cheapest first. Equal charges keep their
// input order. Neither input is modified and duplicates are kept.
func MergeRates(shop []models.Rate, fallback models.FallbackRate) []models.Rate {
	merged := make([]models.Rate, 0, len(shop)+1)
	merged = append(merged, shop...)
	if fallback.Available() {
		merged = append(merged, *fallback.Rate)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].TotalCharge < merged[j].TotalCharge
	})
	return merged
}
