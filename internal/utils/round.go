package utils

import "github.com/shopspring/decimal"

// Round rounds v half away from zero to places decimal digits.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// FormatFloat renders v rounded to places digits without trailing zeros.
func FormatFloat(v float64, places int32) string {
	return decimal.NewFromFloat(v).Round(places).String()
}
