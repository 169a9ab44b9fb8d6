package booking

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DeliveryType describes how the device reaches the shop.
type DeliveryType struct {
	Code            string          `json:"code"`
	Label           string          `json:"label"`
	Fee             decimal.Decimal `json:"fee"`
	RequiresAddress bool            `json:"requires_address"`
}

// DeliveryTypes lists the offered options in display order.
var DeliveryTypes = []DeliveryType{
	{Code: "in_store", Label: "Drop off in store", Fee: decimal.Zero, RequiresAddress: false},
	{Code: "mobile", Label: "Mobile technician visit", Fee: decimal.NewFromInt(25), RequiresAddress: true},
	{Code: "pickup_delivery", Label: "Pickup and delivery", Fee: decimal.NewFromInt(15), RequiresAddress: true},
}

// LookupDeliveryType finds a delivery type by code, case-insensitively.
func LookupDeliveryType(code string) (DeliveryType, bool) {
	code = strings.TrimSpace(code)
	for _, d := range DeliveryTypes {
		if strings.EqualFold(d.Code, code) {
			return d, true
		}
	}
	return DeliveryType{}, false
}
