package businessflow

import "github.com/amirphl/Gashadokuro/models"

// ItemTotal computes the price of one cart item in integer cents. The
// recurring components (base, SMS add-on, forwarding add-on) are each
// multiplied by the subscription duration. Setup fees are not part of the
// cart total; they ride on the materialized PurchasedNumber instead.
// Callers must Normalize the item first so the duration floor and the
// SMS minimum have already been applied.
func ItemTotal(item *models.CartItem) uint64 {
	duration := uint64(item.MonthlyDuration)

	total := item.MonthlyPrice * duration

	if item.SMSEnabled {
		total += item.SMSPrice * duration
	}
	if item.ForwardingType != models.ForwardingNone && item.ForwardingType != "" {
		total += item.ForwardingPrice * duration
	}

	return total
}

// CartTotal sums the item totals of a cart
func CartTotal(items []*models.CartItem) uint64 {
	var total uint64
	for _, item := range items {
		total += ItemTotal(item)
	}
	return total
}
