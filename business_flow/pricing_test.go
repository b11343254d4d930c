package businessflow

import (
	"testing"

	"github.com/amirphl/Gashadokuro/models"
	"github.com/stretchr/testify/assert"
)

func TestItemTotal(t *testing.T) {
	t.Run("BaseOnly", func(t *testing.T) {
		item := &models.CartItem{
			MonthlyPrice:    500,
			MonthlyDuration: 3,
			ForwardingType:  models.ForwardingNone,
		}
		// 500 * 3 months
		assert.Equal(t, uint64(1500), ItemTotal(item))
	})

	t.Run("SMSAddOn", func(t *testing.T) {
		item := &models.CartItem{
			MonthlyPrice:    500,
			SMSEnabled:      true,
			SMSPrice:        200,
			MonthlyDuration: 6,
			ForwardingType:  models.ForwardingNone,
		}
		// (500 + 200) * 6
		assert.Equal(t, uint64(4200), ItemTotal(item))
	})

	t.Run("ForwardingAddOn", func(t *testing.T) {
		item := &models.CartItem{
			MonthlyPrice:    500,
			ForwardingType:  models.ForwardingCall,
			ForwardingPrice: 300,
			MonthlyDuration: 2,
		}
		// (500 + 300) * 2
		assert.Equal(t, uint64(1600), ItemTotal(item))
	})

	t.Run("ForwardingNoneNotCharged", func(t *testing.T) {
		item := &models.CartItem{
			MonthlyPrice:    500,
			ForwardingType:  models.ForwardingNone,
			ForwardingPrice: 300,
			MonthlyDuration: 2,
		}
		assert.Equal(t, uint64(1000), ItemTotal(item))
	})

	t.Run("SetupFeeNotCharged", func(t *testing.T) {
		item := &models.CartItem{
			MonthlyPrice:    500,
			SetupPrice:      1000,
			SMSEnabled:      true,
			SMSPrice:        200,
			MonthlyDuration: 1,
			ForwardingType:  models.ForwardingNone,
		}
		item.Normalize()
		// SMS minimum lifts duration to 6; (500 + 200) * 6, setup excluded
		assert.Equal(t, uint64(4200), ItemTotal(item))
	})

	t.Run("AllAddOns", func(t *testing.T) {
		item := &models.CartItem{
			MonthlyPrice:    500,
			SMSEnabled:      true,
			SMSPrice:        200,
			ForwardingType:  models.ForwardingBoth,
			ForwardingPrice: 300,
			MonthlyDuration: 6,
		}
		// (500 + 200 + 300) * 6
		assert.Equal(t, uint64(6000), ItemTotal(item))
	})
}

func TestCartTotal(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		assert.Equal(t, uint64(0), CartTotal(nil))
	})

	t.Run("SumsItems", func(t *testing.T) {
		items := []*models.CartItem{
			{MonthlyPrice: 500, MonthlyDuration: 1, ForwardingType: models.ForwardingNone},
			{MonthlyPrice: 700, MonthlyDuration: 2, ForwardingType: models.ForwardingNone},
		}
		// (500 * 1) + (700 * 2)
		assert.Equal(t, uint64(1900), CartTotal(items))
	})
}

func TestCartItemNormalize(t *testing.T) {
	t.Run("DurationFloor", func(t *testing.T) {
		item := &models.CartItem{MonthlyDuration: 0}
		item.Normalize()
		assert.Equal(t, uint(1), item.MonthlyDuration)
		assert.Equal(t, models.ForwardingNone, item.ForwardingType)
	})

	t.Run("SMSMinimumLiftsDuration", func(t *testing.T) {
		item := &models.CartItem{SMSEnabled: true, MonthlyDuration: 2}
		item.Normalize()
		assert.Equal(t, uint(models.MinSMSDurationMonths), item.MonthlyDuration)
	})

	t.Run("SMSMinimumDoesNotLowerDuration", func(t *testing.T) {
		item := &models.CartItem{SMSEnabled: true, MonthlyDuration: 12}
		item.Normalize()
		assert.Equal(t, uint(12), item.MonthlyDuration)
	})

	t.Run("NoSMSKeepsShortDuration", func(t *testing.T) {
		item := &models.CartItem{MonthlyDuration: 2}
		item.Normalize()
		assert.Equal(t, uint(2), item.MonthlyDuration)
	})
}
