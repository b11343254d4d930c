package businessflow

import (
	"context"
	"errors"
	"testing"

	"github.com/amirphl/Gashadokuro/app/dto"
	"github.com/amirphl/Gashadokuro/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisKey(t *testing.T) {
	assert.Equal(t, "cart:1", redisKey(config.CacheConfig{}, "cart:1"))
	assert.Equal(t, "gashadokuro:cart:1", redisKey(config.CacheConfig{RedisPrefix: "gashadokuro"}, "cart:1"))
}

func TestCartFlowWithoutCache(t *testing.T) {
	ctx := context.Background()
	flow := NewCartFlow(nil, &config.CacheConfig{})

	t.Run("InvalidForwardingRejectedFirst", func(t *testing.T) {
		// Validation runs before the cache is touched, so the caller sees the
		// forwarding error rather than a cache failure
		_, err := flow.AddItem(ctx, 1, &dto.AddCartItemRequest{
			PhoneNumber:     "+12125550100",
			CountryCode:     "1",
			MonthlyPrice:    500,
			MonthlyDuration: 1,
			ForwardingType:  "satellite",
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsInvalidForwardingType(err))
	})

	t.Run("OperationsFailClosed", func(t *testing.T) {
		_, err := flow.Summary(ctx, 1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCacheNotAvailable))

		_, err = flow.Items(ctx, 1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCacheNotAvailable))

		err = flow.Clear(ctx, 1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCacheNotAvailable))
	})
}
