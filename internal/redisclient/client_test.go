package redisclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUnifiedOrdersKeyIsPerDay(t *testing.T) {
	aug14 := time.Date(2024, 8, 14, 9, 30, 0, 0, time.UTC)
	aug15 := time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "unified-orders:2024-08-14", UnifiedOrdersKey(aug14))

	// two instants on the same day share a key, different days never do
	assert.Equal(t, UnifiedOrdersKey(aug14), UnifiedOrdersKey(aug14.Add(8*time.Hour)))
	assert.NotEqual(t, UnifiedOrdersKey(aug14), UnifiedOrdersKey(aug15))
}

func TestUnifiedOrdersKeyUnderSnapshotPrefix(t *testing.T) {
	key := UnifiedOrdersKey(time.Date(2024, 8, 14, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, SnapshotPrefixUnifiedOrders+":2024-08-14", key,
		"per-day keys must stay under the prefix the mutation paths invalidate")
}
