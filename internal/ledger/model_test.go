package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindValid(t *testing.T) {
	t.Parallel()

	for _, k := range []Kind{KindEarn, KindRedeem, KindExpire, KindAdminAward, KindAdminDeduct} {
		assert.True(t, k.Valid(), string(k))
	}
	assert.False(t, Kind("").Valid())
	assert.False(t, Kind("bonus").Valid())
}

func TestKindCredits(t *testing.T) {
	t.Parallel()

	assert.True(t, KindEarn.Credits())
	assert.True(t, KindAdminAward.Credits())
	assert.False(t, KindRedeem.Credits())
	assert.False(t, KindExpire.Credits())
	assert.False(t, KindAdminDeduct.Credits())
}

func TestPageNormalize(t *testing.T) {
	t.Parallel()

	p := Page{}.Normalize()
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, DefaultHistoryLimit, p.Limit)

	p = Page{Number: -2, Limit: 500}.Normalize()
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, MaxHistoryLimit, p.Limit)

	p = Page{Number: 3, Limit: 10}.Normalize()
	assert.Equal(t, 20, p.Offset())
}
