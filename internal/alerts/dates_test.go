package alerts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysSince(t *testing.T) {
	epoch := date(2015, 1, 1)
	assert.Equal(t, 0, DaysSince(epoch, epoch))
	assert.Equal(t, 365, DaysSince(epoch, date(2016, 1, 1)))
	assert.Equal(t, 366, DaysSince(epoch, date(2017, 1, 1))-DaysSince(epoch, date(2016, 1, 1)))
	assert.Equal(t, 31, DaysSince(epoch, time.Date(2015, 2, 1, 23, 59, 0, 0, time.UTC)))
}

func TestDateFor_RoundTrip(t *testing.T) {
	epoch := date(2015, 1, 1)
	for _, days := range []int{0, 1, 59, 365, 1500} {
		assert.Equal(t, days, DaysSince(epoch, DateFor(epoch, days)))
	}
	assert.True(t, date(2015, 3, 1).Equal(DateFor(epoch, 59)))
}

func TestDateInt(t *testing.T) {
	assert.Equal(t, 20160229, DateInt(date(2016, 2, 29)))
	assert.Equal(t, 0, DateInt(time.Time{}))
}
