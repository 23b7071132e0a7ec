package alerts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/glad-clusters/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// encodeDays splits a day count into the first two bands.
func encodeDays(days int) (uint8, uint8) {
	return uint8(days / 255), uint8(days % 255)
}

func newDecoder(t *testing.T, opts Options) *Decoder {
	t.Helper()
	d, err := NewDecoder(opts)
	require.NoError(t, err)
	return d
}

func TestDecode_DaysAndIntensity(t *testing.T) {
	r := NewRaster(4, 4)
	b0, b1 := encodeDays(600)
	r.Set(1, 2, b0, b1, 155)

	d := newDecoder(t, Options{Start: date(2015, 1, 1), End: date(2020, 1, 1)})
	got := d.Decode(r)

	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Row)
	assert.Equal(t, 2, got[0].Col)
	assert.Equal(t, 600, got[0].Days)
	assert.InDelta(t, 100.0, got[0].Intensity, 1e-9)
	assert.InDelta(t, 600.0, got[0].Value, 1e-9)
}

func TestDecode_WindowIsHalfOpen(t *testing.T) {
	epoch := date(2015, 1, 1)
	start := date(2016, 1, 1)
	end := date(2016, 2, 1)
	startDays := DaysSince(epoch, start)
	endDays := DaysSince(epoch, end)

	r := NewRaster(3, 1)
	for col, days := range []int{startDays - 1, startDays, endDays} {
		b0, b1 := encodeDays(days)
		r.Set(0, col, b0, b1, 50)
	}

	got := newDecoder(t, Options{Start: start, End: end}).Decode(r)
	require.Len(t, got, 1)
	assert.Equal(t, startDays, got[0].Days)
	assert.Equal(t, 1, got[0].Col)
}

func TestDecode_NoDataPixelsExcluded(t *testing.T) {
	r := NewRaster(8, 8)
	got := newDecoder(t, Options{Start: date(2015, 1, 1), End: date(2030, 1, 1)}).Decode(r)
	assert.Empty(t, got)
}

func TestDecode_DatesOutsideWindowYieldNothing(t *testing.T) {
	r := NewRaster(16, 16)
	for row := 0; row < 16; row++ {
		for col := 0; col < 16; col++ {
			b0, b1 := encodeDays(100 + row)
			r.Set(row, col, b0, b1, 80)
		}
	}

	got := newDecoder(t, Options{Start: date(2019, 1, 1), End: date(2019, 6, 1)}).Decode(r)
	assert.Empty(t, got)
}

func TestDecode_Thresholds(t *testing.T) {
	r := NewRaster(2, 1)
	b0, b1 := encodeDays(400)
	r.Set(0, 0, b0, b1, 11) // intensity 20
	r.Set(0, 1, b0, b1, 44) // intensity 80

	threshold := 50.0

	soft := newDecoder(t, Options{Start: date(2015, 1, 1), End: date(2020, 1, 1), Threshold: &threshold}).Decode(r)
	require.Len(t, soft, 1)
	assert.Equal(t, 1, soft[0].Col)
	assert.InDelta(t, 80.0, soft[0].Value, 1e-9)

	hard := newDecoder(t, Options{Start: date(2015, 1, 1), End: date(2020, 1, 1), Threshold: &threshold, Hard: true}).Decode(r)
	require.Len(t, hard, 1)
	assert.Equal(t, 1, hard[0].Col)
	assert.Equal(t, 1.0, hard[0].Value)
	assert.InDelta(t, 80.0, hard[0].Intensity, 1e-9)
}

func TestDecode_ThresholdIsStrict(t *testing.T) {
	r := NewRaster(1, 1)
	b0, b1 := encodeDays(10)
	r.Set(0, 0, b0, b1, 11) // intensity 20

	threshold := 20.0
	got := newDecoder(t, Options{Start: date(2015, 1, 1), End: date(2020, 1, 1), Threshold: &threshold}).Decode(r)
	assert.Empty(t, got)
}

func TestDecode_FORMAEpoch(t *testing.T) {
	d := newDecoder(t, Options{Source: model.SourceFORMA, Start: date(2012, 1, 1), End: date(2013, 1, 1)})
	assert.True(t, date(2012, 1, 1).Equal(d.Epoch()))

	r := NewRaster(1, 1)
	b0, b1 := encodeDays(30)
	r.Set(0, 0, b0, b1, 1)
	assert.Len(t, d.Decode(r), 1)
}

func TestNewDecoder_Validation(t *testing.T) {
	_, err := NewDecoder(Options{Source: "unknown", Start: date(2015, 1, 1), End: date(2016, 1, 1)})
	assert.Error(t, err)

	_, err = NewDecoder(Options{Start: date(2016, 1, 1), End: date(2015, 1, 1)})
	assert.Error(t, err)

	d, err := NewDecoder(Options{Start: date(2016, 1, 1), End: date(2016, 1, 1)})
	require.NoError(t, err)
	r := NewRaster(1, 1)
	b0, b1 := encodeDays(DaysSince(d.Epoch(), date(2016, 1, 1)))
	r.Set(0, 0, b0, b1, 1)
	assert.Empty(t, d.Decode(r), "empty window keeps nothing")
}
