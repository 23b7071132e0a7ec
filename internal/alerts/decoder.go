// Package alerts decodes GLAD/FORMA alert rasters into date-filtered alert
// pixels.
package alerts

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/glad-clusters/internal/model"
)

// Options configures a Decoder. Start is inclusive and End exclusive.
type Options struct {
	Source    model.AlertSource
	Start     time.Time
	End       time.Time
	Threshold *float64
	Hard      bool
}

// Decoder turns rasters into alert pixels. It holds no mutable state and is
// safe for concurrent use.
type Decoder struct {
	opts      Options
	epoch     time.Time
	startDays int
	endDays   int
}

// NewDecoder validates opts and precomputes the day window.
func NewDecoder(opts Options) (*Decoder, error) {
	epoch, ok := opts.Source.Epoch()
	if !ok {
		return nil, eris.Errorf("alerts: unknown alert source %q", opts.Source)
	}
	if opts.End.Before(opts.Start) {
		return nil, eris.Errorf("alerts: end date %s is before start date %s",
			opts.End.Format(time.DateOnly), opts.Start.Format(time.DateOnly))
	}
	return &Decoder{
		opts:      opts,
		epoch:     epoch,
		startDays: DaysSince(epoch, opts.Start),
		endDays:   DaysSince(epoch, opts.End),
	}, nil
}

// Epoch returns the day-zero date of the decoder's alert source.
func (d *Decoder) Epoch() time.Time {
	return d.epoch
}

// Decode returns the alerts of r that fall inside the date window and pass
// the intensity threshold, in row-major order.
func (d *Decoder) Decode(r *Raster) []model.AlertPixel {
	var out []model.AlertPixel
	for row := 0; row < r.Height; row++ {
		for col := 0; col < r.Width; col++ {
			b0, b1, b2 := r.At(row, col)
			days := 255*int(b0) + int(b1)
			if days < d.startDays || days >= d.endDays {
				continue
			}
			intensity := float64(int(b2)%100) * 100 / 55

			value := d.value(days, intensity)
			if value <= 0 {
				continue
			}
			out = append(out, model.AlertPixel{
				Row:       row,
				Col:       col,
				Days:      days,
				Intensity: intensity,
				Value:     value,
			})
		}
	}
	return out
}

func (d *Decoder) value(days int, intensity float64) float64 {
	if d.opts.Threshold == nil {
		return float64(days)
	}
	above := intensity > *d.opts.Threshold
	switch {
	case d.opts.Hard && above:
		return 1
	case above:
		return intensity
	default:
		return 0
	}
}
