package alerts

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeBytes_NRGBA(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	img.SetNRGBA(2, 1, color.NRGBA{R: 2, G: 100, B: 44, A: 0})
	img.SetNRGBA(3, 2, color.NRGBA{R: 1, G: 5, B: 7, A: 255})

	r, err := DecodeBytes(encodePNG(t, img))
	require.NoError(t, err)
	assert.Equal(t, 4, r.Width)
	assert.Equal(t, 3, r.Height)

	b0, b1, b2 := r.At(1, 2)
	assert.Equal(t, []uint8{2, 100, 44}, []uint8{b0, b1, b2}, "transparent pixels keep their bands")

	b0, b1, b2 = r.At(2, 3)
	assert.Equal(t, []uint8{1, 5, 7}, []uint8{b0, b1, b2})
}

func TestDecodeBytes_Gray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(1, 0, color.Gray{Y: 9})

	r, err := DecodeBytes(encodePNG(t, img))
	require.NoError(t, err)
	b0, b1, b2 := r.At(0, 1)
	assert.Equal(t, []uint8{9, 9, 9}, []uint8{b0, b1, b2})
}

func TestDecodeBytes_Errors(t *testing.T) {
	_, err := DecodeBytes(nil)
	var de *DecodeError
	require.True(t, errors.As(err, &de))

	_, err = DecodeImage(strings.NewReader("not an image"))
	require.True(t, errors.As(err, &de))
	assert.Contains(t, err.Error(), "unreadable image")
}

func TestRaster_CheckShape(t *testing.T) {
	assert.NoError(t, NewRaster(256, 256).CheckShape(256, 256))

	err := NewRaster(128, 256).CheckShape(256, 256)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "shape mismatch", de.Reason)

	var nilRaster *Raster
	assert.Error(t, nilRaster.CheckShape(256, 256))
}
