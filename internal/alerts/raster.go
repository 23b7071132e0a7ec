package alerts

import (
	"bytes"
	"image"
	"image/color"
	_ "image/png" // register PNG decoder
	"io"

	"github.com/rotisserie/eris"
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// Bands is the number of encoded bands per alert pixel.
const Bands = 3

// Raster is an in-memory three-band tile image. Pix holds the bands of each
// pixel row by row.
type Raster struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewRaster allocates an all-zero raster.
func NewRaster(width, height int) *Raster {
	return &Raster{Width: width, Height: height, Pix: make([]uint8, width*height*Bands)}
}

// At returns the three bands of the pixel at (row, col).
func (r *Raster) At(row, col int) (b0, b1, b2 uint8) {
	i := (row*r.Width + col) * Bands
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2]
}

// Set writes the three bands of the pixel at (row, col).
func (r *Raster) Set(row, col int, b0, b1, b2 uint8) {
	i := (row*r.Width + col) * Bands
	r.Pix[i], r.Pix[i+1], r.Pix[i+2] = b0, b1, b2
}

// CheckShape returns a DecodeError when the raster is not width x height.
func (r *Raster) CheckShape(width, height int) error {
	if r == nil {
		return &DecodeError{Reason: "empty raster"}
	}
	if r.Width != width || r.Height != height || len(r.Pix) != width*height*Bands {
		return &DecodeError{Reason: "shape mismatch", Err: eris.Errorf(
			"alerts: got %dx%d raster, want %dx%d", r.Width, r.Height, width, height)}
	}
	return nil
}

// DecodeImage reads a PNG, TIFF or WebP tile into a Raster. The first three
// channels are taken as the alert bands, without alpha premultiplication.
func DecodeImage(rd io.Reader) (*Raster, error) {
	img, _, err := image.Decode(rd)
	if err != nil {
		return nil, &DecodeError{Reason: "unreadable image", Err: eris.Wrap(err, "alerts: decode image")}
	}

	b := img.Bounds()
	out := NewRaster(b.Dx(), b.Dy())

	if nrgba, ok := img.(*image.NRGBA); ok {
		for row := 0; row < out.Height; row++ {
			src := nrgba.Pix[nrgba.PixOffset(b.Min.X, b.Min.Y+row):]
			for col := 0; col < out.Width; col++ {
				out.Set(row, col, src[col*4], src[col*4+1], src[col*4+2])
			}
		}
		return out, nil
	}

	for row := 0; row < out.Height; row++ {
		for col := 0; col < out.Width; col++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+col, b.Min.Y+row)).(color.NRGBA)
			out.Set(row, col, c.R, c.G, c.B)
		}
	}
	return out, nil
}

// DecodeBytes is DecodeImage over an in-memory tile.
func DecodeBytes(data []byte) (*Raster, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Reason: "empty tile"}
	}
	return DecodeImage(bytes.NewReader(data))
}
