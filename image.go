package circles

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	xdraw "golang.org/x/image/draw"
)

// Image is a read-back frame: Width*Height RGBA float pixels, row-major,
// row 0 at the top. Color channels are clamped to [0,1]; alpha is the
// unclamped accumulated alpha.
type Image struct {
	Width  int
	Height int
	Pix    []float32
}

// NewImage allocates a zeroed width x height image.
func NewImage(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]float32, width*height*4),
	}
}

// RGBA returns the pixel at (col, row). Out-of-range coordinates return
// zeros.
func (m *Image) RGBA(col, row int) (r, g, b, a float32) {
	if col < 0 || row < 0 || col >= m.Width || row >= m.Height {
		return 0, 0, 0, 0
	}
	off := (row*m.Width + col) * 4
	p := m.Pix[off : off+4 : off+4]
	return p[0], p[1], p[2], p[3]
}

// clampColors clamps the color channels of every pixel to [0,1] and leaves
// alpha untouched.
func (m *Image) clampColors() {
	for i := 0; i+3 < len(m.Pix); i += 4 {
		p := m.Pix[i : i+3 : i+3]
		for c := range p {
			p[c] = unit(p[c])
		}
	}
}

func unit(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func to8(v float32) uint8 {
	return uint8(unit(v)*255 + 0.5)
}

// ToNRGBA converts the frame to 8-bit non-premultiplied RGBA. Alpha above
// 1 saturates to opaque.
func (m *Image) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for row := range m.Height {
		for col := range m.Width {
			r, g, b, a := m.RGBA(col, row)
			img.SetNRGBA(col, row, color.NRGBA{R: to8(r), G: to8(g), B: to8(b), A: to8(a)})
		}
	}
	return img
}

// Preview returns the frame scaled by scale with Catmull-Rom filtering.
// A scale of 1 (or a scale that rounds to the original size) returns the
// unscaled conversion.
func (m *Image) Preview(scale float64) *image.NRGBA {
	src := m.ToNRGBA()
	w := max(int(float64(m.Width)*scale+0.5), 1)
	h := max(int(float64(m.Height)*scale+0.5), 1)
	if scale <= 0 || (w == m.Width && h == m.Height) {
		return src
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// EncodePNG writes the frame, scaled by scale, as PNG.
func (m *Image) EncodePNG(w io.Writer, scale float64) error {
	return png.Encode(w, m.Preview(scale))
}

// SavePNG saves the frame, scaled by scale, to a PNG file.
func (m *Image) SavePNG(path string, scale float64) error {
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	if err := m.EncodePNG(f, scale); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
