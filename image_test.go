package circles

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestImage_RGBA(t *testing.T) {
	img := NewImage(2, 2)
	copy(img.Pix[4:8], []float32{0.1, 0.2, 0.3, 1.7})

	r, g, b, a := img.RGBA(1, 0)
	if r != 0.1 || g != 0.2 || b != 0.3 || a != 1.7 {
		t.Errorf("RGBA(1,0) = %v %v %v %v", r, g, b, a)
	}
	if r, g, b, a := img.RGBA(2, 0); r != 0 || g != 0 || b != 0 || a != 0 {
		t.Error("out-of-range RGBA should be zero")
	}
}

func TestImage_ClampColorsKeepsAlpha(t *testing.T) {
	img := NewImage(1, 2)
	copy(img.Pix, []float32{1.5, -0.25, 0.5, 2.5, 0, 1, 0.75, -1})
	img.clampColors()

	want := []float32{1, 0, 0.5, 2.5, 0, 1, 0.75, -1}
	for i := range want {
		if img.Pix[i] != want[i] {
			t.Errorf("Pix[%d] = %v, want %v", i, img.Pix[i], want[i])
		}
	}
}

func TestImage_ToNRGBA(t *testing.T) {
	img := NewImage(2, 1)
	copy(img.Pix, []float32{1, 0.5, 0, 1.5, 0, 0, 1, 0.5})

	n := img.ToNRGBA()
	c := n.NRGBAAt(0, 0)
	if c.R != 255 || c.G != 128 || c.B != 0 || c.A != 255 {
		t.Errorf("pixel 0 = %+v", c)
	}
	c = n.NRGBAAt(1, 0)
	if c.B != 255 || c.A != 128 {
		t.Errorf("pixel 1 = %+v", c)
	}
}

func TestImage_Preview(t *testing.T) {
	img := NewImage(40, 20)
	tests := []struct {
		scale      float64
		wantW, wantH int
	}{
		{1, 40, 20},
		{0.5, 20, 10},
		{2, 80, 40},
		{0, 40, 20},
		{0.01, 1, 1},
	}
	for _, tt := range tests {
		b := img.Preview(tt.scale).Bounds()
		if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
			t.Errorf("Preview(%v) = %dx%d, want %dx%d", tt.scale, b.Dx(), b.Dy(), tt.wantW, tt.wantH)
		}
	}
}

func TestImage_SavePNG(t *testing.T) {
	r, err := New(48, 32, "rgb")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()
	img := renderOnce(t, r)

	path := filepath.Join(t.TempDir(), "frame.png")
	if err := img.SavePNG(path, 0.5); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 24 || b.Dy() != 16 {
		t.Errorf("decoded size = %dx%d, want 24x16", b.Dx(), b.Dy())
	}

	if err := img.SavePNG(filepath.Join(t.TempDir(), "missing", "x.png"), 1); err == nil {
		t.Error("SavePNG into a missing directory should fail")
	}
}
