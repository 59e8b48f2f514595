package render

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/soypat/orifice/mesh"
	"gonum.org/v1/plot/cmpimg"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestPreview(t *testing.T) {
	ring := mesh.CutCircle(mesh.Grid(20, 20, 20, 20), r3.Vec{}, 5, false)
	hole := mesh.CutCircle(mesh.Grid(20, 20, 20, 20), r3.Vec{}, 5, true)
	layers := []Layer{
		{Surface: ring, Color: "#468966"},
		{Surface: hole, Color: "#B64926"},
	}
	view := DefaultView()
	view.Width, view.Height = 160, 90
	encode := func() []byte {
		img, err := Preview(layers, view)
		if err != nil {
			t.Fatal(err)
		}
		if b := img.Bounds(); b.Dx() != view.Width || b.Dy() != view.Height {
			t.Fatalf("image size %v, want %dx%d", b, view.Width, view.Height)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			t.Fatal(err)
		}
		return buf.Bytes()
	}
	first := encode()
	equal, err := cmpimg.EqualApprox("png", first, encode(), 0.01)
	if err != nil {
		t.Fatal(err)
	}
	if !equal {
		t.Error("preview is not reproducible")
	}

	img, err := png.Decode(bytes.NewReader(first))
	if err != nil {
		t.Fatal(err)
	}
	background := color.RGBA{R: 0xFF, G: 0xF8, B: 0xE3, A: 0xFF}
	drawn := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if color.RGBAModel.Convert(img.At(x, y)) != background {
				drawn++
			}
		}
	}
	if drawn < b.Dx()*b.Dy()/20 {
		t.Errorf("only %d pixels drawn", drawn)
	}

	if _, err := Preview(nil, view); err == nil {
		t.Error("expected error previewing nothing")
	}
}
