package cursor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func synthesizePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test PNG: %v", err)
	}
	return buf.Bytes()
}

func TestLoadDefaultWithoutImageFails(t *testing.T) {
	SetDefaultImage(nil)
	if _, err := LoadDefault(24); err == nil {
		t.Fatal("LoadDefault succeeded with no image installed")
	}
}

func TestLoadDefaultDecodesResizesAndSwizzles(t *testing.T) {
	SetDefaultImage(synthesizePNG(t, 16, 16))
	buf, err := LoadDefault(32)
	if err != nil {
		t.Fatalf("LoadDefault failed: %v", err)
	}
	if buf.Width != 32 || buf.Height != 32 {
		t.Fatalf("have size %dx%d, want 32x32", buf.Width, buf.Height)
	}
	rgba, ok := buf.Resource.(*image.RGBA)
	if !ok {
		t.Fatal("buffer resource is not *image.RGBA")
	}
	// swizzle.BGRA swaps R and B; original pixel was R=10 G=20 B=30,
	// so the stored byte order should now read B-position=10.
	if rgba.Pix[0] != 30 || rgba.Pix[2] != 10 {
		t.Fatalf("pixel bytes not swizzled: have %v", rgba.Pix[:4])
	}
}
