// Package cursor supplies the compositor's default pointer image,
// decoded, resized and byte-order converted so it can be wrapped in a
// buffer.Buffer and assigned to the cursor plane like any other
// client pixel source. Grounded on original_source's libinput.c/
// simple-touch.c default-cursor loading, and on
// friedelschoen-ctxmenu's image pipeline (PNG decode, resize.Resize
// for scaling) for the third-party library choices.
package cursor

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/png"

	"github.com/KononK/resize"
	"github.com/daaku/swizzle"

	"github.com/gviegas/pepper/buffer"
)

// defaultPNG holds the PNG-encoded cursor image LoadDefault decodes.
// It is empty until SetDefaultImage installs an image, and LoadDefault
// returns an error while it is empty.
var defaultPNG []byte

// SetDefaultImage installs the PNG-encoded bytes LoadDefault decodes.
// In this tree only tests call it, with a synthetic image; the sample
// server installs none.
func SetDefaultImage(png []byte) {
	defaultPNG = png
}

// LoadDefault decodes the bundled default cursor image, resizes it to
// size x size pixels, converts it from decoded RGBA byte order to the
// ARGB8888 host order the wire's wl_shm buffers expect, and wraps the
// result in a buffer.Buffer with no backing client resource (release
// is a no-op; this buffer is never handed back to a client).
func LoadDefault(size int) (*buffer.Buffer, error) {
	if len(defaultPNG) == 0 {
		return nil, fmt.Errorf("cursor: no default image installed (call SetDefaultImage first)")
	}
	img, _, err := image.Decode(bytes.NewReader(defaultPNG))
	if err != nil {
		return nil, fmt.Errorf("cursor: decode default image: %w", err)
	}

	resized := resize.Resize(uint(size), uint(size), img, resize.Lanczos3)

	rgba, ok := resized.(*image.RGBA)
	if !ok {
		b := resized.Bounds()
		converted := image.NewRGBA(b)
		draw.Draw(converted, b, resized, b.Min, draw.Src)
		rgba = converted
	}

	swizzle.BGRA(rgba.Pix)

	// Resource carries the decoded pixels themselves, rather than a
	// client-supplied handle, since this buffer has no client to
	// release back to; a consumer that needs the raw ARGB8888 bytes
	// type-asserts Resource back to *image.RGBA (no backend in this
	// tree does).
	buf := buffer.New(rgba, nil)
	buf.SetSize(rgba.Rect.Dx(), rgba.Rect.Dy())
	return buf, nil
}
