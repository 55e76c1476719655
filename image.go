package pixmap

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/k1LoW/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Load decodes the greyscale image file at path into a PixelGrid.
func Load(path string) (_ *PixelGrid, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file %s: %w", path, err)
	}
	defer f.Close()
	g, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return g, nil
}

// Decode decodes a greyscale image (PNG, JPEG, GIF, BMP or TIFF) from r into a PixelGrid.
func Decode(r io.Reader) (_ *PixelGrid, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	img, format, err := image.Decode(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	g, err := FromImage(img)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", format, err)
	}
	return g, nil
}

// FromImage copies the samples of a single-channel image into a new PixelGrid.
// Only *image.Gray, *image.Gray16 and *image.Paletted with an opaque grey palette are accepted.
func FromImage(img image.Image) (_ *PixelGrid, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	b := img.Bounds()
	if b.Empty() {
		return nil, ErrEmptyGrid
	}
	g := &PixelGrid{
		rows:    b.Dy(),
		cols:    b.Dx(),
		depth:   8,
		samples: make([]uint16, b.Dx()*b.Dy()),
	}
	switch m := img.(type) {
	case *image.Gray:
		for y := 0; y < g.rows; y++ {
			off := m.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < g.cols; x++ {
				g.samples[y*g.cols+x] = uint16(m.Pix[off+x])
			}
		}
	case *image.Gray16:
		g.depth = 16
		for y := 0; y < g.rows; y++ {
			off := m.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < g.cols; x++ {
				i := off + 2*x
				g.samples[y*g.cols+x] = uint16(m.Pix[i])<<8 | uint16(m.Pix[i+1])
			}
		}
	case *image.Paletted:
		levels, err := greyLevels(m.Palette)
		if err != nil {
			return nil, err
		}
		for y := 0; y < g.rows; y++ {
			off := m.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < g.cols; x++ {
				idx := int(m.Pix[off+x])
				if idx >= len(levels) {
					return nil, fmt.Errorf("palette index %d out of range at (%d,%d)", idx, x, y)
				}
				g.samples[y*g.cols+x] = uint16(levels[idx])
			}
		}
	default:
		return nil, fmt.Errorf("%w: decoded as %s", ErrNotGreyscale, colorModelName(img.ColorModel()))
	}
	return g, nil
}

// greyLevels returns the 8-bit intensity of every palette entry, failing on any colour or translucent entry.
func greyLevels(p color.Palette) ([]uint8, error) {
	levels := make([]uint8, len(p))
	for i, c := range p {
		r, g, b, a := c.RGBA()
		if r != g || g != b || a != 0xffff {
			return nil, fmt.Errorf("%w: palette entry %d is %v", ErrNotGreyscale, i, c)
		}
		levels[i] = uint8(r >> 8)
	}
	return levels, nil
}

func colorModelName(m color.Model) string {
	switch m {
	case color.RGBAModel:
		return "RGBA"
	case color.RGBA64Model:
		return "RGBA64"
	case color.NRGBAModel:
		return "NRGBA"
	case color.NRGBA64Model:
		return "NRGBA64"
	case color.AlphaModel:
		return "Alpha"
	case color.Alpha16Model:
		return "Alpha16"
	case color.YCbCrModel:
		return "YCbCr"
	case color.NYCbCrAModel:
		return "NYCbCrA"
	case color.CMYKModel:
		return "CMYK"
	default:
		return fmt.Sprintf("%T", m)
	}
}
