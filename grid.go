package pixmap

import (
	"fmt"
	"strings"

	"github.com/k1LoW/errors"
)

// PixelGrid is a rectangular grid of greyscale intensity samples in row-major order.
type PixelGrid struct {
	rows    int
	cols    int
	depth   int
	samples []uint16
}

// NewPixelGrid creates an 8-bit PixelGrid from rows of samples.
func NewPixelGrid(rows [][]uint16) (_ *PixelGrid, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	return newPixelGrid(rows, 8)
}

// NewPixelGrid16 creates a 16-bit PixelGrid from rows of samples.
func NewPixelGrid16(rows [][]uint16) (_ *PixelGrid, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	return newPixelGrid(rows, 16)
}

func newPixelGrid(rows [][]uint16, depth int) (*PixelGrid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyGrid
	}
	cols := len(rows[0])
	g := &PixelGrid{
		rows:    len(rows),
		cols:    cols,
		depth:   depth,
		samples: make([]uint16, 0, len(rows)*cols),
	}
	for r, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrJaggedGrid, r, len(row), cols)
		}
		if depth == 8 {
			for c, v := range row {
				if v > 0xff {
					return nil, fmt.Errorf("sample %d at (%d,%d) exceeds 8-bit depth", v, r, c)
				}
			}
		}
		g.samples = append(g.samples, row...)
	}
	return g, nil
}

// Rows returns the number of rows.
func (g *PixelGrid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *PixelGrid) Cols() int { return g.cols }

// BitDepth returns the number of bits per sample (8 or 16).
func (g *PixelGrid) BitDepth() int { return g.depth }

// At returns the sample at row r, column c.
func (g *PixelGrid) At(r, c int) uint16 {
	return g.samples[r*g.cols+c]
}

func (g *PixelGrid) row(r int) []uint16 {
	return g.samples[r*g.cols : (r+1)*g.cols]
}

// BinaryGrid is a rectangular grid of 0/1 values produced by thresholding a PixelGrid.
type BinaryGrid struct {
	rows int
	cols int
	bits []uint8
}

func newBinaryGrid(rows, cols int) *BinaryGrid {
	return &BinaryGrid{
		rows: rows,
		cols: cols,
		bits: make([]uint8, rows*cols),
	}
}

// Rows returns the number of rows.
func (b *BinaryGrid) Rows() int { return b.rows }

// Cols returns the number of columns.
func (b *BinaryGrid) Cols() int { return b.cols }

// At returns the bit at row r, column c.
func (b *BinaryGrid) At(r, c int) uint8 {
	return b.bits[r*b.cols+c]
}

// Values returns a copy of the grid as rows of bits.
func (b *BinaryGrid) Values() [][]uint8 {
	v := make([][]uint8, b.rows)
	for r := range v {
		v[r] = append([]uint8(nil), b.row(r)...)
	}
	return v
}

func (b *BinaryGrid) row(r int) []uint8 {
	return b.bits[r*b.cols : (r+1)*b.cols]
}

func (b *BinaryGrid) String() string {
	if b == nil {
		return ""
	}
	var sb strings.Builder
	for r := 0; r < b.rows; r++ {
		for _, v := range b.row(r) {
			if v == 1 {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
