package pixmap

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/k1LoW/errors"
	"golang.org/x/sync/errgroup"
)

const (
	MinThreshold = 0
	MaxThreshold = 255
)

// ParseThreshold parses a threshold argument. Values are never clamped.
func ParseThreshold(s string) (_ int, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidThreshold, s)
	}
	if err := validateThreshold(v); err != nil {
		return 0, err
	}
	return v, nil
}

func validateThreshold(t int) error {
	if t < MinThreshold || t > MaxThreshold {
		return fmt.Errorf("%w: %d", ErrInvalidThreshold, t)
	}
	return nil
}

// Threshold maps every sample of g to 1 if it is strictly greater than threshold, otherwise 0.
// The result is a new grid; g is not modified.
func Threshold(g *PixelGrid, threshold int) (_ *BinaryGrid, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	if err := validateThreshold(threshold); err != nil {
		return nil, err
	}
	if g == nil || g.rows == 0 || g.cols == 0 {
		return nil, ErrEmptyGrid
	}
	b := newBinaryGrid(g.rows, g.cols)
	thresholdRows(g, b, uint16(threshold), 0, g.rows)
	return b, nil
}

// thresholdConcurrently splits g into bands of rows and thresholds them with at most concurrency workers.
func thresholdConcurrently(ctx context.Context, g *PixelGrid, threshold, concurrency int, logger *slog.Logger) (_ *BinaryGrid, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	if err := validateThreshold(threshold); err != nil {
		return nil, err
	}
	if g == nil || g.rows == 0 || g.cols == 0 {
		return nil, ErrEmptyGrid
	}
	if concurrency < 1 {
		concurrency = 1
	}
	b := newBinaryGrid(g.rows, g.cols)
	band := (g.rows + concurrency - 1) / concurrency
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)
	for start := 0; start < g.rows; start += band {
		end := min(start+band, g.rows)
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			thresholdRows(g, b, uint16(threshold), start, end)
			logger.Info("thresholded rows", slog.Int("from", start), slog.Int("to", end))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return b, nil
}

// thresholdRows writes rows [start, end) of g into b. Bands never overlap, so concurrent calls are safe.
func thresholdRows(g *PixelGrid, b *BinaryGrid, threshold uint16, start, end int) {
	for r := start; r < end; r++ {
		src := g.row(r)
		dst := b.row(r)
		for c, v := range src {
			if v > threshold {
				dst[c] = 1
			}
		}
	}
}
