// Package pixmap converts greyscale images into binary pixel matrices declared as source code constants.
package pixmap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/k1LoW/errors"
)

// Converter runs the load, threshold and emit pipeline for a single image.
type Converter struct {
	threshold    int
	thresholdSet bool
	decl         *Declaration
	concurrency  int
	logger       *slog.Logger
}

type Option func(*Converter) error

// WithThreshold sets the cutoff. Samples strictly greater than it become 1.
func WithThreshold(t int) Option {
	return func(c *Converter) error {
		if err := validateThreshold(t); err != nil {
			return err
		}
		c.threshold = t
		c.thresholdSet = true
		return nil
	}
}

func WithDeclaration(d *Declaration) Option {
	return func(c *Converter) error {
		if d == nil {
			return fmt.Errorf("declaration is nil")
		}
		if err := d.Validate(); err != nil {
			return err
		}
		c.decl = d
		return nil
	}
}

// WithConcurrency limits the number of row bands thresholded at once.
func WithConcurrency(n int) Option {
	return func(c *Converter) error {
		if n < 1 {
			return fmt.Errorf("concurrency must be at least 1: %d", n)
		}
		c.concurrency = n
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) error {
		if logger == nil {
			return fmt.Errorf("logger is nil")
		}
		c.logger = logger
		return nil
	}
}

// New creates a Converter. WithThreshold is required.
func New(opts ...Option) (_ *Converter, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	c := &Converter{
		decl:        DefaultDeclaration(),
		concurrency: runtime.GOMAXPROCS(0),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if !c.thresholdSet {
		return nil, fmt.Errorf("%w: no threshold given", ErrInvalidThreshold)
	}
	return c, nil
}

// Convert loads the image at path and writes its declaration to w.
// Nothing is written unless every stage succeeds.
func (c *Converter) Convert(ctx context.Context, path string, w io.Writer) (err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	started := time.Now()
	c.logger.Info("decoding image", slog.String("path", path))
	g, err := Load(path)
	if err != nil {
		c.logger.Error("failed to decode image", slog.String("path", path), slog.String("error", err.Error()))
		return err
	}
	c.logger.Info("decoded image", slog.String("path", path), slog.Int("rows", g.Rows()), slog.Int("cols", g.Cols()), slog.Int("bit_depth", g.BitDepth()))

	var buf bytes.Buffer
	if err := c.convert(ctx, g, &buf); err != nil {
		return err
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write declaration: %w", err)
	}
	c.logger.Info("conversion completed", slog.String("path", path), slog.Duration("elapsed", time.Since(started)))
	return nil
}

// ConvertGrid thresholds g and writes its declaration to w.
func (c *Converter) ConvertGrid(ctx context.Context, g *PixelGrid, w io.Writer) (err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	var buf bytes.Buffer
	if err := c.convert(ctx, g, &buf); err != nil {
		return err
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write declaration: %w", err)
	}
	return nil
}

func (c *Converter) convert(ctx context.Context, g *PixelGrid, buf *bytes.Buffer) error {
	b, err := thresholdConcurrently(ctx, g, c.threshold, c.concurrency, c.logger)
	if err != nil {
		c.logger.Error("failed to threshold image", slog.String("error", err.Error()))
		return err
	}
	c.logger.Debug("binary grid", slog.String("grid", b.String()))
	if err := Emit(buf, b, c.decl); err != nil {
		c.logger.Error("failed to emit declaration", slog.String("error", err.Error()))
		return err
	}
	c.logger.Info("emitted declaration", slog.String("const_name", c.decl.ConstName), slog.Int("bytes", buf.Len()))
	return nil
}
