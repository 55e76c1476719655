package pixmap

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func TestConvert(t *testing.T) {
	p := writePNG(t, greyImage([][]uint8{{10, 200}, {50, 250}}))
	logs := new(bytes.Buffer)
	c, err := New(
		WithThreshold(100),
		WithConcurrency(2),
		WithLogger(slog.New(slog.NewTextHandler(logs, nil))),
	)
	if err != nil {
		t.Fatal(err)
	}
	out := new(bytes.Buffer)
	if err := c.Convert(context.Background(), p, out); err != nil {
		t.Fatal(err)
	}
	want := "pub const PIXMAP: Pixmap = Pixmap {\n    data: [[0,1],\n    [0,1]]\n};\n"
	if got := out.String(); got != want {
		t.Errorf("Convert() = %q, want %q", got, want)
	}
	for _, msg := range []string{"decoding image", "decoded image", "thresholded rows", "emitted declaration", "conversion completed"} {
		if !strings.Contains(logs.String(), msg) {
			t.Errorf("log %q not found in:\n%s", msg, logs.String())
		}
	}
}

func TestConvertLogsBinaryGrid(t *testing.T) {
	p := writePNG(t, greyImage([][]uint8{{10, 200}, {50, 250}}))
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo} {
		logs := new(bytes.Buffer)
		c, err := New(
			WithThreshold(100),
			WithLogger(slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: level}))),
		)
		if err != nil {
			t.Fatal(err)
		}
		if err := c.Convert(context.Background(), p, new(bytes.Buffer)); err != nil {
			t.Fatal(err)
		}
		want := `msg="binary grid" grid=".#\n.#\n"`
		got := strings.Contains(logs.String(), want)
		if level == slog.LevelDebug && !got {
			t.Errorf("debug log %s not found in:\n%s", want, logs.String())
		}
		if level == slog.LevelInfo && got {
			t.Errorf("binary grid logged at info level:\n%s", logs.String())
		}
	}
}

func TestConvertGrid(t *testing.T) {
	d := DefaultDeclaration()
	d.ConstName = "CLOCK_DIGIT"
	c, err := New(WithThreshold(0), WithDeclaration(d))
	if err != nil {
		t.Fatal(err)
	}
	out := new(bytes.Buffer)
	if err := c.ConvertGrid(context.Background(), mustPixelGrid(t, [][]uint16{{0, 1, 0}}), out); err != nil {
		t.Fatal(err)
	}
	want := "pub const CLOCK_DIGIT: Pixmap = Pixmap {\n    data: [[0,1,0]]\n};\n"
	if got := out.String(); got != want {
		t.Errorf("ConvertGrid() = %q, want %q", got, want)
	}
}

func TestConvertWritesNothingOnFailure(t *testing.T) {
	colour := writePNG(t, image.NewRGBA(image.Rect(0, 0, 2, 2)))
	c, err := New(WithThreshold(100))
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{colour, filepath.Join(t.TempDir(), "missing.png")} {
		out := new(bytes.Buffer)
		if err := c.Convert(context.Background(), p, out); err == nil {
			t.Errorf("Convert(%s) expected error", p)
		}
		if out.Len() != 0 {
			t.Errorf("Convert(%s) wrote %q on error", p, out.String())
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := new(bytes.Buffer)
	if err := c.Convert(ctx, writePNG(t, greyImage([][]uint8{{1}})), out); !errors.Is(err, context.Canceled) {
		t.Errorf("Convert() error = %v, want context.Canceled", err)
	}
	if out.Len() != 0 {
		t.Errorf("Convert() wrote %q after cancel", out.String())
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr error
	}{
		{"threshold required", nil, ErrInvalidThreshold},
		{"threshold out of range", []Option{WithThreshold(300)}, ErrInvalidThreshold},
		{"invalid declaration", []Option{WithThreshold(1), WithDeclaration(&Declaration{ConstName: "a-b", TypeName: "T", FieldName: "f"})}, ErrInvalidName},
		{"valid", []Option{WithThreshold(128), WithConcurrency(4)}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("New() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if _, err := New(WithThreshold(1), WithConcurrency(0)); err == nil {
		t.Error("New() accepted zero concurrency")
	}
	if _, err := New(WithThreshold(1), WithLogger(nil)); err == nil {
		t.Error("New() accepted nil logger")
	}
}
