package dot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/k1LoW/errors"
	"github.com/mattn/go-colorable"
)

var (
	yellow = color.New(color.FgYellow, color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

var _ slog.Handler = (*dotHandler)(nil)

// dotHandler draws conversion progress on stderr so that stdout only carries the declaration.
type dotHandler struct {
	handler slog.Handler
	spinner *spinner.Spinner
	out     io.Writer
	mu      *sync.Mutex
}

func New(h slog.Handler) (_ *dotHandler, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	return newHandler(h, colorable.NewColorableStderr())
}

func newHandler(h slog.Handler, out io.Writer) (*dotHandler, error) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	if err := s.Color("yellow"); err != nil {
		return nil, err
	}
	s.Start()
	s.Disable()
	return &dotHandler{
		handler: h,
		spinner: s,
		out:     out,
		mu:      &sync.Mutex{},
	}, nil
}

func (h *dotHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *dotHandler) Handle(ctx context.Context, r slog.Record) (err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	h.mu.Lock()
	defer h.mu.Unlock()

	if r.Message == "decoding image" {
		if !h.spinner.Enabled() {
			h.spinner.Enable()
		}
		return nil
	}
	if h.spinner.Enabled() {
		h.spinner.Disable()
	}
	switch {
	case r.Message == "thresholded rows":
		return h.write(yellow("."))
	case r.Message == "emitted declaration":
		return h.write(green("✓"))
	case strings.HasPrefix(r.Message, "failed to"):
		return h.write(red("!") + "\n")
	case r.Message == "conversion completed":
		return h.write("\n")
	}
	return nil
}

func (h *dotHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &dotHandler{handler: h.handler.WithAttrs(attrs), spinner: h.spinner, out: h.out, mu: h.mu}
}

func (h *dotHandler) WithGroup(name string) slog.Handler {
	return &dotHandler{handler: h.handler.WithGroup(name), spinner: h.spinner, out: h.out, mu: h.mu}
}

// Stop stops the spinner goroutine.
func (h *dotHandler) Stop() {
	h.spinner.Stop()
}

func (h *dotHandler) write(s string) error {
	if _, err := io.WriteString(h.out, s); err != nil {
		return err
	}
	return nil
}
