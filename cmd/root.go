/*
Copyright © 2025 Ken'ichiro Oyama <k1lowxb@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/k1LoW/errors"
	"github.com/k1LoW/pixmap"
	"github.com/k1LoW/pixmap/config"
	"github.com/k1LoW/pixmap/handler/dot"
	"github.com/k1LoW/pixmap/version"
	"github.com/k1LoW/tail"
	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"
)

const (
	exitCodeError = 1
	exitCodeUsage = 2
)

var errUsage = fmt.Errorf("accepts 2 arg(s): THRESHOLD and IMAGE_FILE")

var (
	profile     string
	constName   string
	typeName    string
	fieldName   string
	concurrency int
	verbose     bool
	progress    bool
)

var tb = tail.New(100)

var rootCmd = &cobra.Command{
	Use:   "pixmap [THRESHOLD] [IMAGE_FILE]",
	Short: "pixmap converts a greyscale image into a binary pixel matrix constant",
	Long: `pixmap converts a greyscale image into a binary pixel matrix constant.

Every pixel brighter than THRESHOLD (0-255) becomes 1, every other pixel becomes 0.
The matrix is written to stdout as a source code declaration.`,
	SilenceUsage: true,
	Version:      fmt.Sprintf("%s (rev:%s)", version.Version, version.Revision),
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			_, _ = fmt.Fprint(cmd.OutOrStdout(), cmd.UsageString())
			return errUsage
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		threshold, err := pixmap.ParseThreshold(args[0])
		if err != nil {
			return err
		}
		path := args[1]

		cfg, err := config.Load(profile)
		if err != nil {
			return err
		}
		decl := declaration(cmd, cfg)

		handlers := []slog.Handler{
			slog.NewJSONHandler(tb, &slog.HandlerOptions{Level: slog.LevelDebug}),
		}
		if verbose {
			handlers = append(handlers, slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
		if progress {
			h, err := dot.New(slog.NewTextHandler(io.Discard, nil))
			if err != nil {
				return err
			}
			defer h.Stop()
			handlers = append(handlers, h)
		}
		logger := slog.New(slogmulti.Fanout(handlers...))

		opts := []pixmap.Option{
			pixmap.WithThreshold(threshold),
			pixmap.WithDeclaration(decl),
			pixmap.WithLogger(logger),
		}
		switch {
		case cmd.Flags().Changed("concurrency"):
			opts = append(opts, pixmap.WithConcurrency(concurrency))
		case cfg.Concurrency > 0:
			opts = append(opts, pixmap.WithConcurrency(cfg.Concurrency))
		}
		c, err := pixmap.New(opts...)
		if err != nil {
			return err
		}
		return c.Convert(cmd.Context(), path, cmd.OutOrStdout())
	},
}

type errorData struct {
	LatestLogs  []any     `json:"latest_logs"`
	StackTraces any       `json:"stack_traces"`
	CreatedAt   time.Time `json:"created_at"`
	Version     string    `json:"version"`
	Revision    string    `json:"revision"`
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if err == errUsage {
			os.Exit(exitCodeUsage)
		}
		// Write stack trace log to state directory
		d := newErrorData(err)
		b, err := json.Marshal(d)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		} else {
			dir := config.StateHomePath()
			dumpPath := filepath.Join(dir, "error.json")
			if err := os.MkdirAll(dir, 0o700); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "failed to create %s: %v\n", dir, err)
			} else if err := os.WriteFile(dumpPath, b, 0o600); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "failed to write error.json to %s: %v\n", dumpPath, err)
			}
		}
		os.Exit(exitCodeError)
	}
}

// newErrorData collects the latest logs kept in tb along with the stack traces of err.
func newErrorData(err error) *errorData {
	var latestLogs []any
	for _, line := range tb.Lines() {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			latestLogs = append(latestLogs, line)
		} else {
			latestLogs = append(latestLogs, m)
		}
	}
	return &errorData{
		LatestLogs:  latestLogs,
		StackTraces: errors.StackTraces(err),
		CreatedAt:   time.Now(),
		Version:     version.Version,
		Revision:    version.Revision,
	}
}

// declaration merges defaults, config and flags, in increasing priority.
func declaration(cmd *cobra.Command, cfg *config.Config) *pixmap.Declaration {
	d := pixmap.DefaultDeclaration()
	if cfg.ConstName != "" {
		d.ConstName = cfg.ConstName
	}
	if cfg.TypeName != "" {
		d.TypeName = cfg.TypeName
	}
	if cfg.FieldName != "" {
		d.FieldName = cfg.FieldName
	}
	if cfg.Header != "" {
		d.Header = cfg.Header
	}
	if cfg.Footer != "" {
		d.Footer = cfg.Footer
	}
	if cfg.Indent != nil {
		d.Indent = *cfg.Indent
	}
	if cmd.Flags().Changed("const-name") {
		d.ConstName = constName
	}
	if cmd.Flags().Changed("type-name") {
		d.TypeName = typeName
	}
	if cmd.Flags().Changed("field-name") {
		d.FieldName = fieldName
	}
	return d
}

func init() {
	rootCmd.SetErrPrefix(color.RedString("Error:"))
	rootCmd.Flags().StringVarP(&profile, "profile", "", "", "profile name")
	rootCmd.Flags().StringVarP(&constName, "const-name", "c", pixmap.DefaultConstName, "name of the emitted constant")
	rootCmd.Flags().StringVarP(&typeName, "type-name", "t", pixmap.DefaultTypeName, "name of the type holding the matrix")
	rootCmd.Flags().StringVarP(&fieldName, "field-name", "f", pixmap.DefaultFieldName, "name of the field holding the matrix")
	rootCmd.Flags().IntVarP(&concurrency, "concurrency", "", 0, "number of row bands thresholded in parallel (default: GOMAXPROCS)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print logs to stderr")
	rootCmd.Flags().BoolVarP(&progress, "progress", "", false, "show progress on stderr")
}
