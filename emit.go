package pixmap

import (
	"bufio"
	"fmt"
	"io"
	"regexp"

	"github.com/k1LoW/errors"
	"github.com/k1LoW/pixmap/template"
)

const (
	DefaultConstName = "PIXMAP"
	DefaultTypeName  = "Pixmap"
	DefaultFieldName = "data"
	DefaultHeader    = "pub const {{constName}}: {{typeName}} = {{typeName}} {"
	DefaultFooter    = "};"
	DefaultIndent    = "    "
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Declaration describes the source-level constant wrapping the binary grid.
// Header and Footer may reference constName, typeName, fieldName, rows and cols as {{ }} expressions.
type Declaration struct {
	ConstName string
	TypeName  string
	FieldName string
	Header    string
	Footer    string
	Indent    string
}

// DefaultDeclaration returns a Rust `pub const PIXMAP: Pixmap = Pixmap { data: ... };` declaration.
func DefaultDeclaration() *Declaration {
	return &Declaration{
		ConstName: DefaultConstName,
		TypeName:  DefaultTypeName,
		FieldName: DefaultFieldName,
		Header:    DefaultHeader,
		Footer:    DefaultFooter,
		Indent:    DefaultIndent,
	}
}

// templateVariables are the names available to Header and Footer.
var templateVariables = map[string]struct{}{
	"constName": {},
	"typeName":  {},
	"fieldName": {},
	"rows":      {},
	"cols":      {},
}

// Validate checks that every name is an identifier and that the templates only reference known variables.
func (d *Declaration) Validate() error {
	for _, n := range []struct {
		key   string
		value string
	}{
		{"const name", d.ConstName},
		{"type name", d.TypeName},
		{"field name", d.FieldName},
	} {
		if !identRe.MatchString(n.value) {
			return fmt.Errorf("%w: %s %q", ErrInvalidName, n.key, n.value)
		}
	}
	for _, tmpl := range []string{d.Header, d.Footer} {
		for _, v := range template.Variables(tmpl) {
			if _, ok := templateVariables[v]; !ok {
				return fmt.Errorf("%w: {{%s}} in %q", ErrUnknownVariable, v, tmpl)
			}
		}
	}
	return nil
}

func (d *Declaration) store(b *BinaryGrid) map[string]any {
	return map[string]any{
		"constName": d.ConstName,
		"typeName":  d.TypeName,
		"fieldName": d.FieldName,
		"rows":      b.rows,
		"cols":      b.cols,
	}
}

// Emit writes b as a nested array literal wrapped in the declaration d.
// Rows are written in order, values within a row and rows themselves are comma separated
// without trailing commas. The same grid always produces the same bytes.
func Emit(w io.Writer, b *BinaryGrid, d *Declaration) (err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	if b == nil || b.rows == 0 || b.cols == 0 {
		return ErrEmptyGrid
	}
	if d == nil {
		d = DefaultDeclaration()
	}
	if err := d.Validate(); err != nil {
		return err
	}
	store := d.store(b)
	header, err := template.Expand(d.Header, store)
	if err != nil {
		return fmt.Errorf("failed to expand header: %w", err)
	}
	footer, err := template.Expand(d.Footer, store)
	if err != nil {
		return fmt.Errorf("failed to expand footer: %w", err)
	}

	bw := bufio.NewWriter(w)
	_, _ = bw.WriteString(header)
	_ = bw.WriteByte('\n')
	_, _ = bw.WriteString(d.Indent)
	_, _ = bw.WriteString(d.FieldName)
	_, _ = bw.WriteString(": [")
	for r := 0; r < b.rows; r++ {
		if r > 0 {
			_, _ = bw.WriteString(",\n")
			_, _ = bw.WriteString(d.Indent)
		}
		_ = bw.WriteByte('[')
		for c, v := range b.row(r) {
			if c > 0 {
				_ = bw.WriteByte(',')
			}
			_ = bw.WriteByte('0' + v)
		}
		_ = bw.WriteByte(']')
	}
	_, _ = bw.WriteString("]\n")
	_, _ = bw.WriteString(footer)
	_ = bw.WriteByte('\n')
	// bufio.Writer keeps the first write error and reports it here
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write declaration: %w", err)
	}
	return nil
}
