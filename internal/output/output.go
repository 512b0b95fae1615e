// Package output renders CLI results in the format the caller asked
// for, following the teacher's output.New(output.Format(...)).Write(...)
// call pattern (seen throughout internal/cli: init.go, execute.go,
// rollback.go, emergency.go).
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format selects the encoding Writer.Write uses.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Writer renders a result value to w in one of the supported formats.
type Writer struct {
	format Format
	w      io.Writer
}

// New builds a Writer for format, defaulting its output to os.Stdout
// callers can override with WriteTo.
func New(format Format) *Writer {
	return &Writer{format: format}
}

// WriteTo returns a copy of the Writer directing output at w.
func (o *Writer) WriteTo(w io.Writer) *Writer {
	return &Writer{format: o.format, w: w}
}

// Write renders v. For FormatText, a string or fmt.Stringer is printed
// as is and any other value is printed with fmt's %v verb.
func (o *Writer) Write(v any) error {
	dst := o.w
	if dst == nil {
		dst = stdout
	}
	switch o.format {
	case FormatJSON:
		enc := json.NewEncoder(dst)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(dst)
		defer enc.Close()
		return enc.Encode(v)
	case FormatText:
		switch t := v.(type) {
		case string:
			_, err := fmt.Fprintln(dst, t)
			return err
		case fmt.Stringer:
			_, err := fmt.Fprintln(dst, t.String())
			return err
		default:
			_, err := fmt.Fprintf(dst, "%v\n", t)
			return err
		}
	default:
		return fmt.Errorf("output: unsupported format %q", o.format)
	}
}
