package fragment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/specialistvlad/implgrid/internal/implreg"
)

const (
	header  = "(function() {var implementors = {};"
	trailer = `if (window.register_implementors) {
    window.register_implementors(implementors);
} else {
    window.pending_implementors = implementors;
}
})()
`
	// ContentType is the MIME type fragments are served and stored with.
	ContentType = "application/javascript; charset=utf-8"
)

// Render returns the fragment script for reg.
func Render(reg *implreg.Registry) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, reg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the fragment script for reg to w.
func Write(w io.Writer, reg *implreg.Registry) error {
	if _, err := io.WriteString(w, header+"\n"); err != nil {
		return err
	}
	err := reg.Each(func(lib string, descs []implreg.Descriptor) error {
		key, err := jsString(lib)
		if err != nil {
			return fmt.Errorf("encoding library %q: %w", lib, err)
		}
		markups := make([]string, len(descs))
		for i, d := range descs {
			markups[i] = d.Markup()
		}
		list, err := jsValue(markups)
		if err != nil {
			return fmt.Errorf("encoding implementors of %q: %w", lib, err)
		}
		_, err = fmt.Fprintf(w, "implementors[%s] = %s;\n", key, list)
		return err
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, trailer)
	return err
}

func jsString(s string) ([]byte, error) { return jsValue(s) }

// jsValue encodes v as a JSON literal, which is also a valid JavaScript
// literal. HTML characters are kept as-is so descriptor markup stays legible.
func jsValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
