package fragment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/implgrid/internal/implreg"
)

// ErrMalformedFragment is returned when a script does not have the fragment shape.
var ErrMalformedFragment = errors.New("malformed implementors fragment")

const entryPrefix = "implementors["

// Parse reads a fragment script back into a registry for trait. The result
// is validated like any other snapshot, so a repeated library is rejected.
func Parse(trait implreg.TraitRef, data []byte) (*implreg.Registry, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")

	i := skipBlank(lines, 0)
	if i >= len(lines) || strings.TrimSpace(lines[i]) != header {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedFragment)
	}

	var entries []implreg.Entry
	for i = skipBlank(lines, i+1); i < len(lines); i = skipBlank(lines, i+1) {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, entryPrefix) {
			break
		}
		entry, err := parseEntry(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedFragment, i+1, err)
		}
		entries = append(entries, entry)
	}

	rest := strings.TrimSpace(strings.Join(lines[min(i, len(lines)):], "\n"))
	if normalize(rest) != normalize(trailer) {
		return nil, fmt.Errorf("%w: unexpected trailer", ErrMalformedFragment)
	}

	return implreg.FromEntries(trait, entries)
}

// parseEntry decodes `implementors["lib"] = ["...", ...];`.
func parseEntry(line string) (implreg.Entry, error) {
	rest := []byte(strings.TrimPrefix(line, entryPrefix))

	var lib string
	dec := json.NewDecoder(bytes.NewReader(rest))
	if err := dec.Decode(&lib); err != nil {
		return implreg.Entry{}, fmt.Errorf("library key: %w", err)
	}
	rest = bytes.TrimSpace(rest[dec.InputOffset():])

	if !bytes.HasPrefix(rest, []byte("]")) {
		return implreg.Entry{}, errors.New(`expected "]" after library key`)
	}
	rest = bytes.TrimSpace(rest[1:])
	if !bytes.HasPrefix(rest, []byte("=")) {
		return implreg.Entry{}, errors.New(`expected "=" after library key`)
	}
	rest = bytes.TrimSpace(rest[1:])
	if !bytes.HasSuffix(rest, []byte(";")) {
		return implreg.Entry{}, errors.New(`expected trailing ";"`)
	}
	rest = rest[:len(rest)-1]

	var markups []string
	if err := json.Unmarshal(rest, &markups); err != nil {
		return implreg.Entry{}, fmt.Errorf("implementor list: %w", err)
	}

	entry := implreg.Entry{Library: lib, Descriptors: make([]implreg.Descriptor, len(markups))}
	for i, m := range markups {
		entry.Descriptors[i] = implreg.NewDescriptor(m)
	}
	return entry, nil
}

func skipBlank(lines []string, i int) int {
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	return i
}

// normalize collapses whitespace so that re-indented trailers still match.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
