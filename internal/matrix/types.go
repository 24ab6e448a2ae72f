package matrix

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrEmptyMatrix is returned when a template lists no matrix entries.
	ErrEmptyMatrix = errors.New("environment matrix is empty")
	// ErrInvalidEntry is returned for an entry missing its channel or target.
	ErrInvalidEntry = errors.New("invalid matrix entry")
	// ErrDuplicateEntry is returned when the same combination is listed twice.
	ErrDuplicateEntry = errors.New("duplicate matrix entry")
	// ErrInvalidTemplate is returned when the document does not have the expected shape.
	ErrInvalidTemplate = errors.New("invalid CI template")
)

// Var is one environment variable in declaration order.
type Var struct {
	Name  string
	Value string
}

// Entry is one row of the environment matrix.
type Entry struct {
	Channel string
	Target  string
	// Bits is the optional secondary bit-width parameter; 0 means unset.
	Bits int
	// Vars holds every variable declared on the row, under its original name.
	Vars []Var
}

// combo is the comparable identity of a row. Target triples contain dashes,
// so the joined Key string cannot serve as one.
type combo struct {
	Channel string
	Target  string
	Bits    int
}

func (e Entry) combo() combo {
	return combo{Channel: e.Channel, Target: e.Target, Bits: e.Bits}
}

// Key is the readable name of the entry's combination. Distinct entries may
// share a Key; see Expand for how job IDs stay unique.
func (e Entry) Key() string {
	key := e.Channel + "-" + e.Target
	if e.Bits != 0 {
		key += "-" + strconv.Itoa(e.Bits)
	}
	return key
}

// Validate checks that the row names a channel and a target.
func (e Entry) Validate() error {
	if e.Channel == "" {
		return fmt.Errorf("%w: target %q has no channel", ErrInvalidEntry, e.Target)
	}
	if e.Target == "" {
		return fmt.Errorf("%w: channel %q has no target", ErrInvalidEntry, e.Channel)
	}
	return nil
}

// Step is a single shell line.
type Step string

// BuildPhase describes the build section of a template.
type BuildPhase struct {
	Disabled bool
	Script   []Step
}

// Template is a parsed CI template.
type Template struct {
	Image   string
	Global  []Var
	Matrix  []Entry
	Install []Step
	Build   BuildPhase
	Test    []Step
	// InertTest holds test lines present only as comments.
	InertTest []string
}

// Validate checks the matrix invariants.
func (t *Template) Validate() error {
	if len(t.Matrix) == 0 {
		return ErrEmptyMatrix
	}
	var errs []error
	seen := make(map[combo]int, len(t.Matrix))
	for i, e := range t.Matrix {
		if err := e.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("entry %d: %w", i+1, err))
			continue
		}
		if prev, dup := seen[e.combo()]; dup {
			errs = append(errs, fmt.Errorf("entry %d: %w: %s already listed as entry %d", i+1, ErrDuplicateEntry, e.Key(), prev))
			continue
		}
		seen[e.combo()] = i + 1
	}
	return errors.Join(errs...)
}
