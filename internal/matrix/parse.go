package matrix

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Matrix row variables recognised as the channel, target and bit width.
// Matching is case-insensitive.
var (
	channelKeys = []string{"channel", "rust_channel", "toolchain"}
	targetKeys  = []string{"target", "rust_target"}
	bitsKeys    = []string{"bits", "msys_bits", "arch_bits"}
)

// LoadFile reads and parses a template from path.
func LoadFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CI template %s: %w", path, err)
	}
	tpl, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tpl, nil
}

// Parse parses an appveyor-style YAML template and validates its matrix.
func Parse(data []byte) (*Template, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse CI template YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrInvalidTemplate)
	}
	root := doc.Content[0]

	tpl := &Template{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		var err error
		switch key.Value {
		case "os", "image":
			tpl.Image, err = scalar(key.Value, val)
		case "environment":
			err = parseEnvironment(tpl, val)
		case "install":
			tpl.Install, err = steps(key.Value, val)
		case "build":
			tpl.Build.Disabled, err = buildDisabled(val)
		case "build_script":
			tpl.Build.Script, err = steps(key.Value, val)
		case "test_script":
			tpl.Test, err = steps(key.Value, val)
			tpl.InertTest = commentedSteps(data, key.Line)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	return tpl, nil
}

func scalar(name string, n *yaml.Node) (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("%w: %q must be a scalar (line %d)", ErrInvalidTemplate, name, n.Line)
	}
	return n.Value, nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func steps(name string, n *yaml.Node) ([]Step, error) {
	if isNull(n) {
		return nil, nil
	}
	if n.Kind == yaml.ScalarNode {
		return []Step{Step(n.Value)}, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: %q must be a list of commands (line %d)", ErrInvalidTemplate, name, n.Line)
	}
	out := make([]Step, 0, len(n.Content))
	for _, item := range n.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: %q entries must be strings (line %d)", ErrInvalidTemplate, name, item.Line)
		}
		out = append(out, Step(item.Value))
	}
	return out, nil
}

// buildDisabled interprets `build: false` (or `off`) as a disabled phase.
func buildDisabled(n *yaml.Node) (bool, error) {
	if n.Kind != yaml.ScalarNode {
		return false, nil
	}
	switch strings.ToLower(n.Value) {
	case "false", "off", "no":
		return true, nil
	}
	return false, nil
}

func parseEnvironment(tpl *Template, n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: \"environment\" must be a mapping (line %d)", ErrInvalidTemplate, n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		switch key.Value {
		case "matrix":
			if val.Kind != yaml.SequenceNode {
				return fmt.Errorf("%w: \"environment.matrix\" must be a list (line %d)", ErrInvalidTemplate, val.Line)
			}
			for _, row := range val.Content {
				vars, err := parseVars(row)
				if err != nil {
					return err
				}
				entry, err := entryFromVars(vars)
				if err != nil {
					return fmt.Errorf("line %d: %w", row.Line, err)
				}
				tpl.Matrix = append(tpl.Matrix, entry)
			}
		case "global":
			vars, err := parseVars(val)
			if err != nil {
				return err
			}
			tpl.Global = vars
		default:
			// Plain variables directly under environment apply to every job.
			if val.Kind != yaml.ScalarNode {
				return fmt.Errorf("%w: environment variable %q must be a scalar (line %d)", ErrInvalidTemplate, key.Value, val.Line)
			}
			tpl.Global = append(tpl.Global, Var{Name: key.Value, Value: val.Value})
		}
	}
	return nil
}

func parseVars(n *yaml.Node) ([]Var, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a mapping of variables (line %d)", ErrInvalidTemplate, n.Line)
	}
	out := make([]Var, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: variable %q must be a scalar (line %d)", ErrInvalidTemplate, key.Value, val.Line)
		}
		out = append(out, Var{Name: key.Value, Value: val.Value})
	}
	return out, nil
}

func entryFromVars(vars []Var) (Entry, error) {
	e := Entry{Vars: vars}
	for _, v := range vars {
		name := strings.ToLower(v.Name)
		switch {
		case matches(name, channelKeys) && e.Channel == "":
			e.Channel = v.Value
		case matches(name, targetKeys) && e.Target == "":
			e.Target = v.Value
		case matches(name, bitsKeys) && e.Bits == 0:
			bits, err := strconv.Atoi(v.Value)
			if err != nil || bits <= 0 {
				return Entry{}, fmt.Errorf("%w: bit width %q is not a positive integer", ErrInvalidEntry, v.Value)
			}
			e.Bits = bits
		}
	}
	return e, nil
}

func matches(name string, keys []string) bool {
	for _, k := range keys {
		if name == k {
			return true
		}
	}
	return false
}

// topLevelKey matches an unindented mapping key such as "build_script:".
var topLevelKey = regexp.MustCompile(`^[^\s#-][^:]*:`)

// commentedSteps recovers list items that were commented out beneath the key
// on line keyLine (1-based), e.g. "#  - cargo test --verbose". The block ends
// at the next top-level key, active or commented out. Active list items may
// sit at column 0.
func commentedSteps(data []byte, keyLine int) []string {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	var out []string
	for i := keyLine; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "#") {
			if topLevelKey.MatchString(line) {
				break
			}
			continue
		}
		body := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
		if !strings.HasPrefix(body, "- ") {
			if strings.HasSuffix(body, ":") {
				break // a commented-out sibling key starts another section
			}
			continue
		}
		if step := strings.TrimSpace(body[2:]); step != "" {
			out = append(out, step)
		}
	}
	return out
}
