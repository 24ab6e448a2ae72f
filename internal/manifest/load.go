package manifest

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/implgrid/internal/ctxlog"
	"github.com/specialistvlad/implgrid/internal/fsutil"
	"github.com/specialistvlad/implgrid/internal/implreg"
	"github.com/zclconf/go-cty/cty"
)

// ErrNoManifests is returned when a path contains no manifest files.
var ErrNoManifests = errors.New("no manifest files found")

// Loader reads manifests into an implreg.Catalog.
type Loader struct {
	vars map[string]string
}

// NewLoader returns a Loader whose expressions can reference the given
// variables by name, e.g. "${docs_root}".
func NewLoader(vars map[string]string) *Loader {
	copied := make(map[string]string, len(vars))
	for k, v := range vars {
		copied[k] = v
	}
	return &Loader{vars: copied}
}

// EvalContext returns the evaluation context exposed to manifest expressions.
func (l *Loader) EvalContext() *hcl.EvalContext {
	variables := make(map[string]cty.Value, len(l.vars))
	for k, v := range l.vars {
		variables[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{Variables: variables}
}

// LoadPath loads a single manifest file or every .hcl file below a directory.
func (l *Loader) LoadPath(ctx context.Context, root string) (*implreg.Catalog, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading manifests.", "path", root)

	filePaths, err := fsutil.FindFilesByExtension(root, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to walk manifest path: %w", err)
	}
	if len(filePaths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoManifests, root)
	}
	sort.Strings(filePaths)
	logger.Debug("Found manifest files.", "files", filePaths)

	parser := hclparse.NewParser()
	var srcs []source
	for _, filePath := range filePaths {
		hclFile, diags := parser.ParseHCLFile(filePath)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", filePath, diags)
		}
		srcs = append(srcs, source{name: filePath, file: hclFile})
	}

	return l.load(ctx, srcs)
}

// LoadSource parses in-memory manifest content. It is mainly used by tests
// and by callers that already hold the bytes.
func (l *Loader) LoadSource(ctx context.Context, filename string, src []byte) (*implreg.Catalog, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return l.load(ctx, []source{{name: filename, file: hclFile}})
}

type source struct {
	name string
	file *hcl.File
}

func (l *Loader) load(ctx context.Context, srcs []source) (*implreg.Catalog, error) {
	logger := ctxlog.FromContext(ctx)
	evalCtx := l.EvalContext()
	catalog := implreg.NewCatalog()
	origin := make(map[string]string)

	for _, src := range srcs {
		registries, diags := ParseFile(ctx, src.file, src.name, evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to process trait definitions in %s: %w", src.name, diags)
		}
		for _, reg := range registries {
			if err := catalog.Add(reg); err != nil {
				return nil, fmt.Errorf("%s: %w (first declared in %s)", src.name, err, origin[reg.Trait().Name])
			}
			origin[reg.Trait().Name] = src.name
		}
		logger.Debug("Loaded definitions from HCL file.", "file", src.name, "traits", len(registries))
	}

	logger.Info("Manifests loaded.", "traits", catalog.Len(), "files", len(srcs))
	return catalog, nil
}
