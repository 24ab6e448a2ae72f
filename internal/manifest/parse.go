package manifest

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/specialistvlad/implgrid/internal/ctxlog"
	"github.com/specialistvlad/implgrid/internal/implreg"
)

// rootSchema defines the top-level structure of a manifest file.
type rootSchema struct {
	Traits []*hclTrait `hcl:"trait,block"`
}

// hclTrait represents a single 'trait' block for decoding purposes.
type hclTrait struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

var traitBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "path"},
		{Name: "href"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "library", LabelNames: []string{"name"}},
	},
}

var libraryBodySchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "implementor", LabelNames: []string{"type"}},
	},
}

// ParseFile decodes every trait block in one HCL file into a registry.
func ParseFile(ctx context.Context, file *hcl.File, filename string, evalCtx *hcl.EvalContext) ([]*implreg.Registry, hcl.Diagnostics) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing trait definitions from file.", "file_path", filename)

	var allDiags hcl.Diagnostics
	if file == nil {
		return nil, append(allDiags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "HCL file is nil",
			Detail:   fmt.Sprintf("No parsed content was supplied for %s.", filename),
		})
	}

	root := &rootSchema{}
	diags := gohcl.DecodeBody(file.Body, evalCtx, root)
	allDiags = append(allDiags, diags...)
	if diags.HasErrors() {
		return nil, allDiags
	}

	registries := make([]*implreg.Registry, 0, len(root.Traits))
	for _, t := range root.Traits {
		reg, diags := parseTrait(t, evalCtx)
		allDiags = append(allDiags, diags...)
		if diags.HasErrors() {
			continue // Skip this trait but keep collecting diagnostics for the rest.
		}
		registries = append(registries, reg)
	}

	if allDiags.HasErrors() {
		return nil, allDiags
	}

	logger.Debug("Parsed trait definitions.", "file_path", filename, "count", len(registries))
	return registries, allDiags
}

func parseTrait(t *hclTrait, evalCtx *hcl.EvalContext) (*implreg.Registry, hcl.Diagnostics) {
	content, diags := t.Body.Content(traitBodySchema)
	if diags.HasErrors() {
		return nil, diags
	}

	trait := implreg.TraitRef{Name: t.Name}
	if attr, ok := content.Attributes["path"]; ok {
		diags = append(diags, gohcl.DecodeExpression(attr.Expr, evalCtx, &trait.Path)...)
	}
	if attr, ok := content.Attributes["href"]; ok {
		diags = append(diags, gohcl.DecodeExpression(attr.Expr, evalCtx, &trait.Href)...)
	}
	if trait.Path == "" {
		trait.Path = "trait." + t.Name + ".js"
	}
	if !implreg.ValidFragmentPath(trait.Path) {
		subject := t.Body.MissingItemRange()
		if attr, ok := content.Attributes["path"]; ok {
			subject = attr.Range
		}
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid fragment path",
			Detail:   fmt.Sprintf("Trait %q: path %q must be relative and stay inside the implementors directory.", t.Name, trait.Path),
			Subject:  subject.Ptr(),
		})
	}

	builder := implreg.NewBuilder(trait)
	seen := make(map[string]hcl.Range)
	for _, block := range content.Blocks.OfType("library") {
		lib := block.Labels[0]
		if prev, dup := seen[lib]; dup {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate library block",
				Detail:   fmt.Sprintf("Library %q is already declared for trait %q at %s.", lib, t.Name, prev),
				Subject:  block.DefRange.Ptr(),
			})
			continue
		}
		seen[lib] = block.DefRange

		descs, libDiags := parseLibrary(trait, lib, block, evalCtx)
		diags = append(diags, libDiags...)
		if libDiags.HasErrors() {
			continue
		}
		builder.Add(lib, descs...)
	}

	if diags.HasErrors() {
		return nil, diags
	}

	reg, err := builder.Build()
	if err != nil {
		return nil, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid trait registry",
			Detail:   err.Error(),
		})
	}
	return reg, diags
}

func parseLibrary(trait implreg.TraitRef, lib string, block *hcl.Block, evalCtx *hcl.EvalContext) ([]implreg.Descriptor, hcl.Diagnostics) {
	content, diags := block.Body.Content(libraryBodySchema)
	if diags.HasErrors() {
		return nil, diags
	}

	impls := content.Blocks.OfType("implementor")
	if len(impls) == 0 {
		return nil, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Library has no implementors",
			Detail:   fmt.Sprintf("Library %q under trait %q must declare at least one implementor block.", lib, trait.Name),
			Subject:  block.DefRange.Ptr(),
		})
	}

	descs := make([]implreg.Descriptor, 0, len(impls))
	for _, implBlock := range impls {
		var impl implementor
		implDiags := gohcl.DecodeBody(implBlock.Body, evalCtx, &impl)
		diags = append(diags, implDiags...)
		if implDiags.HasErrors() {
			continue
		}
		if impl.Kind != "" {
			if _, ok := validKinds[impl.Kind]; !ok {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Unsupported implementor kind",
					Detail:   fmt.Sprintf("Implementor %q in library %q has kind %q.", implBlock.Labels[0], lib, impl.Kind),
					Subject:  implBlock.DefRange.Ptr(),
				})
				continue
			}
		}
		markup := renderDescriptor(trait.Name, trait.Href, lib, implBlock.Labels[0], impl)
		descs = append(descs, implreg.NewDescriptor(markup))
	}
	return descs, diags
}
