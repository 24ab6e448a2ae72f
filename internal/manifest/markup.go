package manifest

import (
	"fmt"
	"html"
	"strings"
)

// validKinds are the item kinds a documented implementor may have.
var validKinds = map[string]struct{}{
	"struct":    {},
	"enum":      {},
	"union":     {},
	"type":      {},
	"primitive": {},
	"trait":     {},
}

// implementor is the decoded body of an `implementor` block.
type implementor struct {
	Kind     string `hcl:"kind,optional"`
	Href     string `hcl:"href,optional"`
	Generics string `hcl:"generics,optional"`
	Markup   string `hcl:"markup,optional"`
}

// anchor renders a cross-reference, or plain escaped text when href is empty.
func anchor(class, href, title, text string) string {
	text = html.EscapeString(text)
	if href == "" {
		return text
	}
	return fmt.Sprintf(`<a class="%s" href="%s" title="%s">%s</a>`,
		class, html.EscapeString(href), html.EscapeString(title), text)
}

// renderDescriptor builds the formatted implementation line for one type.
func renderDescriptor(traitName, traitHref, library, typeName string, impl implementor) string {
	if impl.Markup != "" {
		return impl.Markup
	}

	kind := impl.Kind
	if kind == "" {
		kind = "struct"
	}
	generics := html.EscapeString(strings.TrimSpace(impl.Generics))

	var b strings.Builder
	b.WriteString("impl")
	b.WriteString(generics)
	b.WriteString(" ")
	b.WriteString(anchor("trait", traitHref, "trait "+traitName, traitName))
	b.WriteString(" for ")
	b.WriteString(anchor(kind, impl.Href, kind+" "+library+"::"+typeName, typeName))
	b.WriteString(generics)
	return b.String()
}
