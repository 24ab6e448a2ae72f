// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package implreg

import (
	"strings"

	"golang.org/x/net/html"
)

// Descriptor is one formatted implementation line, such as
// `impl <a href="...">Clone</a> for <a href="...">Error</a>`. The markup is
// opaque to the registry; helpers only read it.
type Descriptor struct {
	markup string
}

// NewDescriptor wraps raw markup.
func NewDescriptor(markup string) Descriptor {
	return Descriptor{markup: markup}
}

// Markup returns the raw formatted string.
func (d Descriptor) Markup() string { return d.markup }

// String implements fmt.Stringer.
func (d Descriptor) String() string { return d.markup }

// Links returns the cross-reference targets embedded in the markup, in
// document order.
func (d Descriptor) Links() []string {
	var links []string
	z := html.NewTokenizer(strings.NewReader(d.markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return links
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" {
				continue
			}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if string(key) == "href" && len(val) > 0 {
					links = append(links, string(val))
				}
			}
		}
	}
}

// Text returns the markup with all tags stripped and entities decoded,
// e.g. "impl Clone for Error".
func (d Descriptor) Text() string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(d.markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}
