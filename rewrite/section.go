package rewrite

import "regexp"

// sectionHeaderRe matches one "## STEP n …" header line, including its
// trailing newline when present.
var sectionHeaderRe = regexp.MustCompile(`(?m)^## STEP \d+[^\n]*\n?`)

// Section is one labeled region of a buffer: a "## STEP n" header line and
// everything up to the next header. Subsection markers ("###…") belong to
// the enclosing section's body.
type Section struct {
	Header string
	Body   string
}

// Document is a buffer parsed into an ordered sequence of sections,
// preceded by whatever text appears before the first header. Serializing a
// Document that was not modified reproduces the input byte for byte.
type Document struct {
	Preamble string
	Sections []Section
}

// ParseSections splits code on "## STEP n" header lines.
func ParseSections(code string) *Document {
	locs := sectionHeaderRe.FindAllStringIndex(code, -1)
	if len(locs) == 0 {
		return &Document{Preamble: code}
	}

	doc := &Document{Preamble: code[:locs[0][0]]}
	for i, loc := range locs {
		end := len(code)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		doc.Sections = append(doc.Sections, Section{
			Header: code[loc[0]:loc[1]],
			Body:   code[loc[1]:end],
		})
	}
	return doc
}

// Find returns a pointer to the first section whose header satisfies pred,
// or nil. The pointer aliases the Document, so mutating the section and
// re-serializing yields the edited buffer.
func (d *Document) Find(pred func(header string) bool) *Section {
	for i := range d.Sections {
		if pred(d.Sections[i].Header) {
			return &d.Sections[i]
		}
	}
	return nil
}

// String re-serializes the document in original order.
func (d *Document) String() string {
	out := d.Preamble
	for _, s := range d.Sections {
		out += s.Header + s.Body
	}
	return out
}
