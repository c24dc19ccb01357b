package templating

import (
	"strings"

	"github.com/lehigh-university-libraries/alttext/internal/models"
)

// Mode controls how substituted values are inserted
type Mode int

const (
	// ModeDescriptive inserts values verbatim (alt text)
	ModeDescriptive Mode = iota
	// ModeFilename hyphenates whitespace and lower-cases each value
	ModeFilename
)

// ModeFor returns the render mode used for a field
func ModeFor(field models.Field) Mode {
	if field == models.FieldFilename {
		return ModeFilename
	}
	return ModeDescriptive
}

// Render replaces every occurrence of each placeholder in vars within tmpl.
// Literal text and unrecognized {tokens} pass through unchanged.
func Render(tmpl string, vars Variables, mode Mode) string {
	if tmpl == "" || !strings.Contains(tmpl, "{") {
		return tmpl
	}

	pairs := make([]string, 0, 2*len(vars))
	for _, ph := range All() {
		value, ok := vars[ph]
		if !ok {
			continue
		}
		if mode == ModeFilename {
			value = Slugify(value)
		}
		pairs = append(pairs, ph.Token(), value)
	}
	// single pass, so an expanded value is never itself re-expanded
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// Slugify joins whitespace-separated runs with hyphens and lower-cases the result
func Slugify(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), "-"))
}
