// Package filenames makes rendered filenames safe to assign to sibling images.
package filenames

import (
	"log/slog"
	"strconv"
	"strings"
)

// DefaultExtension is appended to rendered names that have none
const DefaultExtension = ".jpg"

// Guard tracks the filenames issued to the images of one product during one run
type Guard struct {
	// names can repeat in catalog data, so each is counted
	issued map[string]int
}

// NewGuard returns a Guard seeded with filenames already present on sibling images
func NewGuard(existing ...string) *Guard {
	g := &Guard{issued: make(map[string]int, len(existing))}
	for _, name := range existing {
		g.Register(name)
	}
	return g
}

// Issued reports whether name is currently held by some image
func (g *Guard) Issued(name string) bool {
	return g.issued[name] > 0
}

// Register marks name as held by one more image
func (g *Guard) Register(name string) {
	if name != "" {
		g.issued[name]++
	}
}

// Release drops one hold on name, typically an image's old filename just
// before it is renamed
func (g *Guard) Release(name string) {
	if g.issued[name] > 1 {
		g.issued[name]--
		return
	}
	delete(g.issued, name)
}

// Finalize ensures rendered has an extension, disambiguates it against every
// previously issued name with a -2, -3, ... suffix, and registers the result.
func (g *Guard) Finalize(rendered, productID, imageID string) string {
	name := rendered
	if !strings.Contains(name, ".") {
		name += DefaultExtension
	}

	if g.Issued(name) {
		base, ext := splitExt(name)
		candidate := name
		for n := 2; g.Issued(candidate); n++ {
			candidate = base + "-" + strconv.Itoa(n) + ext
		}
		slog.Debug("Filename collision resolved",
			"product_id", productID,
			"image_id", imageID,
			"rendered", name,
			"final", candidate)
		name = candidate
	}

	g.Register(name)
	return name
}

// splitExt splits at the last dot; a name with no dot has an empty extension
func splitExt(name string) (string, string) {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i:]
}
