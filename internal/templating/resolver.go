package templating

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/alttext/internal/models"
)

const (
	tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	tokenLength   = 4
)

// colorWords is the closed vocabulary {color} is detected from
var colorWords = map[string]struct{}{
	"black": {}, "white": {}, "red": {}, "blue": {}, "green": {}, "yellow": {},
	"purple": {}, "pink": {}, "orange": {}, "brown": {}, "grey": {}, "gray": {},
	"silver": {}, "gold": {}, "beige": {}, "navy": {}, "teal": {}, "cream": {},
	"ivory": {}, "turquoise": {}, "violet": {}, "magenta": {}, "indigo": {},
}

// RandomSource supplies the randomness behind {id}
type RandomSource interface {
	IntN(n int) int
}

type defaultSource struct{}

func (defaultSource) IntN(n int) int { return rand.IntN(n) }

// Variables maps every placeholder to its substitution value
type Variables map[Placeholder]string

// Resolver turns a product and image position into placeholder values
type Resolver struct {
	rand RandomSource
}

// NewResolver returns a Resolver; a nil source falls back to math/rand/v2
func NewResolver(src RandomSource) *Resolver {
	if src == nil {
		src = defaultSource{}
	}
	return &Resolver{rand: src}
}

// Resolve computes the value of every placeholder for the image at imageIndex
// (zero-based). Missing product data resolves to empty strings.
func (r *Resolver) Resolve(p *models.Product, imageIndex int) Variables {
	vars := make(Variables, placeholderCount)
	for _, ph := range All() {
		vars[ph] = ""
	}
	vars[PlaceholderIndex] = strconv.Itoa(imageIndex + 1)
	vars[PlaceholderID] = r.token()

	if p == nil {
		return vars
	}

	vars[PlaceholderTitle] = p.Title
	vars[PlaceholderVendor] = p.Vendor
	vars[PlaceholderBrand] = p.Vendor
	vars[PlaceholderType] = p.Type
	vars[PlaceholderCategory] = p.Type
	vars[PlaceholderTags] = strings.Join(p.Tags, ", ")
	vars[PlaceholderStore] = p.Store
	vars[PlaceholderColor] = DetectColor(p.Title)

	skus := p.SKUs
	if len(skus) == 0 {
		skus = models.CollectSKUs(p.Variants)
	}
	vars[PlaceholderSKU] = strings.Join(skus, ", ")

	return vars
}

func (r *Resolver) token() string {
	var b strings.Builder
	b.Grow(tokenLength)
	for range tokenLength {
		b.WriteByte(tokenAlphabet[r.rand.IntN(len(tokenAlphabet))])
	}
	return b.String()
}

// DetectColor returns the first word of title that is a known color name,
// lower-cased, or "" when none matches
func DetectColor(title string) string {
	for _, word := range strings.Fields(strings.ToLower(title)) {
		if _, ok := colorWords[word]; ok {
			return word
		}
	}
	return ""
}
