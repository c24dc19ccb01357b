// Package templating resolves product data into template placeholders and
// renders alt text and filenames from template strings.
package templating

// Placeholder is one of the recognized {name} tokens
type Placeholder int

const (
	PlaceholderTitle Placeholder = iota
	PlaceholderVendor
	PlaceholderBrand
	PlaceholderType
	PlaceholderCategory
	PlaceholderTags
	PlaceholderStore
	PlaceholderSKU
	PlaceholderColor
	PlaceholderIndex
	PlaceholderID

	placeholderCount
)

var placeholderNames = [placeholderCount]string{
	PlaceholderTitle:    "title",
	PlaceholderVendor:   "vendor",
	PlaceholderBrand:    "brand",
	PlaceholderType:     "type",
	PlaceholderCategory: "category",
	PlaceholderTags:     "tags",
	PlaceholderStore:    "store",
	PlaceholderSKU:      "sku",
	PlaceholderColor:    "color",
	PlaceholderIndex:    "index",
	PlaceholderID:       "id",
}

var placeholderHelp = [placeholderCount]string{
	PlaceholderTitle:    "The product title",
	PlaceholderVendor:   "The product vendor",
	PlaceholderBrand:    "Alias for {vendor}",
	PlaceholderType:     "The product type",
	PlaceholderCategory: "Alias for {type}",
	PlaceholderTags:     "The product tags (comma separated)",
	PlaceholderStore:    "Your store name",
	PlaceholderSKU:      "Variant SKU codes (comma separated)",
	PlaceholderColor:    "Color detected from the product title",
	PlaceholderIndex:    "1-based position of the image within the product",
	PlaceholderID:       "Random 4 character token, new on every render",
}

// All returns every recognized placeholder in declaration order
func All() []Placeholder {
	all := make([]Placeholder, 0, placeholderCount)
	for p := Placeholder(0); p < placeholderCount; p++ {
		all = append(all, p)
	}
	return all
}

// Name returns the bare placeholder name, e.g. "title"
func (p Placeholder) Name() string {
	if p < 0 || p >= placeholderCount {
		return ""
	}
	return placeholderNames[p]
}

// Token returns the placeholder as it appears in a template, e.g. "{title}"
func (p Placeholder) Token() string {
	return "{" + p.Name() + "}"
}

// Help returns a one-line description for template guides
func (p Placeholder) Help() string {
	if p < 0 || p >= placeholderCount {
		return ""
	}
	return placeholderHelp[p]
}

func (p Placeholder) String() string {
	return p.Token()
}
