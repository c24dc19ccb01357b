package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Product represents a catalog product together with its images and variants
type Product struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Vendor      string    `json:"vendor" yaml:"vendor"`
	Type        string    `json:"type" yaml:"type"`
	Tags        []string  `json:"tags" yaml:"tags"`
	Images      []Image   `json:"images" yaml:"images"`
	Variants    []Variant `json:"variants" yaml:"variants"`
	SKUs        []string  `json:"skus" yaml:"skus"`
	Store       string    `json:"store" yaml:"store"`
}

// Image represents one product photo and its editable metadata
type Image struct {
	ID       string `json:"id" yaml:"id"`
	Src      string `json:"src" yaml:"src"`
	Alt      string `json:"alt" yaml:"alt"`
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty"`

	// Last template applied to each field, nil when none (or cleared)
	AltTemplateID      *string `json:"alt_template_id,omitempty" yaml:"alt_template_id,omitempty"`
	FilenameTemplateID *string `json:"filename_template_id,omitempty" yaml:"filename_template_id,omitempty"`
}

// Variant is a read-only snapshot of a product variant
type Variant struct {
	ID    string          `json:"id" yaml:"id"`
	Title string          `json:"title" yaml:"title"`
	Price decimal.Decimal `json:"price" yaml:"price"`
	SKU   string          `json:"sku,omitempty" yaml:"sku,omitempty"`
}

// Template is a named pattern with placeholders such as {title} or {vendor}
type Template struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Template string `json:"template" yaml:"template"`
}

// Field selects which editable image field a template targets
type Field int

const (
	FieldAlt Field = iota
	FieldFilename
)

func (f Field) String() string {
	switch f {
	case FieldAlt:
		return "alt"
	case FieldFilename:
		return "filename"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// ParseField converts "alt" or "filename" into a Field
func ParseField(s string) (Field, error) {
	switch s {
	case "alt", "alt_text", "":
		return FieldAlt, nil
	case "filename":
		return FieldFilename, nil
	default:
		return FieldAlt, fmt.Errorf("unknown field: %s (expected alt or filename)", s)
	}
}

// ImageIndex returns the position of imageID (full gid or numeric tail) within
// the product, or -1
func (p *Product) ImageIndex(imageID string) int {
	for i := range p.Images {
		if p.Images[i].ID == imageID {
			return i
		}
	}
	for i := range p.Images {
		if ShortID(p.Images[i].ID) == imageID {
			return i
		}
	}
	return -1
}

// ShortID returns the part of a Shopify gid after the last slash
func ShortID(gid string) string {
	if i := strings.LastIndex(gid, "/"); i >= 0 {
		return gid[i+1:]
	}
	return gid
}

// CollectSKUs returns the non-empty variant SKUs in variant order
func CollectSKUs(variants []Variant) []string {
	skus := make([]string, 0, len(variants))
	for _, v := range variants {
		if v.SKU != "" {
			skus = append(skus, v.SKU)
		}
	}
	return skus
}

// TemplateRef returns the applied-template reference for the given field
func (img *Image) TemplateRef(field Field) *string {
	if field == FieldFilename {
		return img.FilenameTemplateID
	}
	return img.AltTemplateID
}

// SetTemplateRef records (or clears, with nil) the template applied to a field
func (img *Image) SetTemplateRef(field Field, id *string) {
	if field == FieldFilename {
		img.FilenameTemplateID = id
		return
	}
	img.AltTemplateID = id
}

func (f Field) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Field) UnmarshalText(text []byte) error {
	parsed, err := ParseField(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
