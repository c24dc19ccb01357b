package coverage

import (
	"math"

	"github.com/lehigh-university-libraries/alttext/internal/models"
)

// Summary holds completion metrics for alt text and filenames
type Summary struct {
	TotalImages         int     `json:"total_images" yaml:"total_images"`
	WithText            int     `json:"with_text" yaml:"with_text"`
	WithFilename        int     `json:"with_filename" yaml:"with_filename"`
	TextCoveragePct     float64 `json:"text_coverage_pct" yaml:"text_coverage_pct"`
	FilenameCoveragePct float64 `json:"filename_coverage_pct" yaml:"filename_coverage_pct"`
}

// ProductSummary is a Summary scoped to one product, for list views
type ProductSummary struct {
	ProductID string  `json:"product_id" yaml:"product_id"`
	Title     string  `json:"title" yaml:"title"`
	Summary   Summary `json:"coverage" yaml:"coverage"`
}

// Aggregate computes coverage across every image of every product
func Aggregate(products []models.Product) Summary {
	var s Summary
	for i := range products {
		countImages(&s, &products[i])
	}
	s.finish()
	return s
}

// AggregateProduct computes coverage for a single product
func AggregateProduct(p *models.Product) Summary {
	var s Summary
	if p != nil {
		countImages(&s, p)
	}
	s.finish()
	return s
}

// PerProduct returns one ProductSummary per product, in input order
func PerProduct(products []models.Product) []ProductSummary {
	out := make([]ProductSummary, 0, len(products))
	for i := range products {
		out = append(out, ProductSummary{
			ProductID: products[i].ID,
			Title:     products[i].Title,
			Summary:   AggregateProduct(&products[i]),
		})
	}
	return out
}

// countImages updates the running counts with one product's images
func countImages(s *Summary, p *models.Product) {
	for _, img := range p.Images {
		s.TotalImages++
		if img.Alt != "" {
			s.WithText++
		}
		// an applied filename template counts even if the filename string is unchanged
		if img.FilenameTemplateID != nil {
			s.WithFilename++
		}
	}
}

func (s *Summary) finish() {
	s.TextCoveragePct = Percent(s.WithText, s.TotalImages)
	s.FilenameCoveragePct = Percent(s.WithFilename, s.TotalImages)
}

// Percent returns count/total*100 rounded to one decimal place, 0 when total is 0
func Percent(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(count) / float64(total) * 100
	pct = math.Round(pct*10) / 10
	return math.Max(0, math.Min(100, pct))
}
