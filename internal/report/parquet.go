package report

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/alttext/internal/models"
	"github.com/parquet-go/parquet-go"
)

// ImageRow is one image flattened for columnar export
type ImageRow struct {
	ProductID          string `parquet:"product_id"`
	ProductTitle       string `parquet:"product_title"`
	ImageID            string `parquet:"image_id"`
	Src                string `parquet:"src"`
	Alt                string `parquet:"alt"`
	Filename           string `parquet:"filename"`
	AltTemplateID      string `parquet:"alt_template_id"`
	FilenameTemplateID string `parquet:"filename_template_id"`
	HasAlt             bool   `parquet:"has_alt"`
}

// Rows flattens products into ImageRows in product then image order
func Rows(products []models.Product) []ImageRow {
	var rows []ImageRow
	for _, p := range products {
		for _, img := range p.Images {
			rows = append(rows, ImageRow{
				ProductID:          p.ID,
				ProductTitle:       p.Title,
				ImageID:            img.ID,
				Src:                img.Src,
				Alt:                img.Alt,
				Filename:           img.Filename,
				AltTemplateID:      deref(img.AltTemplateID),
				FilenameTemplateID: deref(img.FilenameTemplateID),
				HasAlt:             img.Alt != "",
			})
		}
	}
	return rows
}

// WriteParquet encodes every image of products to w
func WriteParquet(w io.Writer, products []models.Product) (int, error) {
	rows := Rows(products)
	writer := parquet.NewGenericWriter[ImageRow](w)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return 0, fmt.Errorf("failed to write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return len(rows), nil
}

// ExportParquet writes an image snapshot to path
func ExportParquet(path string, products []models.Product) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}

	n, err := writeAndClose(file, products)
	if err != nil {
		return err
	}
	slog.Info("Exported image snapshot", "path", path, "rows", n)
	return nil
}

func writeAndClose(wc io.WriteCloser, products []models.Product) (int, error) {
	n, err := WriteParquet(wc, products)
	if err != nil {
		wc.Close()
		return 0, err
	}
	if err := wc.Close(); err != nil {
		return 0, fmt.Errorf("failed to close parquet file: %w", err)
	}
	return n, nil
}

// ReadParquet loads the rows of a snapshot written by ExportParquet
func ReadParquet(path string) ([]ImageRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	slog.Debug("Parquet file opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[ImageRow](pf)
	defer reader.Close()

	records := make([]ImageRow, 0, pf.NumRows())
	batch := make([]ImageRow, 128)
	for {
		n, err := reader.Read(batch)
		records = append(records, batch[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return records, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
