// Package output writes scrape results to their final destinations.
package output

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/user/catalog-scraper/internal/domain"
	"github.com/user/catalog-scraper/pkg/utils"
)

// recordsAPI matches the layout downstream tools expect: four-space indent,
// no HTML escaping and non-ASCII text left as is.
var recordsAPI = jsoniter.Config{
	EscapeHTML:    false,
	IndentionStep: 4,
}.Froze()

// JSONWriter writes the extracted records as a JSON array to a single file.
// The file is replaced atomically, so a crashed run never truncates the
// previous output.
type JSONWriter struct {
	path string
}

func NewJSONWriter(path string) *JSONWriter {
	return &JSONWriter{path: path}
}

func (w *JSONWriter) Name() string {
	return "json"
}

func (w *JSONWriter) Path() string {
	return w.path
}

func (w *JSONWriter) Write(_ context.Context, result *domain.ScrapeResult) error {
	data, err := EncodeRecords(result.Records)
	if err != nil {
		return err
	}
	if err := utils.WriteFileAtomic(w.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", w.path, err)
	}
	return nil
}

// EncodeRecords renders records as the output artifact. A nil slice becomes [].
func EncodeRecords(records []domain.ProductRecord) ([]byte, error) {
	if records == nil {
		records = []domain.ProductRecord{}
	}
	data, err := recordsAPI.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}
	return data, nil
}
