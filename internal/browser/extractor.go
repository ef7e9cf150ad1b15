package browser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseRows parses table HTML and returns the trimmed text of every cell,
// grouped by row, in document order. Rows without cells come back empty so
// callers can decide what to do with them.
func ParseRows(htmlContent, rowSelector, cellSelector string) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	rows := doc.Find(rowSelector)
	result := make([][]string, 0, rows.Length())
	rows.Each(func(i int, row *goquery.Selection) {
		cells := []string{}
		row.Find(cellSelector).Each(func(j int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		result = append(result, cells)
	})
	return result, nil
}
