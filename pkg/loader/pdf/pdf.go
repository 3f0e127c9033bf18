// Package pdf extracts plain text and bibliographic hints from PDF bytes.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/scholia-ai/scholia/pkg/loader"
)

// ExtractText extracts text from the first maxPages pages of a PDF.
// Pass maxPages <= 0 to read the whole document.
func ExtractText(data []byte, maxPages int) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", loader.ErrParse, err)
	}

	if maxPages <= 0 || maxPages > reader.NumPage() {
		maxPages = reader.NumPage()
	}

	var builder strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Pages with broken font maps are skipped rather than
			// failing the whole document.
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	if builder.Len() == 0 {
		return "", fmt.Errorf("%w: no extractable text", loader.ErrParse)
	}
	return builder.String(), nil
}
