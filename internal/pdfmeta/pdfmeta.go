// Package pdfmeta reads lightweight metadata from uploaded PDFs.
package pdfmeta

import (
	"bytes"

	"github.com/ledongthuc/pdf"
)

// PageCount returns the number of pages in the PDF, or 0 when the bytes
// cannot be parsed. Detection is best effort: the viewer reports the real
// count on first load and the progress record is corrected then.
func PageCount(data []byte) (count int) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			count = 0
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	return reader.NumPage()
}
