package document

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDF adapts a parsed PDF file to Document.
type PDF struct {
	r *pdf.Reader
}

func OpenPDF(data []byte) (doc *PDF, err error) {
	if len(data) == 0 {
		return nil, errors.New("PDF data is empty")
	}

	// The decoder panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("open PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	return &PDF{r: r}, nil
}

func (p *PDF) NumPages() int {
	return p.r.NumPage()
}

func (p *PDF) PageText(n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("read page %d: %v", n, r)
		}
	}()

	page := p.r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}

	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("get plain text (page = %d): %w", n, err)
	}

	return text, nil
}
