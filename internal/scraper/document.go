package scraper

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// minDetectConfidence is the chardet confidence required to override the
// HTML5 encoding sniffing fallback.
const minDetectConfidence = 50

// Parse decodes the page to UTF-8 and builds its node tree. The encoding
// comes from a BOM or the Content-Type header when present, else from
// chardet, else from HTML5 sniffing.
func (d *Document) Parse() (*html.Node, error) {
	if len(d.Body) > MaxHTMLSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, len(d.Body))
	}

	name := DetectCharset(d.Body, d.ContentType)
	reader, err := charset.NewReaderLabel(name, bytes.NewReader(d.Body))
	if err != nil {
		return htmlquery.Parse(bytes.NewReader(d.Body))
	}
	return htmlquery.Parse(reader)
}

// DetectCharset returns the encoding label of an HTML body.
func DetectCharset(body []byte, contentType string) string {
	_, name, certain := charset.DetermineEncoding(body, contentType)
	if certain {
		return name
	}

	result, err := chardet.NewHtmlDetector().DetectBest(body)
	if err == nil && result != nil && result.Confidence >= minDetectConfidence {
		return strings.ToLower(result.Charset)
	}
	return name
}

// ParseHTML parses an already decoded page.
func ParseHTML(page string) (*html.Node, error) {
	if len(page) > MaxHTMLSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, len(page))
	}
	return htmlquery.Parse(strings.NewReader(page))
}
