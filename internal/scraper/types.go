package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

const (
	// MaxHTMLSize limits a report page to 10MB
	MaxHTMLSize = 10 * 1024 * 1024

	// TableXPath matches the data table of a report page
	TableXPath = `//table[normalize-space(@class)="tb_base tb_dados"]`

	groupClass   = "tb_item"
	subItemClass = "tb_subitem"
)

var (
	ErrBodyTooLarge = errors.New("response body too large")
	ErrInvalidURL   = errors.New("invalid report url")
)

// ReportRequest identifies exactly one report page.
type ReportRequest struct {
	BaseURL   string
	Option    string
	SubOption string
	Year      int
}

// URL renders the request as opcao/subopcao/ano query parameters on BaseURL.
func (r ReportRequest) URL() (string, error) {
	u, err := url.Parse(r.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, r.BaseURL)
	}
	q := u.Query()
	q.Set("opcao", r.Option)
	if r.SubOption != "" {
		q.Set("subopcao", r.SubOption)
	}
	q.Set("ano", strconv.Itoa(r.Year))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Marker is the hierarchy marker carried by the first cell of a body row.
type Marker int

const (
	MarkerNone Marker = iota
	MarkerGroup
	MarkerSubItem
	// MarkerUnknown is a first cell with a class the report does not use
	// for hierarchy, such as a total row.
	MarkerUnknown
)

func (m Marker) String() string {
	switch m {
	case MarkerGroup:
		return "group"
	case MarkerSubItem:
		return "subitem"
	case MarkerUnknown:
		return "unknown"
	default:
		return "none"
	}
}

// RawRow is one body row as present on the page.
type RawRow struct {
	Cells  []string
	Marker Marker
}

// RawTable is a data table before any interpretation.
type RawTable struct {
	Columns []string
	Rows    []RawRow
}

// ClassifiedRow is a body row with its hierarchy resolved.
type ClassifiedRow struct {
	Key           string
	Values        map[string]string
	Group         *string
	IsGroupHeader bool
}

// GroupLabel returns the resolved group or "".
func (r ClassifiedRow) GroupLabel() string {
	if r.Group == nil {
		return ""
	}
	return *r.Group
}

// FetchError is returned for any failed fetch: transport error, non-200
// status, oversized body or an open circuit.
type FetchError struct {
	URL    string
	Status int
	Err    error

	// set when the caller's context ended the request
	aborted bool
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt may succeed.
func (e *FetchError) Retryable() bool {
	if e.aborted {
		return false
	}
	if e.Status != 0 {
		return e.Status == 429 || e.Status >= 500
	}
	return e.Err != nil && !errors.Is(e.Err, ErrBodyTooLarge) && !isBreakerError(e.Err)
}
