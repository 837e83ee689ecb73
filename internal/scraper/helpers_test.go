package scraper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func loadFixture(t *testing.T, name string) *html.Node {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	root, err := ParseHTML(string(data))
	require.NoError(t, err)
	return root
}

func parse(t *testing.T, page string) *html.Node {
	t.Helper()
	root, err := ParseHTML(page)
	require.NoError(t, err)
	return root
}

func group(cells ...string) RawRow   { return RawRow{Cells: cells, Marker: MarkerGroup} }
func subItem(cells ...string) RawRow { return RawRow{Cells: cells, Marker: MarkerSubItem} }
func plain(cells ...string) RawRow   { return RawRow{Cells: cells} }
func unknown(cells ...string) RawRow { return RawRow{Cells: cells, Marker: MarkerUnknown} }

func label(s string) *string { return &s }
